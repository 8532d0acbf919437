package service

import (
	"context"
	"time"

	domain "school-registration/internal/domain/registration"

	"github.com/shopspring/decimal"
)

// TimelineQuery describes the registration being checked for schedule
// conflicts. ExcludeRegID skips the registration being replaced by a transfer.
type TimelineQuery struct {
	SeasonID     int64
	StudentID    int64
	ClassID      int64
	ExcludeRegID int64
}

type RegisterRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	ArrangeID int64 `json:"arrange_id" validate:"required,gt=0"`
}

type DropRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	Override  bool  `json:"override"`
}

// ChangeRequestInput asks for a drop when TargetArrangeID is 0 and for a
// transfer into TargetArrangeID otherwise.
type ChangeRequestInput struct {
	RegID           int64  `json:"reg_id" validate:"required,gt=0"`
	TargetArrangeID int64  `json:"target_arrange_id" validate:"gte=0"`
	Reason          string `json:"reason" validate:"max=500"`
}

type RejectRequest struct {
	FamilyID int64  `json:"family_id" validate:"required,gt=0"`
	Memo     string `json:"memo" validate:"max=500"`
}

type ApproveRequest struct {
	FamilyID int64 `json:"family_id" validate:"required,gt=0"`
}

type UndoRequest struct {
	FamilyID       int64  `json:"family_id" validate:"required,gt=0"`
	ExpectedStatus string `json:"expected_status" validate:"required,oneof=approved rejected"`
}

// UndoOutcome reports the result of an undo. Err is nil when Undone is true.
type UndoOutcome struct {
	RequestID int64 `json:"request_id"`
	Undone    bool  `json:"undone"`
	Err       error `json:"-"`
}

type CheckPayment struct {
	BalanceID int64           `json:"balance_id" validate:"required,gt=0"`
	CheckNo   string          `json:"check_no" validate:"required,max=50"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	PaidDate  time.Time       `json:"paid_date" validate:"required"`
	Note      string          `json:"note" validate:"max=500"`
}

type CheckResult struct {
	Payment          *domain.FamilyBalance `json:"payment"`
	FullPayment      bool                  `json:"full_payment"`
	RegisteredRegIDs []int64               `json:"registered_reg_ids"`
}

type RegistrationService interface {
	FamilyRegister(ctx context.Context, arrangement *domain.Arrangement, season *domain.Season, familyID, studentID int64) (*domain.FamilyBalance, error)
	RegisterForArrangement(ctx context.Context, familyID int64, req *RegisterRequest) (*domain.FamilyBalance, error)
	AdminDropRegistration(ctx context.Context, regID, studentID int64, override bool) error

	ListFamilyRegistrations(ctx context.Context, familyID int64) ([]*domain.ClassRegistration, error)
	ListSeasonRegistrations(ctx context.Context, seasonID int64) ([]*domain.ClassRegistration, error)
	ListFamilyBalances(ctx context.Context, familyID int64) ([]*domain.FamilyBalance, error)
	EffectiveBalance(ctx context.Context, familyID, seasonID int64) (decimal.Decimal, error)
}

type ChangeRequestService interface {
	FamilySubmitRequest(ctx context.Context, familyID int64, input *ChangeRequestInput) (*domain.RegChangeRequest, error)
	AdminApproveRequest(ctx context.Context, requestID, familyID int64) (*domain.RegChangeRequest, error)
	AdminRejectRequest(ctx context.Context, requestID, familyID int64, memo string) (*domain.RegChangeRequest, error)
	AdminUndoRequest(ctx context.Context, requestID, familyID int64, expected domain.ReqStatus) UndoOutcome
}

type PaymentService interface {
	ApplyCheck(ctx context.Context, payment *CheckPayment, familyID int64) (*CheckResult, error)
	RemoveBalance(ctx context.Context, balanceID int64) error
}

type ReportService interface {
	SeasonBalances(ctx context.Context, seasonID int64) ([]domain.FamilySeasonBalance, error)
}
