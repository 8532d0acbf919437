package interfaces

import (
	"context"

	domain "school-registration/internal/domain/registration"

	"github.com/shopspring/decimal"
)

// Lookups that return (nil, nil) mean the row does not exist. Methods ending
// in ForUpdate take a row lock held until the surrounding transaction ends.
// Families, students, seasons and arrangements are maintained elsewhere and
// are read-only here.

type FamilyRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Family, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Family, error)
}

type StudentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Student, error)
	GetByFamilyAndID(ctx context.Context, familyID, studentID int64) (*domain.Student, error)
}

type SeasonRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Season, error)
	GetTriple(ctx context.Context, seasonID int64) (*domain.SeasonTriple, error)
	GetActiveYear(ctx context.Context) (*domain.Season, error)
}

type ArrangementRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Arrangement, error)
	GetByClassAndSeason(ctx context.Context, classID, seasonID int64) (*domain.Arrangement, error)
}

type ClassRegistrationRepository interface {
	Create(ctx context.Context, registration *domain.ClassRegistration) error
	GetByID(ctx context.Context, id int64) (*domain.ClassRegistration, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.ClassRegistration, error)
	GetByIDAndStudentForUpdate(ctx context.Context, regID, studentID int64) (*domain.ClassRegistration, error)
	Update(ctx context.Context, registration *domain.ClassRegistration) error
	Delete(ctx context.Context, id int64) error
	ListActiveByStudent(ctx context.Context, studentID int64, seasonIDs []int64, excludeRegID int64) ([]*domain.ClassRegistration, error)
	ListByBalanceForUpdate(ctx context.Context, balanceID int64) ([]*domain.ClassRegistration, error)
	CountActiveByBalance(ctx context.Context, balanceID, excludeRegID int64) (int64, error)
	ListByFamily(ctx context.Context, familyID int64) ([]*domain.ClassRegistration, error)
	ListBySeason(ctx context.Context, seasonID int64) ([]*domain.ClassRegistration, error)
}

type FamilyBalanceRepository interface {
	Create(ctx context.Context, balance *domain.FamilyBalance) error
	GetByID(ctx context.Context, id int64) (*domain.FamilyBalance, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.FamilyBalance, error)
	GetByFamilyAndIDForUpdate(ctx context.Context, familyID, balanceID int64) (*domain.FamilyBalance, error)
	GetPendingSlotForUpdate(ctx context.Context, familyID, seasonID int64) (*domain.FamilyBalance, error)
	FindReversalForUpdate(ctx context.Context, regID int64) (*domain.FamilyBalance, error)
	ListByAppliedIDForUpdate(ctx context.Context, appliedID int64) ([]*domain.FamilyBalance, error)
	SumByApplied(ctx context.Context, appliedID int64, typeID domain.BalanceType) (decimal.Decimal, error)
	SumAmountsByApplied(ctx context.Context, appliedID int64, typeID domain.BalanceType) (domain.Amounts, error)
	Update(ctx context.Context, balance *domain.FamilyBalance) error
	Delete(ctx context.Context, id int64) error
	ListByFamily(ctx context.Context, familyID int64) ([]*domain.FamilyBalance, error)
	EffectiveBalance(ctx context.Context, familyID, seasonID int64) (decimal.Decimal, error)
}

type RegChangeRequestRepository interface {
	Create(ctx context.Context, request *domain.RegChangeRequest) error
	GetByID(ctx context.Context, id int64) (*domain.RegChangeRequest, error)
	GetForUpdate(ctx context.Context, requestID, familyID int64) (*domain.RegChangeRequest, error)
	HasPending(ctx context.Context, regID int64) (bool, error)
	Update(ctx context.Context, request *domain.RegChangeRequest) error
}

type BalanceAuditRepository interface {
	Create(ctx context.Context, audit *domain.BalanceAudit) error
	ListByBalance(ctx context.Context, balanceID int64) ([]*domain.BalanceAudit, error)
}

// Repositories is the set of stores bound to one database handle, either the
// pool or an open transaction.
type Repositories struct {
	Families       FamilyRepository
	Students       StudentRepository
	Seasons        SeasonRepository
	Arrangements   ArrangementRepository
	Registrations  ClassRegistrationRepository
	Balances       FamilyBalanceRepository
	ChangeRequests RegChangeRequestRepository
	Audits         BalanceAuditRepository
}

// UnitOfWork runs fn inside one database transaction. It commits when fn
// returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Reader() Repositories
}

// LedgerReporter runs read-only aggregate queries over familybalance.
type LedgerReporter interface {
	SeasonBalances(ctx context.Context, seasonID int64) ([]domain.FamilySeasonBalance, error)
}
