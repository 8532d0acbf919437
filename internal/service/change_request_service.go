package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"school-registration/internal/auth"
	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"
	serviceInterfaces "school-registration/internal/interfaces/service"
	"school-registration/pkg/logger"
	"school-registration/pkg/validator"

	"github.com/sirupsen/logrus"
)

var _ serviceInterfaces.ChangeRequestService = (*ChangeRequestService)(nil)

type ChangeRequestService struct {
	core
}

func NewChangeRequestService(uow interfaces.UnitOfWork, fees domain.FeeSchedule, opts ...Option) *ChangeRequestService {
	return &ChangeRequestService{core: newCore(uow, fees, opts...)}
}

// FamilySubmitRequest opens a drop or transfer request for a registered class.
func (s *ChangeRequestService) FamilySubmitRequest(ctx context.Context, familyID int64, input *serviceInterfaces.ChangeRequestInput) (*domain.RegChangeRequest, error) {
	if _, err := auth.RequireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := s.clock()
	var request *domain.RegChangeRequest
	err := s.uow.Do(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		reg, err := repos.Registrations.GetByIDForUpdate(ctx, input.RegID)
		if err != nil {
			return err
		}
		if reg == nil || reg.FamilyID != familyID {
			return fmt.Errorf("registration %d: %w", input.RegID, domain.ErrRegistrationNotFound)
		}
		if reg.StatusID != domain.RegRegistered {
			return fmt.Errorf("registration %d is %s: %w", reg.RegID, reg.StatusID, domain.ErrInvalidState)
		}

		pending, err := repos.ChangeRequests.HasPending(ctx, reg.RegID)
		if err != nil {
			return err
		}
		if pending {
			return domain.ErrDuplicateRequest
		}

		if input.TargetArrangeID != 0 {
			if input.TargetArrangeID == reg.ArrangeID {
				return fmt.Errorf("transfer into the same class: %w", domain.ErrInvalidInput)
			}
			if _, err := transferTarget(ctx, repos, reg, input.TargetArrangeID); err != nil {
				return err
			}
		}

		request = &domain.RegChangeRequest{
			RegID:          reg.RegID,
			FamilyID:       familyID,
			StudentID:      reg.StudentID,
			SeasonID:       reg.SeasonID,
			ArrangeID:      input.TargetArrangeID,
			ReqStatusID:    domain.ReqPending,
			OriRegStatusID: reg.StatusID,
			Reason:         input.Reason,
			SubmitDate:     now,
			LastModify:     now,
		}
		return repos.ChangeRequests.Create(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Change request %d submitted for registration %d", request.RequestID, request.RegID)
	s.revalidate(ctx, FamilyRegistrationsPath(familyID))
	return request, nil
}

// transferTarget loads the arrangement a registration would move into. It
// must run in the same cycle as the registration.
func transferTarget(ctx context.Context, repos interfaces.Repositories, reg *domain.ClassRegistration, arrangeID int64) (*domain.Arrangement, error) {
	target, err := repos.Arrangements.GetByID(ctx, arrangeID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("arrangement %d: %w", arrangeID, domain.ErrArrangementNotFound)
	}
	triple, err := loadTriple(ctx, repos, reg.SeasonID)
	if err != nil {
		return nil, err
	}
	if _, ok := triple.ScopeOf(target.SeasonID); !ok {
		return nil, fmt.Errorf("arrangement %d: %w", arrangeID, domain.ErrSeasonMismatch)
	}
	return target, nil
}

func lockRequest(ctx context.Context, repos interfaces.Repositories, requestID, familyID int64, expected domain.ReqStatus) (*domain.RegChangeRequest, error) {
	request, err := repos.ChangeRequests.GetForUpdate(ctx, requestID, familyID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, fmt.Errorf("request %d: %w", requestID, domain.ErrRequestNotFound)
	}
	if request.ReqStatusID != expected {
		return nil, fmt.Errorf("request %d is %s, expected %s: %w", requestID, request.ReqStatusID, expected, domain.ErrStatusConflict)
	}
	return request, nil
}

// AdminApproveRequest carries out a pending drop or transfer.
func (s *ChangeRequestService) AdminApproveRequest(ctx context.Context, requestID, familyID int64) (*domain.RegChangeRequest, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return nil, err
	}

	now := s.clock()
	var (
		request   *domain.RegChangeRequest
		seasonIDs []int64
	)
	err := s.uow.Do(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		var err error
		request, err = lockRequest(ctx, repos, requestID, familyID, domain.ReqPending)
		if err != nil {
			return err
		}

		reg, err := repos.Registrations.GetByIDForUpdate(ctx, request.RegID)
		if err != nil {
			return err
		}
		if reg == nil {
			return fmt.Errorf("registration %d: %w", request.RegID, domain.ErrRegistrationNotFound)
		}
		if reg.StatusID != domain.RegRegistered {
			return fmt.Errorf("registration %d is %s: %w", reg.RegID, reg.StatusID, domain.ErrInvalidState)
		}
		seasonIDs = []int64{reg.SeasonID}

		if request.ArrangeID == 0 {
			return s.approveDrop(ctx, repos, now, request, reg)
		}
		targetSeasonID, err := s.approveTransfer(ctx, repos, now, request, reg)
		if err != nil {
			return err
		}
		seasonIDs = append(seasonIDs, targetSeasonID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"request_id":     request.RequestID,
		"transfer":       request.IsTransfer(),
		"new_balance_id": request.NewBalanceID,
	}).Info("Change request approved")

	s.revalidate(ctx, changePaths(familyID, seasonIDs)...)
	return request, nil
}

func (s *ChangeRequestService) approveDrop(ctx context.Context, repos interfaces.Repositories, now time.Time, request *domain.RegChangeRequest, reg *domain.ClassRegistration) error {
	arrangement, err := loadArrangement(ctx, repos, reg)
	if err != nil {
		return err
	}
	triple, err := loadTriple(ctx, repos, reg.SeasonID)
	if err != nil {
		return err
	}
	plan, err := planDrop(now, triple, arrangement)
	if err != nil {
		return err
	}

	reversal, err := dropRegistered(ctx, repos, s.ledger(repos, now), now, reg, plan,
		fmt.Sprintf("dropped by request %d", request.RequestID))
	if err != nil {
		return err
	}

	request.OriRegStatusID = reg.PreviousStatusID
	request.RegStatusID = reg.StatusID
	request.NewBalanceID = reversal.BalanceID
	return s.closeRequest(ctx, repos, now, request, domain.ReqApproved, "approved")
}

func (s *ChangeRequestService) approveTransfer(ctx context.Context, repos interfaces.Repositories, now time.Time, request *domain.RegChangeRequest, reg *domain.ClassRegistration) (int64, error) {
	current, err := loadArrangement(ctx, repos, reg)
	if err != nil {
		return 0, err
	}
	target, err := transferTarget(ctx, repos, reg, request.ArrangeID)
	if err != nil {
		return 0, err
	}
	triple, err := loadTriple(ctx, repos, reg.SeasonID)
	if err != nil {
		return 0, err
	}

	ok, err := EnsureTimeline(ctx, repos.Registrations, triple, target, serviceInterfaces.TimelineQuery{
		SeasonID:     target.SeasonID,
		StudentID:    reg.StudentID,
		ClassID:      target.ClassID,
		ExcludeRegID: reg.RegID,
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrScheduleConflict
	}

	currentScope, err := ArrangementScope(triple, current)
	if err != nil {
		return 0, err
	}
	targetScope, err := ArrangementScope(triple, target)
	if err != nil {
		return 0, err
	}

	moved := &domain.ClassRegistration{
		StudentID:       reg.StudentID,
		ArrangeID:       target.ArrangeID,
		SeasonID:        target.SeasonID,
		ClassID:         target.ClassID,
		FamilyID:        reg.FamilyID,
		StatusID:        domain.RegRegistered,
		FamilyBalanceID: reg.FamilyBalanceID,
		ByAdmin:         true,
		RegisterDate:    now,
		LastModify:      now,
		Notes:           fmt.Sprintf("transferred from registration %d", reg.RegID),
	}
	if err := repos.Registrations.Create(ctx, moved); err != nil {
		return 0, fmt.Errorf("failed to create registration: %w", err)
	}

	diff := TotalPrice(target, targetScope).Sub(TotalPrice(current, currentScope))
	if !diff.IsZero() {
		original, err := lockFundingBalance(ctx, repos, reg)
		if err != nil {
			return 0, err
		}
		adjustment, err := s.ledger(repos, now).Adjust(ctx, original, moved.RegID, diff,
			fmt.Sprintf("transfer of registration %d to %d", reg.RegID, moved.RegID))
		if err != nil {
			return 0, err
		}
		request.NewBalanceID = adjustment.BalanceID
	}

	reg.PreviousStatusID = reg.StatusID
	reg.StatusID = domain.RegTransferred
	reg.LastModify = now
	reg.Notes = appendNote(reg.Notes, fmt.Sprintf("transferred to registration %d", moved.RegID))
	if err := repos.Registrations.Update(ctx, reg); err != nil {
		return 0, fmt.Errorf("failed to update registration: %w", err)
	}

	request.OriRegStatusID = domain.RegRegistered
	request.RegStatusID = domain.RegTransferred
	request.AppliedID = reg.RegID
	request.RegID = moved.RegID
	return target.SeasonID, s.closeRequest(ctx, repos, now, request, domain.ReqApproved, "approved")
}

func (s *ChangeRequestService) closeRequest(ctx context.Context, repos interfaces.Repositories, now time.Time, request *domain.RegChangeRequest, status domain.ReqStatus, memo string) error {
	processed := now
	request.ReqStatusID = status
	request.AdminMemo = memo
	request.ProcessDate = &processed
	request.LastModify = now
	return repos.ChangeRequests.Update(ctx, request)
}

// AdminRejectRequest closes a pending request without touching the
// registration or the ledger.
func (s *ChangeRequestService) AdminRejectRequest(ctx context.Context, requestID, familyID int64, memo string) (*domain.RegChangeRequest, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return nil, err
	}

	now := s.clock()
	var request *domain.RegChangeRequest
	err := s.uow.Do(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		var err error
		request, err = lockRequest(ctx, repos, requestID, familyID, domain.ReqPending)
		if err != nil {
			return err
		}
		return s.closeRequest(ctx, repos, now, request, domain.ReqRejected, memo)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Change request %d rejected", requestID)
	s.revalidate(ctx, FamilyRegistrationsPath(familyID))
	return request, nil
}

// AdminUndoRequest returns an approved or rejected request to pending and
// reverses what the approval did. Failures roll everything back; they are
// logged and reported in the outcome rather than returned.
func (s *ChangeRequestService) AdminUndoRequest(ctx context.Context, requestID, familyID int64, expected domain.ReqStatus) serviceInterfaces.UndoOutcome {
	outcome := serviceInterfaces.UndoOutcome{RequestID: requestID}

	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		outcome.Err = err
		return outcome
	}
	if expected != domain.ReqApproved && expected != domain.ReqRejected {
		outcome.Err = fmt.Errorf("cannot undo a %s request: %w", expected, domain.ErrInvalidInput)
		return outcome
	}

	now := s.clock()
	var seasonIDs []int64
	err := s.uow.Do(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		request, err := lockRequest(ctx, repos, requestID, familyID, expected)
		if err != nil {
			return err
		}
		seasonIDs = []int64{request.SeasonID}

		if expected == domain.ReqApproved {
			if request.IsTransfer() {
				var movedSeasonID int64
				movedSeasonID, err = s.undoTransfer(ctx, repos, now, request)
				seasonIDs = append(seasonIDs, movedSeasonID)
			} else {
				err = s.undoDrop(ctx, repos, now, request)
			}
			if err != nil {
				return err
			}
		}

		closed := now
		request.ReqStatusID = domain.ReqPending
		request.AdminMemo = "undo"
		request.ProcessDate = &closed
		request.LastModify = now
		return repos.ChangeRequests.Update(ctx, request)
	})
	if err != nil {
		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"family_id":  familyID,
			"expected":   expected.String(),
		})
		var de *domain.Error
		if errors.As(err, &de) {
			entry.Warnf("Undo of change request rejected: %v", err)
		} else {
			entry.Errorf("Undo of change request failed: %v", err)
		}
		outcome.Err = err
		return outcome
	}

	outcome.Undone = true
	logger.Info("Change request %d returned to pending", requestID)
	s.revalidate(ctx, changePaths(familyID, seasonIDs)...)
	return outcome
}

func (s *ChangeRequestService) undoDrop(ctx context.Context, repos interfaces.Repositories, now time.Time, request *domain.RegChangeRequest) error {
	reg, err := repos.Registrations.GetByIDForUpdate(ctx, request.RegID)
	if err != nil {
		return err
	}
	if reg == nil {
		return fmt.Errorf("registration %d: %w", request.RegID, domain.ErrRegistrationNotFound)
	}
	if !reg.StatusID.IsDropout() {
		return fmt.Errorf("registration %d is %s: %w", reg.RegID, reg.StatusID, domain.ErrStatusConflict)
	}

	reg.PreviousStatusID = reg.StatusID
	reg.StatusID = domain.RegRegistered
	reg.LastModify = now
	reg.Notes = appendNote(reg.Notes, fmt.Sprintf("drop undone on %s", now.Format("2006-01-02")))
	if err := repos.Registrations.Update(ctx, reg); err != nil {
		return fmt.Errorf("failed to restore registration: %w", err)
	}

	balanceID := request.NewBalanceID
	if balanceID == 0 {
		reversal, err := repos.Balances.FindReversalForUpdate(ctx, reg.RegID)
		if err != nil {
			return err
		}
		if reversal == nil {
			return fmt.Errorf("reversal of registration %d: %w", reg.RegID, domain.ErrBalanceNotFound)
		}
		balanceID = reversal.BalanceID
	}
	if err := s.ledger(repos, now).Unwind(ctx, balanceID); err != nil {
		return err
	}

	request.NewBalanceID = 0
	request.RegStatusID = 0
	return nil
}

func (s *ChangeRequestService) undoTransfer(ctx context.Context, repos interfaces.Repositories, now time.Time, request *domain.RegChangeRequest) (int64, error) {
	moved, err := repos.Registrations.GetByIDForUpdate(ctx, request.RegID)
	if err != nil {
		return 0, err
	}
	if moved == nil {
		return 0, fmt.Errorf("registration %d: %w", request.RegID, domain.ErrRegistrationNotFound)
	}
	if moved.StatusID != domain.RegRegistered {
		return 0, fmt.Errorf("registration %d is %s: %w", moved.RegID, moved.StatusID, domain.ErrStatusConflict)
	}

	if request.NewBalanceID != 0 {
		if err := s.ledger(repos, now).Unwind(ctx, request.NewBalanceID); err != nil {
			return 0, err
		}
	}

	original, err := repos.Registrations.GetByIDForUpdate(ctx, request.AppliedID)
	if err != nil {
		return 0, err
	}
	if original == nil {
		return 0, fmt.Errorf("registration %d: %w", request.AppliedID, domain.ErrRegistrationNotFound)
	}
	original.PreviousStatusID = original.StatusID
	original.StatusID = request.OriRegStatusID
	original.LastModify = now
	original.Notes = appendNote(original.Notes, fmt.Sprintf("transfer undone on %s", now.Format("2006-01-02")))
	if err := repos.Registrations.Update(ctx, original); err != nil {
		return 0, fmt.Errorf("failed to restore registration: %w", err)
	}

	if err := repos.Registrations.Delete(ctx, moved.RegID); err != nil {
		return 0, fmt.Errorf("failed to delete registration: %w", err)
	}

	request.RegID = request.AppliedID
	request.AppliedID = 0
	request.NewBalanceID = 0
	request.RegStatusID = 0
	return moved.SeasonID, nil
}

// changePaths lists the views touched by approving or undoing a request.
func changePaths(familyID int64, seasonIDs []int64) []string {
	paths := []string{FamilyRegistrationsPath(familyID), FamilyBalancesPath(familyID)}
	seen := map[int64]bool{}
	for _, id := range seasonIDs {
		if id != 0 && !seen[id] {
			seen[id] = true
			paths = append(paths, SemesterRegistrationsPath(id))
		}
	}
	return paths
}
