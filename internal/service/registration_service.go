package service

import (
	"context"
	"fmt"
	"time"

	"school-registration/internal/auth"
	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"
	serviceInterfaces "school-registration/internal/interfaces/service"
	"school-registration/pkg/logger"
	"school-registration/pkg/validator"

	"github.com/shopspring/decimal"
)

var _ serviceInterfaces.RegistrationService = (*RegistrationService)(nil)

type RegistrationService struct {
	core
}

func NewRegistrationService(uow interfaces.UnitOfWork, fees domain.FeeSchedule, opts ...Option) *RegistrationService {
	return &RegistrationService{core: newCore(uow, fees, opts...)}
}

// FamilyRegister enrolls a student of the family in the arrangement and
// returns the pending balance row that now carries the charge.
func (s *RegistrationService) FamilyRegister(ctx context.Context, arrangement *domain.Arrangement, season *domain.Season, familyID, studentID int64) (*domain.FamilyBalance, error) {
	caller, err := auth.RequireFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if arrangement == nil || season == nil || studentID <= 0 {
		return nil, domain.ErrInvalidInput
	}

	logger.Info("Processing registration of student %d in arrangement %d for family %d", studentID, arrangement.ArrangeID, familyID)

	now := s.clock()
	var balance *domain.FamilyBalance
	err = s.uow.Do(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		family, err := repos.Families.GetByIDForUpdate(ctx, familyID)
		if err != nil {
			return fmt.Errorf("failed to lock family: %w", err)
		}
		if family == nil {
			return fmt.Errorf("family %d: %w", familyID, domain.ErrFamilyNotFound)
		}

		triple, err := loadTriple(ctx, repos, arrangement.SeasonID)
		if err != nil {
			return err
		}

		ok, err := EnsureTimeline(ctx, repos.Registrations, triple, arrangement, serviceInterfaces.TimelineQuery{
			SeasonID:  arrangement.SeasonID,
			StudentID: studentID,
			ClassID:   arrangement.ClassID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrScheduleConflict
		}

		if arrangement.SeasonID != season.SeasonID {
			return domain.ErrSeasonMismatch
		}

		window := RegistrationWindow(now, arrangement, season)
		if window == domain.WindowClosed {
			return domain.ErrRegistrationClosed
		}

		student, err := repos.Students.GetByFamilyAndID(ctx, familyID, studentID)
		if err != nil {
			return err
		}
		if student == nil {
			return fmt.Errorf("student %d: %w", studentID, domain.ErrStudentNotFound)
		}

		scope, err := ArrangementScope(triple, arrangement)
		if err != nil {
			return err
		}
		price := TotalPrice(arrangement, scope)

		balance, err = s.ledger(repos, now).Charge(ctx, familyID, triple.Year.SeasonID, Charge{
			Scope:       scope,
			Price:       price,
			Window:      window,
			WaiveRegFee: arrangement.WaiveRegFee,
		})
		if err != nil {
			return err
		}

		registration := &domain.ClassRegistration{
			StudentID:       studentID,
			ArrangeID:       arrangement.ArrangeID,
			SeasonID:        arrangement.SeasonID,
			ClassID:         arrangement.ClassID,
			FamilyID:        familyID,
			StatusID:        domain.RegSubmitted,
			FamilyBalanceID: balance.BalanceID,
			ByAdmin:         caller.IsAdmin(),
			RegisterDate:    now,
			LastModify:      now,
		}
		if err := repos.Registrations.Create(ctx, registration); err != nil {
			return fmt.Errorf("failed to create registration: %w", err)
		}

		logger.WithFields(map[string]interface{}{
			"reg_id":     registration.RegID,
			"balance_id": balance.BalanceID,
			"window":     window.String(),
			"scope":      scope.String(),
		}).Info("Registration submitted")
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.revalidate(ctx,
		SemesterRegistrationsPath(season.SeasonID),
		FamilyRegistrationsPath(familyID),
		FamilyBalancesPath(familyID),
	)
	return balance, nil
}

// RegisterForArrangement resolves the arrangement and its season, then
// registers the student.
func (s *RegistrationService) RegisterForArrangement(ctx context.Context, familyID int64, req *serviceInterfaces.RegisterRequest) (*domain.FamilyBalance, error) {
	if err := validator.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	reader := s.uow.Reader()
	arrangement, err := reader.Arrangements.GetByID(ctx, req.ArrangeID)
	if err != nil {
		return nil, err
	}
	if arrangement == nil {
		return nil, fmt.Errorf("arrangement %d: %w", req.ArrangeID, domain.ErrArrangementNotFound)
	}
	season, err := reader.Seasons.GetByID(ctx, arrangement.SeasonID)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, fmt.Errorf("season %d: %w", arrangement.SeasonID, domain.ErrSeasonNotFound)
	}

	return s.FamilyRegister(ctx, arrangement, season, familyID, req.StudentID)
}

// AdminDropRegistration cancels a registration. An unpaid one is deleted and
// its charge zeroed by a single processed row; a paid one becomes a dropout
// with a pending reversal and a processed refund behind it.
func (s *RegistrationService) AdminDropRegistration(ctx context.Context, regID, studentID int64, override bool) error {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return err
	}

	now := s.clock()
	var dropped *domain.ClassRegistration
	err := s.uow.Do(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		reg, err := repos.Registrations.GetByIDAndStudentForUpdate(ctx, regID, studentID)
		if err != nil {
			return err
		}
		if reg == nil {
			return fmt.Errorf("registration %d: %w", regID, domain.ErrRegistrationNotFound)
		}
		if !reg.IsActive() {
			return fmt.Errorf("registration %d is %s: %w", regID, reg.StatusID, domain.ErrInvalidState)
		}

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
		dropped = reg

		if reg.StatusID == domain.RegSubmitted {
			return dropSubmitted(ctx, repos, s.ledger(repos, now), reg, plan)
		}

		if !CanDrop(now, plan.deadline) && !override {
			return domain.ErrDropWindowClosed
		}
		_, err = dropRegistered(ctx, repos, s.ledger(repos, now), now, reg, plan, "dropped by admin")
		return err
	})
	if err != nil {
		return err
	}

	logger.Info("Dropped registration %d for student %d", regID, studentID)
	s.revalidate(ctx,
		SemesterRegistrationsPath(dropped.SeasonID),
		FamilyRegistrationsPath(dropped.FamilyID),
		FamilyBalancesPath(dropped.FamilyID),
	)
	return nil
}

// dropPlan is how a drop of one registration is booked.
type dropPlan struct {
	status   domain.RegStatus
	price    decimal.Decimal
	charged  decimal.Decimal
	deadline *domain.Season
}

// planDrop picks the dropout status and refunded price. A year class dropped
// after the fall term ended only gives back the spring half.
func planDrop(now time.Time, triple *domain.SeasonTriple, arrangement *domain.Arrangement) (dropPlan, error) {
	scope, err := ArrangementScope(triple, arrangement)
	if err != nil {
		return dropPlan{}, err
	}

	charged := TotalPrice(arrangement, scope)
	plan := dropPlan{
		status:   domain.RegDropout,
		price:    charged,
		charged:  charged,
		deadline: triple.Season(scope),
	}
	if scope == domain.ScopeYear && triple.Fall != nil && triple.Spring != nil &&
		!triple.Fall.EndDate.IsZero() && now.After(triple.Fall.EndDate) {
		plan.status = domain.RegDropoutSpring
		plan.price = TotalPrice(arrangement, domain.ScopeSpring)
		plan.deadline = triple.Spring
	}
	return plan, nil
}

// reversedAmounts is the part of original given back for one registration.
// One-off fees go back only with the last active class on the row.
func reversedAmounts(ctx context.Context, repos interfaces.Repositories, original *domain.FamilyBalance, reg *domain.ClassRegistration, plan dropPlan) (domain.Amounts, error) {
	amounts := domain.Amounts{Tuition: plan.price}
	if plan.status == domain.RegDropoutSpring {
		return amounts, nil
	}

	remaining, err := repos.Registrations.CountActiveByBalance(ctx, original.BalanceID, reg.RegID)
	if err != nil {
		return domain.Amounts{}, err
	}
	if remaining == 0 {
		amounts.RegFee = original.RegFee
		amounts.LateRegFee = original.LateRegFee
		amounts.EarlyRegDiscount = original.EarlyRegDiscount
	}
	return amounts, nil
}

func lockFundingBalance(ctx context.Context, repos interfaces.Repositories, reg *domain.ClassRegistration) (*domain.FamilyBalance, error) {
	original, err := repos.Balances.GetByIDForUpdate(ctx, reg.FamilyBalanceID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, fmt.Errorf("balance %d of registration %d: %w", reg.FamilyBalanceID, reg.RegID, domain.ErrBalanceNotFound)
	}
	return original, nil
}

func dropSubmitted(ctx context.Context, repos interfaces.Repositories, ledger *Ledger, reg *domain.ClassRegistration, plan dropPlan) error {
	original, err := lockFundingBalance(ctx, repos, reg)
	if err != nil {
		return err
	}
	// nothing was used yet, so the whole charge goes back
	plan = dropPlan{status: domain.RegDropout, price: plan.charged, charged: plan.charged}
	amounts, err := reversedAmounts(ctx, repos, original, reg, plan)
	if err != nil {
		return err
	}

	if err := repos.Registrations.Delete(ctx, reg.RegID); err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	_, err = ledger.Reverse(ctx, original, reg.RegID, amounts, domain.BalanceProcessed,
		fmt.Sprintf("cancel unpaid registration %d", reg.RegID))
	return err
}

// dropRegistered marks a paid registration as dropped and writes the
// reversal and refund rows. It returns the reversal.
func dropRegistered(ctx context.Context, repos interfaces.Repositories, ledger *Ledger, now time.Time, reg *domain.ClassRegistration, plan dropPlan, note string) (*domain.FamilyBalance, error) {
	original, err := lockFundingBalance(ctx, repos, reg)
	if err != nil {
		return nil, err
	}
	amounts, err := reversedAmounts(ctx, repos, original, reg, plan)
	if err != nil {
		return nil, err
	}

	reg.PreviousStatusID = reg.StatusID
	reg.StatusID = plan.status
	reg.ByAdmin = true
	reg.LastModify = now
	reg.Notes = appendNote(reg.Notes, fmt.Sprintf("%s on %s", note, now.Format("2006-01-02")))
	if err := repos.Registrations.Update(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to update registration: %w", err)
	}

	reversal, err := ledger.Reverse(ctx, original, reg.RegID, amounts, domain.BalancePending,
		fmt.Sprintf("drop of registration %d", reg.RegID))
	if err != nil {
		return nil, err
	}
	if _, err := ledger.Refund(ctx, reversal); err != nil {
		return nil, err
	}
	return reversal, nil
}

func (s *RegistrationService) ListFamilyRegistrations(ctx context.Context, familyID int64) ([]*domain.ClassRegistration, error) {
	if _, err := auth.RequireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	return s.uow.Reader().Registrations.ListByFamily(ctx, familyID)
}

func (s *RegistrationService) ListSeasonRegistrations(ctx context.Context, seasonID int64) ([]*domain.ClassRegistration, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.uow.Reader().Registrations.ListBySeason(ctx, seasonID)
}

func (s *RegistrationService) ListFamilyBalances(ctx context.Context, familyID int64) ([]*domain.FamilyBalance, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.uow.Reader().Balances.ListByFamily(ctx, familyID)
}

// EffectiveBalance sums the family's ledger for the cycle containing seasonID.
func (s *RegistrationService) EffectiveBalance(ctx context.Context, familyID, seasonID int64) (decimal.Decimal, error) {
	if _, err := auth.RequireFamily(ctx, familyID); err != nil {
		return decimal.Zero, err
	}
	reader := s.uow.Reader()
	triple, err := loadTriple(ctx, reader, seasonID)
	if err != nil {
		return decimal.Zero, err
	}
	return reader.Balances.EffectiveBalance(ctx, familyID, triple.Year.SeasonID)
}
