package service

import (
	"context"
	"fmt"

	"school-registration/internal/auth"
	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"
	serviceInterfaces "school-registration/internal/interfaces/service"
	"school-registration/pkg/logger"
	"school-registration/pkg/validator"
)

var _ serviceInterfaces.PaymentService = (*PaymentService)(nil)

type PaymentService struct {
	core
}

func NewPaymentService(uow interfaces.UnitOfWork, fees domain.FeeSchedule, opts ...Option) *PaymentService {
	return &PaymentService{core: newCore(uow, fees, opts...)}
}

// ApplyCheck records a check against a pending balance. When it covers the
// whole charge, every submitted registration funded by the balance becomes
// registered.
func (s *PaymentService) ApplyCheck(ctx context.Context, payment *serviceInterfaces.CheckPayment, familyID int64) (*serviceInterfaces.CheckResult, error) {
	if _, err := auth.RequireRole(ctx, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := validator.ValidateStruct(payment); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !payment.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}

	now := s.clock()
	result := &serviceInterfaces.CheckResult{RegisteredRegIDs: []int64{}}
	paths := []string{FamilyBalancesPath(familyID), FamilyRegistrationsPath(familyID)}
	seen := map[int64]bool{}
	err := s.uow.Do(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		original, err := repos.Balances.GetByFamilyAndIDForUpdate(ctx, familyID, payment.BalanceID)
		if err != nil {
			return err
		}
		if original == nil {
			return fmt.Errorf("balance %d: %w", payment.BalanceID, domain.ErrBalanceNotFound)
		}
		if original.StatusID != domain.BalancePending {
			return fmt.Errorf("balance %d: %w", original.BalanceID, domain.ErrInvalidState)
		}

		ledger := s.ledger(repos, now)
		charge, err := ledger.ComputedCharge(ctx, original)
		if err != nil {
			return err
		}

		result.Payment, err = ledger.Pay(ctx, original, payment.CheckNo, payment.Amount, payment.PaidDate, payment.Note)
		if err != nil {
			return err
		}

		result.FullPayment = charge.Sub(payment.Amount).LessThan(domain.PaymentTolerance)
		if !result.FullPayment {
			logger.WithField("balance_id", original.BalanceID).
				Infof("Partial payment of %s against charge of %s, registrations unchanged", payment.Amount, charge)
			return nil
		}

		registrations, err := repos.Registrations.ListByBalanceForUpdate(ctx, original.BalanceID)
		if err != nil {
			return err
		}
		for _, reg := range registrations {
			if reg.StatusID != domain.RegSubmitted {
				continue
			}
			reg.PreviousStatusID = reg.StatusID
			reg.StatusID = domain.RegRegistered
			reg.LastModify = now
			if err := repos.Registrations.Update(ctx, reg); err != nil {
				return fmt.Errorf("failed to register %d: %w", reg.RegID, err)
			}
			result.RegisteredRegIDs = append(result.RegisteredRegIDs, reg.RegID)
			if !seen[reg.SeasonID] {
				seen[reg.SeasonID] = true
				paths = append(paths, SemesterRegistrationsPath(reg.SeasonID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Applied check %s of %s to balance %d", payment.CheckNo, payment.Amount, payment.BalanceID)
	s.revalidate(ctx, paths...)
	return result, nil
}

// RemoveBalance deletes a ledger row as an administrative correction. The
// deleted contents are kept in balanceaudit.
func (s *PaymentService) RemoveBalance(ctx context.Context, balanceID int64) error {
	caller, err := auth.RequireRole(ctx, auth.RoleAdmin)
	if err != nil {
		return err
	}

	now := s.clock()
	var familyID int64
	err = s.uow.Do(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		row, err := repos.Balances.GetByIDForUpdate(ctx, balanceID)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("balance %d: %w", balanceID, domain.ErrBalanceNotFound)
		}
		familyID = row.FamilyID
		_, err = s.ledger(repos, now).Remove(ctx, row, caller.UserID)
		return err
	})
	if err != nil {
		return err
	}

	logger.Warn("Balance %d removed by %s", balanceID, caller.UserID)
	s.revalidate(ctx, FamilyBalancesPath(familyID))
	return nil
}
