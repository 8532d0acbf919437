package service

import (
	"context"
	"fmt"
	"time"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"
	serviceInterfaces "school-registration/internal/interfaces/service"

	"github.com/shopspring/decimal"
)

// ArrangementScope classifies the arrangement's season within its cycle.
func ArrangementScope(triple *domain.SeasonTriple, arrangement *domain.Arrangement) (domain.Scope, error) {
	if triple == nil || arrangement == nil {
		return 0, domain.ErrInvalidInput
	}
	scope, ok := triple.ScopeOf(arrangement.SeasonID)
	if !ok {
		return 0, fmt.Errorf("arrangement %d season %d not in cycle %d: %w",
			arrangement.ArrangeID, arrangement.SeasonID, triple.Year.SeasonID, domain.ErrSeasonMismatch)
	}
	return scope, nil
}

// TotalPrice is tuition plus special fee: whole-year columns for a year
// class, half-year columns for a fall or spring class.
func TotalPrice(arrangement *domain.Arrangement, scope domain.Scope) decimal.Decimal {
	switch scope {
	case domain.ScopeYear:
		return arrangement.TuitionW.Add(arrangement.SpecialFeeW)
	case domain.ScopeFall, domain.ScopeSpring:
		return arrangement.TuitionH.Add(arrangement.SpecialFeeH)
	}
	return decimal.Zero
}

// RegistrationWindow places now among the season's registration dates.
// A zero date means the season has no such window.
func RegistrationWindow(now time.Time, arrangement *domain.Arrangement, season *domain.Season) domain.Window {
	if arrangement.CloseRegistration || season.Status != domain.SeasonActive {
		return domain.WindowClosed
	}

	thresholds := []struct {
		at     time.Time
		window domain.Window
	}{
		{season.EarlyRegDate, domain.WindowEarly},
		{season.NormalRegDate, domain.WindowNormal},
		{season.LateRegDate1, domain.WindowLate1},
		{season.LateRegDate2, domain.WindowLate2},
		{season.CloseRegDate, domain.WindowClosed},
	}

	window := domain.WindowClosed
	for _, t := range thresholds {
		if t.at.IsZero() || now.Before(t.at) {
			continue
		}
		window = t.window
	}
	return window
}

// CanDrop reports whether families may still drop classes of the season.
func CanDrop(now time.Time, season *domain.Season) bool {
	return now.Before(season.CancelDeadline)
}

// SeedAmounts is the breakdown of a new pending charge.
func SeedAmounts(window domain.Window, fees domain.FeeSchedule, waiveRegFee bool, price decimal.Decimal) domain.Amounts {
	amounts := domain.Amounts{
		Tuition:          price,
		RegFee:           decimal.Zero,
		LateRegFee:       decimal.Zero,
		EarlyRegDiscount: decimal.Zero,
	}
	if !waiveRegFee {
		amounts.RegFee = fees.RegFee
	}
	switch window {
	case domain.WindowEarly:
		amounts.EarlyRegDiscount = fees.EarlyRegDiscount
	case domain.WindowLate1:
		amounts.LateRegFee = fees.LateRegFee1
	case domain.WindowLate2:
		amounts.LateRegFee = fees.LateRegFee2
	}
	return amounts
}

// EnsureTimeline reports false when the student already holds an active
// registration in an overlapping season for the same class or time slot.
func EnsureTimeline(
	ctx context.Context,
	registrations interfaces.ClassRegistrationRepository,
	triple *domain.SeasonTriple,
	arrangement *domain.Arrangement,
	q serviceInterfaces.TimelineQuery,
) (bool, error) {
	scope, ok := triple.ScopeOf(q.SeasonID)
	if !ok {
		return false, domain.ErrSeasonMismatch
	}

	active, err := registrations.ListActiveByStudent(ctx, q.StudentID, triple.Overlapping(scope), q.ExcludeRegID)
	if err != nil {
		return false, err
	}

	for _, reg := range active {
		if reg.ClassID == q.ClassID {
			return false, nil
		}
		if arrangement.TimeID != 0 && reg.Arrangement != nil && reg.Arrangement.TimeID == arrangement.TimeID {
			return false, nil
		}
	}
	return true, nil
}
