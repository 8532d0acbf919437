package service

import (
	"context"
	"fmt"
	"time"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"
	"school-registration/pkg/logger"
)

// Cached views refreshed after ledger writes.
func SemesterRegistrationsPath(seasonID int64) string {
	return fmt.Sprintf("/api/v1/admin/seasons/%d/registrations", seasonID)
}

func FamilyRegistrationsPath(familyID int64) string {
	return fmt.Sprintf("/api/v1/families/%d/registrations", familyID)
}

func FamilyBalancesPath(familyID int64) string {
	return fmt.Sprintf("/api/v1/admin/families/%d/balances", familyID)
}

type Option func(*core)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *core) {
		c.now = now
	}
}

// WithRevalidator sets the hook fired after each committed write.
func WithRevalidator(r interfaces.Revalidator) Option {
	return func(c *core) {
		if r != nil {
			c.revalidator = r
		}
	}
}

type noopRevalidator struct{}

func (noopRevalidator) Revalidate(context.Context, ...string) error { return nil }

// core carries what every mutator needs: the transaction runner, the fee
// schedule, the clock and the post-commit hook.
type core struct {
	uow         interfaces.UnitOfWork
	fees        domain.FeeSchedule
	now         func() time.Time
	revalidator interfaces.Revalidator
}

func newCore(uow interfaces.UnitOfWork, fees domain.FeeSchedule, opts ...Option) core {
	c := core{
		uow:         uow,
		fees:        fees,
		now:         time.Now,
		revalidator: noopRevalidator{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c *core) clock() time.Time {
	return c.now().UTC()
}

func (c *core) ledger(repos interfaces.Repositories, now time.Time) *Ledger {
	return NewLedger(repos, c.fees, now)
}

// revalidate runs after commit. A failure leaves a stale view until its TTL
// runs out, so it is logged and not returned.
func (c *core) revalidate(ctx context.Context, paths ...string) {
	if err := c.revalidator.Revalidate(ctx, paths...); err != nil {
		logger.WithField("paths", paths).Warnf("Failed to revalidate cached views: %v", err)
	}
}

// loadArrangement finds the registration's arrangement, falling back to the
// (class, season) pair when the id no longer resolves.
func loadArrangement(ctx context.Context, repos interfaces.Repositories, reg *domain.ClassRegistration) (*domain.Arrangement, error) {
	arrangement, err := repos.Arrangements.GetByID(ctx, reg.ArrangeID)
	if err != nil {
		return nil, err
	}
	if arrangement == nil {
		arrangement, err = repos.Arrangements.GetByClassAndSeason(ctx, reg.ClassID, reg.SeasonID)
		if err != nil {
			return nil, err
		}
	}
	if arrangement == nil {
		return nil, fmt.Errorf("registration %d: %w", reg.RegID, domain.ErrArrangementNotFound)
	}
	return arrangement, nil
}

func loadTriple(ctx context.Context, repos interfaces.Repositories, seasonID int64) (*domain.SeasonTriple, error) {
	triple, err := repos.Seasons.GetTriple(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if triple == nil {
		return nil, fmt.Errorf("season %d: %w", seasonID, domain.ErrSeasonNotFound)
	}
	return triple, nil
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "; " + note
}
