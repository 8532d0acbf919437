package repository

import (
	"context"

	interfaces "school-registration/internal/interfaces/infrastructure"

	"gorm.io/gorm"
)

var _ interfaces.UnitOfWork = (*UnitOfWork)(nil)

// NewRepositories binds every repository to db, which may be a transaction.
func NewRepositories(db *gorm.DB) interfaces.Repositories {
	return interfaces.Repositories{
		Families:       NewFamilyRepository(db),
		Students:       NewStudentRepository(db),
		Seasons:        NewSeasonRepository(db),
		Arrangements:   NewArrangementRepository(db),
		Registrations:  NewRegistrationRepository(db),
		Balances:       NewBalanceRepository(db),
		ChangeRequests: NewChangeRequestRepository(db),
		Audits:         NewAuditRepository(db),
	}
}

type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos interfaces.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}

func (u *UnitOfWork) Reader() interfaces.Repositories {
	return NewRepositories(u.db)
}
