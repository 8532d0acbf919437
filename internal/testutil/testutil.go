// Package testutil builds sqlite-backed fixtures for package tests.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"school-registration/internal/auth"
	"school-registration/internal/config"
	domain "school-registration/internal/domain/registration"
	"school-registration/internal/infrastructure/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Now is the fixed clock used by fixtures: inside the normal registration
// window of the fall term and before its cancel deadline.
var Now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func Clock() time.Time { return Now }

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// NewDB opens a migrated sqlite database in a temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "school.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func AdminCtx() context.Context {
	return auth.WithCaller(context.Background(), auth.Caller{UserID: "admin-1", Role: auth.RoleAdmin})
}

func FamilyCtx(familyID int64) context.Context {
	return auth.WithCaller(context.Background(), auth.Caller{UserID: "family-user", Role: auth.RoleFamily, FamilyID: familyID})
}

func Fees() domain.FeeSchedule {
	return domain.FeeSchedule{
		RegFee:           decimal.RequireFromString("30"),
		EarlyRegDiscount: decimal.RequireFromString("10"),
		LateRegFee1:      decimal.RequireFromString("20"),
		LateRegFee2:      decimal.RequireFromString("40"),
	}
}

// School is a seeded cycle: one family with two students, the three seasons
// and a handful of arrangements.
type School struct {
	Family   *domain.Family
	Other    *domain.Family
	Alice    *domain.Student
	Bob      *domain.Student
	Stranger *domain.Student
	Year     *domain.Season
	Fall     *domain.Season
	Spring   *domain.Season

	// Chinese is a year class: 300 + 20 whole year, 160 + 10 per half.
	Chinese *domain.Arrangement
	// Math is a fall class at 120 + 0.
	Math *domain.Arrangement
	// Art is a fall class sharing Math's time slot, 80 + 5.
	Art *domain.Arrangement
	// Dance is a fall class at 150 with the registration fee waived.
	Dance *domain.Arrangement
	// Chess is a spring class at 90.
	Chess *domain.Arrangement
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func Seed(t *testing.T, db *gorm.DB) *School {
	t.Helper()
	s := &School{}

	s.Family = &domain.Family{UserID: "family-user", FatherLastName: "Li", Email: "li@example.com"}
	s.Other = &domain.Family{UserID: "other-user", FatherLastName: "Wang"}
	require.NoError(t, db.Create(s.Family).Error)
	require.NoError(t, db.Create(s.Other).Error)

	s.Alice = &domain.Student{FamilyID: s.Family.FamilyID, NameFirstEn: "Alice", Active: true}
	s.Bob = &domain.Student{FamilyID: s.Family.FamilyID, NameFirstEn: "Bob", Active: true}
	s.Stranger = &domain.Student{FamilyID: s.Other.FamilyID, NameFirstEn: "Zoe", Active: true}
	require.NoError(t, db.Create(s.Alice).Error)
	require.NoError(t, db.Create(s.Bob).Error)
	require.NoError(t, db.Create(s.Stranger).Error)

	fallWindow := func(season *domain.Season) {
		season.EarlyRegDate = day(2026, 6, 1)
		season.NormalRegDate = day(2026, 8, 1)
		season.LateRegDate1 = day(2026, 9, 10)
		season.LateRegDate2 = day(2026, 9, 20)
		season.CloseRegDate = day(2026, 10, 1)
		season.CancelDeadline = day(2026, 9, 30)
		season.Status = domain.SeasonActive
	}

	s.Year = &domain.Season{SeasonNameEn: "2026-2027", StartDate: day(2026, 9, 5), EndDate: day(2027, 6, 1)}
	fallWindow(s.Year)
	require.NoError(t, db.Create(s.Year).Error)

	s.Fall = &domain.Season{SeasonNameEn: "Fall 2026", BeginSeasonID: s.Year.SeasonID,
		StartDate: day(2026, 9, 5), EndDate: day(2027, 1, 20)}
	fallWindow(s.Fall)
	require.NoError(t, db.Create(s.Fall).Error)

	s.Spring = &domain.Season{SeasonNameEn: "Spring 2027", IsSpring: true, BeginSeasonID: s.Year.SeasonID,
		StartDate: day(2027, 2, 1), EndDate: day(2027, 6, 1),
		EarlyRegDate: day(2026, 6, 1), NormalRegDate: day(2026, 8, 1),
		LateRegDate1: day(2027, 1, 10), LateRegDate2: day(2027, 1, 20),
		CloseRegDate: day(2027, 2, 10), CancelDeadline: day(2027, 2, 28),
		Status: domain.SeasonActive}
	require.NoError(t, db.Create(s.Spring).Error)

	s.Fall.RelatedSeasonID = s.Spring.SeasonID
	s.Spring.RelatedSeasonID = s.Fall.SeasonID
	require.NoError(t, db.Save(s.Fall).Error)
	require.NoError(t, db.Save(s.Spring).Error)

	s.Chinese = &domain.Arrangement{SeasonID: s.Year.SeasonID, ClassID: 101, TimeID: 1,
		TuitionW: money("300"), SpecialFeeW: money("20"), TuitionH: money("160"), SpecialFeeH: money("10")}
	s.Math = &domain.Arrangement{SeasonID: s.Fall.SeasonID, ClassID: 201, TimeID: 2,
		TuitionH: money("120"), SpecialFeeH: money("0"), TuitionW: money("0"), SpecialFeeW: money("0")}
	s.Art = &domain.Arrangement{SeasonID: s.Fall.SeasonID, ClassID: 202, TimeID: 2,
		TuitionH: money("80"), SpecialFeeH: money("5"), TuitionW: money("0"), SpecialFeeW: money("0")}
	s.Dance = &domain.Arrangement{SeasonID: s.Fall.SeasonID, ClassID: 203, TimeID: 3, WaiveRegFee: true,
		TuitionH: money("150"), SpecialFeeH: money("0"), TuitionW: money("0"), SpecialFeeW: money("0")}
	s.Chess = &domain.Arrangement{SeasonID: s.Spring.SeasonID, ClassID: 301, TimeID: 4,
		TuitionH: money("90"), SpecialFeeH: money("0"), TuitionW: money("0"), SpecialFeeW: money("0")}
	for _, a := range []*domain.Arrangement{s.Chinese, s.Math, s.Art, s.Dance, s.Chess} {
		require.NoError(t, db.Create(a).Error)
	}

	return s
}

// Balances returns every ledger row of the family ordered by id.
func Balances(t *testing.T, db *gorm.DB, familyID int64) []domain.FamilyBalance {
	t.Helper()
	var rows []domain.FamilyBalance
	require.NoError(t, db.Where("familyid = ?", familyID).Order("balanceid ASC").Find(&rows).Error)
	return rows
}

func Registration(t *testing.T, db *gorm.DB, regID int64) *domain.ClassRegistration {
	t.Helper()
	var reg domain.ClassRegistration
	err := db.Where("regid = ?", regID).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	require.NoError(t, err)
	return &reg
}

func Registrations(t *testing.T, db *gorm.DB, familyID int64) []domain.ClassRegistration {
	t.Helper()
	var rows []domain.ClassRegistration
	require.NoError(t, db.Where("familyid = ?", familyID).Order("regid ASC").Find(&rows).Error)
	return rows
}

func Count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
