package repository

import (
	"context"
	"errors"
	"testing"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"
	"school-registration/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ledgerRow(familyID, seasonID, appliedID int64, typeID domain.BalanceType, status domain.BalanceStatus, total string) *domain.FamilyBalance {
	row := &domain.FamilyBalance{
		AppliedID: appliedID,
		FamilyID:  familyID,
		SeasonID:  seasonID,
		TypeID:    typeID,
		StatusID:  status,
	}
	row.SetAmounts(domain.Amounts{Tuition: money(total)})
	return row
}

func TestSeasonRepository_GetTriple(t *testing.T) {
	db := testutil.NewDB(t)
	s := testutil.Seed(t, db)
	repo := NewSeasonRepository(db)
	ctx := context.Background()

	for _, id := range []int64{s.Year.SeasonID, s.Fall.SeasonID, s.Spring.SeasonID} {
		triple, err := repo.GetTriple(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, triple)
		assert.Equal(t, s.Year.SeasonID, triple.Year.SeasonID)
		assert.Equal(t, s.Fall.SeasonID, triple.Fall.SeasonID)
		assert.Equal(t, s.Spring.SeasonID, triple.Spring.SeasonID)
	}

	triple, err := repo.GetTriple(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, triple)

	orphan := &domain.Season{SeasonNameEn: "orphan", BeginSeasonID: 998}
	require.NoError(t, db.Create(orphan).Error)
	_, err = repo.GetTriple(ctx, orphan.SeasonID)
	assert.ErrorIs(t, err, domain.ErrSeasonNotFound)
}

func TestSeasonRepository_GetActiveYear(t *testing.T) {
	db := testutil.NewDB(t)
	s := testutil.Seed(t, db)

	year, err := NewSeasonRepository(db).GetActiveYear(context.Background())
	require.NoError(t, err)
	require.NotNil(t, year)
	assert.Equal(t, s.Year.SeasonID, year.SeasonID)
}

func TestBalanceRepository_PendingSlot(t *testing.T) {
	db := testutil.NewDB(t)
	s := testutil.Seed(t, db)
	repo := NewBalanceRepository(db)
	ctx := context.Background()
	family, season := s.Family.FamilyID, s.Year.SeasonID

	slot, err := repo.GetPendingSlotForUpdate(ctx, family, season)
	require.NoError(t, err)
	assert.Nil(t, slot)

	paid := ledgerRow(family, season, 0, domain.BalanceTuition, domain.BalanceProcessed, "150")
	require.NoError(t, repo.Create(ctx, paid))
	adjustment := ledgerRow(family, season, paid.BalanceID, domain.BalanceAdjustment, domain.BalancePending, "30")
	require.NoError(t, repo.Create(ctx, adjustment))
	other := ledgerRow(s.Other.FamilyID, season, 0, domain.BalanceTuition, domain.BalancePending, "90")
	require.NoError(t, repo.Create(ctx, other))

	slot, err = repo.GetPendingSlotForUpdate(ctx, family, season)
	require.NoError(t, err)
	assert.Nil(t, slot, "processed rows and adjustments are not slots")

	open := ledgerRow(family, season, 0, domain.BalanceTuition, domain.BalancePending, "120")
	require.NoError(t, repo.Create(ctx, open))
	slot, err = repo.GetPendingSlotForUpdate(ctx, family, season)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, open.BalanceID, slot.BalanceID)
}

func TestBalanceRepository_Sums(t *testing.T) {
	db := testutil.NewDB(t)
	s := testutil.Seed(t, db)
	repo := NewBalanceRepository(db)
	ctx := context.Background()
	family, season := s.Family.FamilyID, s.Year.SeasonID

	original := ledgerRow(family, season, 0, domain.BalanceTuition, domain.BalanceProcessed, "270")
	require.NoError(t, repo.Create(ctx, original))
	for _, amount := range []string{"-120", "-30"} {
		reversal := ledgerRow(family, season, original.BalanceID, domain.BalanceReversal, domain.BalanceProcessed, amount)
		reversal.AppliedRegID = 7
		require.NoError(t, repo.Create(ctx, reversal))
	}
	require.NoError(t, repo.Create(ctx, ledgerRow(family, season, original.BalanceID, domain.BalancePayment, domain.BalancePaid, "-100")))
	require.NoError(t, repo.Create(ctx, ledgerRow(family, season, 0, domain.BalanceTuition, domain.BalanceCancelled, "500")))

	reversed, err := repo.SumByApplied(ctx, original.BalanceID, domain.BalanceReversal)
	require.NoError(t, err)
	assert.True(t, reversed.Equal(money("-150")), "reversed %s", reversed)

	columns, err := repo.SumAmountsByApplied(ctx, original.BalanceID, domain.BalanceReversal)
	require.NoError(t, err)
	assert.True(t, columns.Tuition.Equal(money("-150")), "tuition %s", columns.Tuition)
	assert.True(t, columns.RegFee.IsZero())

	none, err := repo.SumByApplied(ctx, original.BalanceID, domain.BalanceRefund)
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	effective, err := repo.EffectiveBalance(ctx, family, season)
	require.NoError(t, err)
	assert.True(t, effective.Equal(money("20")), "effective %s", effective)

	latest, err := repo.FindReversalForUpdate(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.TotalAmount.Equal(money("-30")))

	children, err := repo.ListByAppliedIDForUpdate(ctx, original.BalanceID)
	require.NoError(t, err)
	assert.Len(t, children, 3)

	missing, err := repo.GetByFamilyAndIDForUpdate(ctx, s.Other.FamilyID, original.BalanceID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRegistrationRepository_ActiveQueries(t *testing.T) {
	db := testutil.NewDB(t)
	s := testutil.Seed(t, db)
	repo := NewRegistrationRepository(db)
	ctx := context.Background()

	newReg := func(arr *domain.Arrangement, status domain.RegStatus, balanceID int64) *domain.ClassRegistration {
		reg := &domain.ClassRegistration{
			StudentID:       s.Alice.StudentID,
			ArrangeID:       arr.ArrangeID,
			SeasonID:        arr.SeasonID,
			ClassID:         arr.ClassID,
			FamilyID:        s.Family.FamilyID,
			StatusID:        status,
			FamilyBalanceID: balanceID,
			Arrangement:     arr,
		}
		require.NoError(t, repo.Create(ctx, reg))
		return reg
	}
	math := newReg(s.Math, domain.RegRegistered, 1)
	newReg(s.Art, domain.RegDropout, 1)
	chess := newReg(s.Chess, domain.RegSubmitted, 1)

	active, err := repo.ListActiveByStudent(ctx, s.Alice.StudentID, []int64{s.Year.SeasonID, s.Fall.SeasonID}, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, math.RegID, active[0].RegID)
	require.NotNil(t, active[0].Arrangement)
	assert.Equal(t, s.Math.TimeID, active[0].Arrangement.TimeID)

	active, err = repo.ListActiveByStudent(ctx, s.Alice.StudentID, []int64{s.Fall.SeasonID}, math.RegID)
	require.NoError(t, err)
	assert.Empty(t, active)

	active, err = repo.ListActiveByStudent(ctx, s.Alice.StudentID, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, active)

	count, err := repo.CountActiveByBalance(ctx, 1, chess.RegID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var arrangements int64
	require.NoError(t, db.Model(&domain.Arrangement{}).Count(&arrangements).Error)
	assert.Equal(t, int64(5), arrangements, "creating a registration must not touch its arrangement")

	found, err := repo.GetByIDAndStudentForUpdate(ctx, math.RegID, s.Bob.StudentID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestChangeRequestRepository_HasPending(t *testing.T) {
	db := testutil.NewDB(t)
	s := testutil.Seed(t, db)
	repo := NewChangeRequestRepository(db)
	ctx := context.Background()

	req := &domain.RegChangeRequest{RegID: 10, FamilyID: s.Family.FamilyID, ReqStatusID: domain.ReqPending}
	require.NoError(t, repo.Create(ctx, req))

	pending, err := repo.HasPending(ctx, 10)
	require.NoError(t, err)
	assert.True(t, pending)

	req.ReqStatusID = domain.ReqRejected
	require.NoError(t, repo.Update(ctx, req))
	pending, err = repo.HasPending(ctx, 10)
	require.NoError(t, err)
	assert.False(t, pending)

	locked, err := repo.GetForUpdate(ctx, req.RequestID, s.Other.FamilyID)
	require.NoError(t, err)
	assert.Nil(t, locked)
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	s := testutil.Seed(t, db)
	uow := NewUnitOfWork(db)
	boom := errors.New("boom")

	err := uow.Do(context.Background(), func(ctx context.Context, repos interfaces.Repositories) error {
		row := ledgerRow(s.Family.FamilyID, s.Year.SeasonID, 0, domain.BalanceTuition, domain.BalancePending, "150")
		if err := repos.Balances.Create(ctx, row); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := uow.Reader().Balances.ListByFamily(context.Background(), s.Family.FamilyID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
