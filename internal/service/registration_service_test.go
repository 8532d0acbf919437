package service

import (
	"sync"
	"testing"
	"time"

	domain "school-registration/internal/domain/registration"
	serviceInterfaces "school-registration/internal/interfaces/service"
	"school-registration/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationService_FamilyRegister_OpensSlot(t *testing.T) {
	h := newHarness(t)
	s := h.school

	reg := h.register(s.Alice, s.Math)
	assert.Equal(t, domain.RegSubmitted, reg.StatusID)
	assert.Equal(t, s.Fall.SeasonID, reg.SeasonID)
	assert.False(t, reg.ByAdmin)

	slot := h.balance(reg.FamilyBalanceID)
	assert.Equal(t, domain.BalanceTuition, slot.TypeID)
	assert.Equal(t, domain.BalancePending, slot.StatusID)
	assert.Equal(t, s.Year.SeasonID, slot.SeasonID)
	assert.Equal(t, int64(0), slot.AppliedID)
	assert.Equal(t, 1, slot.ChildNum)
	assert.Equal(t, 1, slot.SemesterClass)
	assert.True(t, slot.Tuition.Equal(d("120")))
	assert.True(t, slot.RegFee.Equal(d("30")))
	assert.True(t, slot.TotalAmount.Equal(d("150")))

	assert.Contains(t, h.revalid.Paths(), SemesterRegistrationsPath(s.Fall.SeasonID))
	assert.Contains(t, h.revalid.Paths(), FamilyRegistrationsPath(s.Family.FamilyID))
}

func TestRegistrationService_FamilyRegister_Accumulates(t *testing.T) {
	h := newHarness(t)
	s := h.school

	regs := []*domain.ClassRegistration{
		h.register(s.Alice, s.Math),
		h.register(s.Bob, s.Math),
		h.register(s.Alice, s.Chinese),
		h.register(s.Bob, s.Dance),
	}
	for _, reg := range regs[1:] {
		assert.Equal(t, regs[0].FamilyBalanceID, reg.FamilyBalanceID)
	}

	rows := testutil.Balances(t, h.db, s.Family.FamilyID)
	require.Len(t, rows, 1)
	slot := rows[0]
	assert.Equal(t, 4, slot.ChildNum)
	assert.Equal(t, 1, slot.YearClass)
	assert.Equal(t, 3, slot.SemesterClass)
	assert.True(t, slot.Tuition.Equal(d("710")), "tuition %s", slot.Tuition)
	assert.True(t, slot.RegFee.Equal(d("30")))
	assert.True(t, slot.TotalAmount.Equal(d("740")))
}

func TestRegistrationService_FamilyRegister_WaivedFeeAddedLater(t *testing.T) {
	h := newHarness(t)
	s := h.school

	reg := h.register(s.Alice, s.Dance)
	slot := h.balance(reg.FamilyBalanceID)
	assert.True(t, slot.RegFee.IsZero())
	assert.True(t, slot.TotalAmount.Equal(d("150")))

	h.register(s.Alice, s.Math)
	slot = h.balance(reg.FamilyBalanceID)
	assert.True(t, slot.RegFee.Equal(d("30")))
	assert.True(t, slot.TotalAmount.Equal(d("300")))
}

func TestRegistrationService_FamilyRegister_WindowFees(t *testing.T) {
	cases := []struct {
		name  string
		now   time.Time
		total string
	}{
		{"early", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), "140"},
		{"late1", time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), "170"},
		{"late2", time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC), "190"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.now = tc.now
			reg := h.register(h.school.Alice, h.school.Math)
			slot := h.balance(reg.FamilyBalanceID)
			assert.True(t, slot.TotalAmount.Equal(d(tc.total)), "total %s", slot.TotalAmount)
		})
	}
}

func TestRegistrationService_FamilyRegister_ClosedWindowWritesNothing(t *testing.T) {
	h := newHarness(t)
	s := h.school
	h.register(s.Bob, s.Math)

	balancesBefore := testutil.Count(t, h.db, &domain.FamilyBalance{})
	regsBefore := testutil.Count(t, h.db, &domain.ClassRegistration{})
	slotBefore := testutil.Balances(t, h.db, s.Family.FamilyID)[0]

	h.now = time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	_, err := h.reg.FamilyRegister(testutil.FamilyCtx(s.Family.FamilyID), s.Art, s.Fall, s.Family.FamilyID, s.Alice.StudentID)
	assert.ErrorIs(t, err, domain.ErrRegistrationClosed)

	s.Art.CloseRegistration = true
	h.now = testutil.Now
	_, err = h.reg.FamilyRegister(testutil.FamilyCtx(s.Family.FamilyID), s.Art, s.Fall, s.Family.FamilyID, s.Alice.StudentID)
	assert.ErrorIs(t, err, domain.ErrRegistrationClosed)

	assert.Equal(t, balancesBefore, testutil.Count(t, h.db, &domain.FamilyBalance{}))
	assert.Equal(t, regsBefore, testutil.Count(t, h.db, &domain.ClassRegistration{}))
	slotAfter := testutil.Balances(t, h.db, s.Family.FamilyID)[0]
	assert.True(t, slotBefore.TotalAmount.Equal(slotAfter.TotalAmount))
	assert.Equal(t, slotBefore.ChildNum, slotAfter.ChildNum)
}

func TestRegistrationService_FamilyRegister_Validation(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := testutil.FamilyCtx(s.Family.FamilyID)
	h.register(s.Alice, s.Math)

	_, err := h.reg.FamilyRegister(ctx, s.Math, s.Fall, s.Family.FamilyID, s.Alice.StudentID)
	assert.ErrorIs(t, err, domain.ErrScheduleConflict, "same class twice")

	_, err = h.reg.FamilyRegister(ctx, s.Art, s.Fall, s.Family.FamilyID, s.Alice.StudentID)
	assert.ErrorIs(t, err, domain.ErrScheduleConflict, "same time slot")

	_, err = h.reg.FamilyRegister(ctx, s.Art, s.Spring, s.Family.FamilyID, s.Bob.StudentID)
	assert.ErrorIs(t, err, domain.ErrSeasonMismatch)

	_, err = h.reg.FamilyRegister(ctx, s.Art, s.Fall, s.Family.FamilyID, s.Stranger.StudentID)
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)

	_, err = h.reg.FamilyRegister(testutil.FamilyCtx(s.Other.FamilyID), s.Art, s.Fall, s.Family.FamilyID, s.Bob.StudentID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// a spring class does not overlap a fall class in the same slot
	_, err = h.reg.FamilyRegister(ctx, s.Chess, s.Spring, s.Family.FamilyID, s.Alice.StudentID)
	assert.NoError(t, err)
}

func TestRegistrationService_FamilyRegister_AdminIsMarked(t *testing.T) {
	h := newHarness(t)
	s := h.school

	_, err := h.reg.FamilyRegister(testutil.AdminCtx(), s.Math, s.Fall, s.Family.FamilyID, s.Alice.StudentID)
	require.NoError(t, err)
	regs := testutil.Registrations(t, h.db, s.Family.FamilyID)
	require.Len(t, regs, 1)
	assert.True(t, regs[0].ByAdmin)
}

func TestRegistrationService_FamilyRegister_ConcurrentCallsSerialize(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := testutil.FamilyCtx(s.Family.FamilyID)

	jobs := []struct {
		student     *domain.Student
		arrangement *domain.Arrangement
	}{
		{s.Alice, s.Math},
		{s.Bob, s.Chinese},
		{s.Bob, s.Dance},
		{s.Alice, s.Chess},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(jobs))
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, student *domain.Student, arrangement *domain.Arrangement) {
			defer wg.Done()
			_, errs[i] = h.reg.FamilyRegister(ctx, arrangement, h.seasonOf(arrangement), s.Family.FamilyID, student.StudentID)
		}(i, job.student, job.arrangement)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	rows := testutil.Balances(t, h.db, s.Family.FamilyID)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].ChildNum)
	assert.True(t, rows[0].Tuition.Equal(d("680")), "tuition %s", rows[0].Tuition)
	assert.Len(t, testutil.Registrations(t, h.db, s.Family.FamilyID), 4)
}

func TestRegistrationService_AdminDrop_Submitted(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Math)

	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Alice.StudentID, false))

	assert.Nil(t, testutil.Registration(t, h.db, reg.RegID))
	rows := testutil.Balances(t, h.db, s.Family.FamilyID)
	require.Len(t, rows, 2)
	reversal := rows[1]
	assert.Equal(t, domain.BalanceReversal, reversal.TypeID)
	assert.Equal(t, domain.BalanceProcessed, reversal.StatusID)
	assert.Equal(t, reg.FamilyBalanceID, reversal.AppliedID)
	assert.Equal(t, reg.RegID, reversal.AppliedRegID)
	assert.True(t, reversal.Tuition.Equal(d("-120")))
	assert.True(t, reversal.RegFee.Equal(d("-30")))
	assert.True(t, reversal.TotalAmount.Equal(d("-150")))

	total, err := h.reg.EffectiveBalance(testutil.FamilyCtx(s.Family.FamilyID), s.Family.FamilyID, s.Fall.SeasonID)
	require.NoError(t, err)
	assert.True(t, total.IsZero(), "effective balance %s", total)
}

func TestRegistrationService_AdminDrop_SubmittedThenRegisterAgainOwesFees(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := testutil.FamilyCtx(s.Family.FamilyID)
	first := h.register(s.Alice, s.Math)
	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), first.RegID, s.Alice.StudentID, false))

	again := h.register(s.Alice, s.Math)
	assert.Equal(t, first.FamilyBalanceID, again.FamilyBalanceID)

	slot := h.balance(again.FamilyBalanceID)
	assert.True(t, slot.Tuition.Equal(d("240")), "tuition %s", slot.Tuition)
	assert.True(t, slot.RegFee.Equal(d("60")), "regfee %s", slot.RegFee)

	total, err := h.reg.EffectiveBalance(ctx, s.Family.FamilyID, s.Fall.SeasonID)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("150")), "effective balance %s", total)

	// tuition alone no longer covers the charge
	h.pay(again, "120")
	assert.Equal(t, domain.RegSubmitted, testutil.Registration(t, h.db, again.RegID).StatusID)
}

func TestRegistrationService_AdminDrop_SiblingLeftKeepsSingleFee(t *testing.T) {
	h := newHarness(t)
	s := h.school
	alice := h.register(s.Alice, s.Math)
	h.register(s.Bob, s.Math)
	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), alice.RegID, s.Alice.StudentID, false))

	art := h.register(s.Alice, s.Art)
	slot := h.balance(art.FamilyBalanceID)
	assert.True(t, slot.RegFee.Equal(d("30")), "regfee %s", slot.RegFee)

	total, err := h.reg.EffectiveBalance(testutil.FamilyCtx(s.Family.FamilyID), s.Family.FamilyID, s.Fall.SeasonID)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("235")), "effective balance %s", total)
}

func TestRegistrationService_AdminDrop_SubmittedKeepsFeeForSiblings(t *testing.T) {
	h := newHarness(t)
	s := h.school
	alice := h.register(s.Alice, s.Math)
	h.register(s.Bob, s.Math)

	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), alice.RegID, s.Alice.StudentID, false))

	rows := testutil.Balances(t, h.db, s.Family.FamilyID)
	require.Len(t, rows, 2)
	assert.True(t, rows[1].TotalAmount.Equal(d("-120")))
	assert.True(t, rows[1].RegFee.IsZero())
}

func TestRegistrationService_AdminDrop_RegisteredWritesAuditChain(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Math)
	h.pay(reg, "150")
	before := testutil.Balances(t, h.db, s.Family.FamilyID)

	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Alice.StudentID, false))

	dropped := testutil.Registration(t, h.db, reg.RegID)
	require.NotNil(t, dropped)
	assert.Equal(t, domain.RegDropout, dropped.StatusID)
	assert.Equal(t, domain.RegRegistered, dropped.PreviousStatusID)
	assert.True(t, dropped.ByAdmin)
	assert.Contains(t, dropped.Notes, "dropped by admin")

	after := testutil.Balances(t, h.db, s.Family.FamilyID)
	require.Len(t, after, len(before)+2)
	reversal, refund := after[len(after)-2], after[len(after)-1]

	assert.Equal(t, domain.BalanceReversal, reversal.TypeID)
	assert.Equal(t, domain.BalancePending, reversal.StatusID)
	assert.Equal(t, reg.FamilyBalanceID, reversal.AppliedID)
	assert.Equal(t, reg.RegID, reversal.AppliedRegID)
	assert.True(t, reversal.TotalAmount.Equal(d("-150")))

	assert.Equal(t, domain.BalanceRefund, refund.TypeID)
	assert.Equal(t, domain.BalanceProcessed, refund.StatusID)
	assert.Equal(t, reversal.BalanceID, refund.AppliedID)
	assert.Equal(t, reg.RegID, refund.AppliedRegID)
	assert.True(t, reversal.TotalAmount.Add(refund.TotalAmount).IsZero())

	original := h.balance(reg.FamilyBalanceID)
	assert.Equal(t, domain.BalanceProcessed, original.StatusID)
	assert.True(t, original.TotalAmount.Equal(d("150")), "processed rows are never edited")
}

func TestRegistrationService_AdminDrop_DeadlineAndOverride(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Math)
	h.pay(reg, "150")

	h.now = time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	err := h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Alice.StudentID, false)
	assert.ErrorIs(t, err, domain.ErrDropWindowClosed)
	assert.Equal(t, domain.RegRegistered, testutil.Registration(t, h.db, reg.RegID).StatusID)

	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Alice.StudentID, true))
	assert.Equal(t, domain.RegDropout, testutil.Registration(t, h.db, reg.RegID).StatusID)

	err = h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Alice.StudentID, true)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRegistrationService_AdminDrop_YearClassAfterFall(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Chinese)
	h.pay(reg, "350")

	h.now = time.Date(2027, 1, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Alice.StudentID, false))

	assert.Equal(t, domain.RegDropoutSpring, testutil.Registration(t, h.db, reg.RegID).StatusID)
	rows := testutil.Balances(t, h.db, s.Family.FamilyID)
	reversal := rows[len(rows)-2]
	assert.True(t, reversal.Tuition.Equal(d("-170")))
	assert.True(t, reversal.RegFee.IsZero())
}

func TestRegistrationService_AdminDrop_Errors(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Math)

	err := h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Bob.StudentID, false)
	assert.ErrorIs(t, err, domain.ErrRegistrationNotFound)

	err = h.reg.AdminDropRegistration(testutil.FamilyCtx(s.Family.FamilyID), reg.RegID, s.Alice.StudentID, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, h.db.Exec("DELETE FROM arrangement WHERE arrangeid = ?", s.Math.ArrangeID).Error)
	err = h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Alice.StudentID, false)
	assert.ErrorIs(t, err, domain.ErrArrangementNotFound)
}

func TestRegistrationService_AdminDrop_ThenRegisterAgain(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Math)
	h.pay(reg, "150")
	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), reg.RegID, s.Alice.StudentID, false))

	again := h.register(s.Alice, s.Math)

	regs := testutil.Registrations(t, h.db, s.Family.FamilyID)
	require.Len(t, regs, 2)
	active := 0
	for _, r := range regs {
		if r.IsActive() {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, domain.RegDropout, regs[0].StatusID)
	assert.Equal(t, domain.RegSubmitted, again.StatusID)
	assert.NotEqual(t, reg.FamilyBalanceID, again.FamilyBalanceID)
}

func TestRegistrationService_RegisterForArrangement(t *testing.T) {
	h := newHarness(t)
	s := h.school
	ctx := testutil.FamilyCtx(s.Family.FamilyID)

	balance, err := h.reg.RegisterForArrangement(ctx, s.Family.FamilyID, &serviceInterfaces.RegisterRequest{StudentID: s.Alice.StudentID, ArrangeID: s.Math.ArrangeID})
	require.NoError(t, err)
	assert.True(t, balance.TotalAmount.Equal(d("150")))

	_, err = h.reg.RegisterForArrangement(ctx, s.Family.FamilyID, &serviceInterfaces.RegisterRequest{StudentID: s.Alice.StudentID, ArrangeID: 999})
	assert.ErrorIs(t, err, domain.ErrArrangementNotFound)

	_, err = h.reg.RegisterForArrangement(ctx, s.Family.FamilyID, &serviceInterfaces.RegisterRequest{StudentID: 0, ArrangeID: s.Math.ArrangeID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistrationService_Queries(t *testing.T) {
	h := newHarness(t)
	s := h.school
	h.register(s.Alice, s.Math)
	h.register(s.Bob, s.Chinese)

	regs, err := h.reg.ListFamilyRegistrations(testutil.FamilyCtx(s.Family.FamilyID), s.Family.FamilyID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	require.NotNil(t, regs[0].Arrangement)
	assert.Equal(t, s.Math.ClassID, regs[0].Arrangement.ClassID)

	_, err = h.reg.ListFamilyRegistrations(testutil.FamilyCtx(s.Other.FamilyID), s.Family.FamilyID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	fall, err := h.reg.ListSeasonRegistrations(testutil.AdminCtx(), s.Fall.SeasonID)
	require.NoError(t, err)
	assert.Len(t, fall, 1)

	balances, err := h.reg.ListFamilyBalances(testutil.AdminCtx(), s.Family.FamilyID)
	require.NoError(t, err)
	assert.Len(t, balances, 1)

	total, err := h.reg.EffectiveBalance(testutil.AdminCtx(), s.Family.FamilyID, s.Spring.SeasonID)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("470")), "total %s", total)
}
