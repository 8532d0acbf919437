package service

import (
	"encoding/json"
	"testing"

	domain "school-registration/internal/domain/registration"
	serviceInterfaces "school-registration/internal/interfaces/service"
	"school-registration/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) check(balanceID int64, amount string) *serviceInterfaces.CheckPayment {
	return &serviceInterfaces.CheckPayment{
		BalanceID: balanceID,
		CheckNo:   "2002",
		Amount:    d(amount),
		PaidDate:  h.now,
		Note:      "front desk",
	}
}

func TestPaymentService_ApplyCheck_FullPayment(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Math)

	result, err := h.payments.ApplyCheck(testutil.AdminCtx(), h.check(reg.FamilyBalanceID, "150.00"), s.Family.FamilyID)
	require.NoError(t, err)
	assert.True(t, result.FullPayment)
	assert.Equal(t, []int64{reg.RegID}, result.RegisteredRegIDs)

	registered := testutil.Registration(t, h.db, reg.RegID)
	assert.Equal(t, domain.RegRegistered, registered.StatusID)
	assert.Equal(t, domain.RegSubmitted, registered.PreviousStatusID)

	original := h.balance(reg.FamilyBalanceID)
	assert.Equal(t, domain.BalanceProcessed, original.StatusID)

	payment := h.balance(result.Payment.BalanceID)
	assert.Equal(t, domain.BalancePayment, payment.TypeID)
	assert.Equal(t, domain.BalancePaid, payment.StatusID)
	assert.Equal(t, reg.FamilyBalanceID, payment.AppliedID)
	assert.Equal(t, "2002", payment.CheckNo)
	require.NotNil(t, payment.PaidDate)
	assert.True(t, payment.Tuition.Equal(d("-150")))
	assert.True(t, payment.TotalAmount.Equal(d("-150")))

	assert.Contains(t, h.revalid.Paths(), FamilyBalancesPath(s.Family.FamilyID))
}

func TestPaymentService_ApplyCheck_WithinTolerance(t *testing.T) {
	h := newHarness(t)
	reg := h.register(h.school.Alice, h.school.Math)

	result, err := h.payments.ApplyCheck(testutil.AdminCtx(), h.check(reg.FamilyBalanceID, "149.995"), reg.FamilyID)
	require.NoError(t, err)
	assert.True(t, result.FullPayment)
}

func TestPaymentService_ApplyCheck_PartialPayment(t *testing.T) {
	h := newHarness(t)
	s := h.school
	alice := h.register(s.Alice, s.Math)
	bob := h.register(s.Bob, s.Math)

	result, err := h.payments.ApplyCheck(testutil.AdminCtx(), h.check(alice.FamilyBalanceID, "100"), s.Family.FamilyID)
	require.NoError(t, err)
	assert.False(t, result.FullPayment)
	assert.Empty(t, result.RegisteredRegIDs)

	assert.Equal(t, domain.RegSubmitted, testutil.Registration(t, h.db, alice.RegID).StatusID)
	assert.Equal(t, domain.RegSubmitted, testutil.Registration(t, h.db, bob.RegID).StatusID)
	assert.Equal(t, domain.BalanceProcessed, h.balance(alice.FamilyBalanceID).StatusID)
}

func TestPaymentService_ApplyCheck_CountsReversals(t *testing.T) {
	h := newHarness(t)
	s := h.school
	alice := h.register(s.Alice, s.Math)
	bob := h.register(s.Bob, s.Math)
	require.NoError(t, h.reg.AdminDropRegistration(testutil.AdminCtx(), alice.RegID, s.Alice.StudentID, false))

	result, err := h.payments.ApplyCheck(testutil.AdminCtx(), h.check(bob.FamilyBalanceID, "150"), s.Family.FamilyID)
	require.NoError(t, err)
	assert.True(t, result.FullPayment)
	assert.Equal(t, domain.RegRegistered, testutil.Registration(t, h.db, bob.RegID).StatusID)
}

func TestPaymentService_ApplyCheck_Errors(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Math)
	admin := testutil.AdminCtx()

	_, err := h.payments.ApplyCheck(testutil.FamilyCtx(s.Family.FamilyID), h.check(reg.FamilyBalanceID, "150"), s.Family.FamilyID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.payments.ApplyCheck(admin, h.check(reg.FamilyBalanceID, "0"), s.Family.FamilyID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	missingCheck := h.check(reg.FamilyBalanceID, "150")
	missingCheck.CheckNo = ""
	_, err = h.payments.ApplyCheck(admin, missingCheck, s.Family.FamilyID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.payments.ApplyCheck(admin, h.check(reg.FamilyBalanceID, "150"), s.Other.FamilyID)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)

	_, err = h.payments.ApplyCheck(admin, h.check(reg.FamilyBalanceID, "150"), s.Family.FamilyID)
	require.NoError(t, err)
	_, err = h.payments.ApplyCheck(admin, h.check(reg.FamilyBalanceID, "150"), s.Family.FamilyID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestPaymentService_RemoveBalance(t *testing.T) {
	h := newHarness(t)
	s := h.school
	reg := h.register(s.Alice, s.Math)

	err := h.payments.RemoveBalance(testutil.FamilyCtx(s.Family.FamilyID), reg.FamilyBalanceID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, h.payments.RemoveBalance(testutil.AdminCtx(), reg.FamilyBalanceID))
	assert.Empty(t, testutil.Balances(t, h.db, s.Family.FamilyID))

	var audits []domain.BalanceAudit
	require.NoError(t, h.db.Where("balanceid = ?", reg.FamilyBalanceID).Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, "remove", audits[0].Action)
	assert.Equal(t, "admin-1", audits[0].Actor)

	var snapshot domain.FamilyBalance
	require.NoError(t, json.Unmarshal(audits[0].Snapshot, &snapshot))
	assert.Equal(t, reg.FamilyBalanceID, snapshot.BalanceID)
	assert.True(t, snapshot.TotalAmount.Equal(d("150")))

	err = h.payments.RemoveBalance(testutil.AdminCtx(), reg.FamilyBalanceID)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)
}
