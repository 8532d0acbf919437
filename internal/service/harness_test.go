package service

import (
	"context"
	"sync"
	"testing"
	"time"

	domain "school-registration/internal/domain/registration"
	"school-registration/internal/infrastructure/repository"
	serviceInterfaces "school-registration/internal/interfaces/service"
	"school-registration/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingRevalidator struct {
	mu    sync.Mutex
	paths []string
}

func (r *recordingRevalidator) Revalidate(_ context.Context, paths ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, paths...)
	return nil
}

func (r *recordingRevalidator) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

type harness struct {
	t        *testing.T
	db       *gorm.DB
	school   *testutil.School
	now      time.Time
	revalid  *recordingRevalidator
	reg      *RegistrationService
	requests *ChangeRequestService
	payments *PaymentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	h := &harness{
		t:       t,
		db:      db,
		school:  testutil.Seed(t, db),
		now:     testutil.Now,
		revalid: &recordingRevalidator{},
	}

	uow := repository.NewUnitOfWork(db)
	opts := []Option{WithClock(func() time.Time { return h.now }), WithRevalidator(h.revalid)}
	h.reg = NewRegistrationService(uow, testutil.Fees(), opts...)
	h.requests = NewChangeRequestService(uow, testutil.Fees(), opts...)
	h.payments = NewPaymentService(uow, testutil.Fees(), opts...)
	return h
}

func (h *harness) register(student *domain.Student, arrangement *domain.Arrangement) *domain.ClassRegistration {
	h.t.Helper()
	season := h.seasonOf(arrangement)
	balance, err := h.reg.FamilyRegister(testutil.FamilyCtx(student.FamilyID), arrangement, season, student.FamilyID, student.StudentID)
	require.NoError(h.t, err)

	var reg domain.ClassRegistration
	require.NoError(h.t, h.db.
		Where("studentid = ? AND arrangeid = ? AND familybalanceid = ?", student.StudentID, arrangement.ArrangeID, balance.BalanceID).
		Order("regid DESC").First(&reg).Error)
	return &reg
}

func (h *harness) seasonOf(arrangement *domain.Arrangement) *domain.Season {
	switch arrangement.SeasonID {
	case h.school.Year.SeasonID:
		return h.school.Year
	case h.school.Fall.SeasonID:
		return h.school.Fall
	default:
		return h.school.Spring
	}
}

func (h *harness) pay(reg *domain.ClassRegistration, amount string) {
	h.t.Helper()
	_, err := h.payments.ApplyCheck(testutil.AdminCtx(), &serviceInterfaces.CheckPayment{
		BalanceID: reg.FamilyBalanceID,
		CheckNo:   "1001",
		Amount:    d(amount),
		PaidDate:  h.now,
	}, reg.FamilyID)
	require.NoError(h.t, err)
}

func (h *harness) balance(id int64) *domain.FamilyBalance {
	h.t.Helper()
	var row domain.FamilyBalance
	require.NoError(h.t, h.db.Where("balanceid = ?", id).First(&row).Error)
	return &row
}

func (h *harness) request(id int64) *domain.RegChangeRequest {
	h.t.Helper()
	var row domain.RegChangeRequest
	require.NoError(h.t, h.db.Where("requestid = ?", id).First(&row).Error)
	return &row
}
