package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Charge is one registration's contribution to the family's pending slot.
type Charge struct {
	Scope       domain.Scope
	Price       decimal.Decimal
	Window      domain.Window
	WaiveRegFee bool
}

// Ledger writes familybalance rows. Pending rows may be changed in place;
// every other row is final and is only ever superseded by new rows that point
// back at it through appliedid.
type Ledger struct {
	balances interfaces.FamilyBalanceRepository
	audits   interfaces.BalanceAuditRepository
	fees     domain.FeeSchedule
	now      time.Time
}

func NewLedger(repos interfaces.Repositories, fees domain.FeeSchedule, now time.Time) *Ledger {
	return &Ledger{
		balances: repos.Balances,
		audits:   repos.Audits,
		fees:     fees,
		now:      now,
	}
}

func (l *Ledger) mutate(ctx context.Context, row *domain.FamilyBalance, fn func(*domain.FamilyBalance)) error {
	if row.StatusID != domain.BalancePending {
		return fmt.Errorf("balance %d: %w", row.BalanceID, domain.ErrLedgerImmutable)
	}
	fn(row)
	row.LastModify = l.now
	return l.balances.Update(ctx, row)
}

func (l *Ledger) insert(ctx context.Context, row *domain.FamilyBalance) (*domain.FamilyBalance, error) {
	row.RegDate = l.now
	row.LastModify = l.now
	if err := l.balances.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Charge adds c to the family's pending slot for seasonID, opening a new slot
// seeded with the cycle fees when none is pending. Fees already given back by
// reversals against the slot are charged again.
func (l *Ledger) Charge(ctx context.Context, familyID, seasonID int64, c Charge) (*domain.FamilyBalance, error) {
	slot, err := l.balances.GetPendingSlotForUpdate(ctx, familyID, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock pending balance: %w", err)
	}

	if slot != nil {
		reversed, err := l.balances.SumAmountsByApplied(ctx, slot.BalanceID, domain.BalanceReversal)
		if err != nil {
			return nil, fmt.Errorf("failed to sum reversals: %w", err)
		}
		net := slot.Amounts().Add(reversed)

		err = l.mutate(ctx, slot, func(b *domain.FamilyBalance) {
			b.ChildNum++
			if c.Scope == domain.ScopeYear {
				b.YearClass++
			} else {
				b.SemesterClass++
			}
			amounts := b.Amounts()
			switch {
			case net.Tuition.IsZero():
				// every earlier class on the slot was cancelled along with its fees
				amounts = amounts.Add(SeedAmounts(c.Window, l.fees, c.WaiveRegFee, c.Price))
			case net.RegFee.IsZero() && !c.WaiveRegFee:
				amounts.Tuition = amounts.Tuition.Add(c.Price)
				amounts.RegFee = amounts.RegFee.Add(l.fees.RegFee)
			default:
				amounts.Tuition = amounts.Tuition.Add(c.Price)
			}
			b.SetAmounts(amounts)
		})
		if err != nil {
			return nil, err
		}
		return slot, nil
	}

	row := &domain.FamilyBalance{
		FamilyID: familyID,
		SeasonID: seasonID,
		ChildNum: 1,
		TypeID:   domain.BalanceTuition,
		StatusID: domain.BalancePending,
	}
	if c.Scope == domain.ScopeYear {
		row.YearClass = 1
	} else {
		row.SemesterClass = 1
	}
	row.SetAmounts(SeedAmounts(c.Window, l.fees, c.WaiveRegFee, c.Price))
	return l.insert(ctx, row)
}

// Reverse writes the negation of amounts against original on behalf of regID.
func (l *Ledger) Reverse(ctx context.Context, original *domain.FamilyBalance, regID int64, amounts domain.Amounts, status domain.BalanceStatus, note string) (*domain.FamilyBalance, error) {
	row := &domain.FamilyBalance{
		AppliedID:    original.BalanceID,
		AppliedRegID: regID,
		FamilyID:     original.FamilyID,
		SeasonID:     original.SeasonID,
		TypeID:       domain.BalanceReversal,
		StatusID:     status,
		Notes:        note,
	}
	row.SetAmounts(amounts.Neg())
	return l.insert(ctx, row)
}

// Refund records the money returned for a reversal.
func (l *Ledger) Refund(ctx context.Context, reversal *domain.FamilyBalance) (*domain.FamilyBalance, error) {
	if reversal.TypeID != domain.BalanceReversal {
		return nil, fmt.Errorf("balance %d is not a reversal: %w", reversal.BalanceID, domain.ErrInvalidInput)
	}
	row := &domain.FamilyBalance{
		AppliedID:    reversal.BalanceID,
		AppliedRegID: reversal.AppliedRegID,
		FamilyID:     reversal.FamilyID,
		SeasonID:     reversal.SeasonID,
		TypeID:       domain.BalanceRefund,
		StatusID:     domain.BalanceProcessed,
		Notes:        fmt.Sprintf("refund of balance %d", reversal.BalanceID),
	}
	row.SetAmounts(reversal.Amounts().Neg())
	return l.insert(ctx, row)
}

// Adjust records a price difference against original. A positive diff is
// still owed; a negative one is credited at once.
func (l *Ledger) Adjust(ctx context.Context, original *domain.FamilyBalance, regID int64, diff decimal.Decimal, note string) (*domain.FamilyBalance, error) {
	status := domain.BalancePending
	if diff.IsNegative() {
		status = domain.BalanceProcessed
	}
	row := &domain.FamilyBalance{
		AppliedID:    original.BalanceID,
		AppliedRegID: regID,
		FamilyID:     original.FamilyID,
		SeasonID:     original.SeasonID,
		TypeID:       domain.BalanceAdjustment,
		StatusID:     status,
		Notes:        note,
	}
	row.SetAmounts(domain.Amounts{Tuition: diff})
	return l.insert(ctx, row)
}

// ComputedCharge is what is still owed on original: its total plus every
// reversal written against it.
func (l *Ledger) ComputedCharge(ctx context.Context, original *domain.FamilyBalance) (decimal.Decimal, error) {
	reversed, err := l.balances.SumByApplied(ctx, original.BalanceID, domain.BalanceReversal)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum reversals: %w", err)
	}
	return original.TotalAmount.Add(reversed), nil
}

// Pay records a check against original and closes it.
func (l *Ledger) Pay(ctx context.Context, original *domain.FamilyBalance, checkNo string, amount decimal.Decimal, paidDate time.Time, note string) (*domain.FamilyBalance, error) {
	if original.StatusID != domain.BalancePending {
		return nil, fmt.Errorf("balance %d: %w", original.BalanceID, domain.ErrInvalidState)
	}

	paid := paidDate
	row := &domain.FamilyBalance{
		AppliedID: original.BalanceID,
		FamilyID:  original.FamilyID,
		SeasonID:  original.SeasonID,
		TypeID:    domain.BalancePayment,
		StatusID:  domain.BalancePaid,
		CheckNo:   checkNo,
		PaidDate:  &paid,
		Notes:     note,
	}
	row.SetAmounts(domain.Amounts{Tuition: amount.Neg()})
	if _, err := l.insert(ctx, row); err != nil {
		return nil, err
	}

	err := l.mutate(ctx, original, func(b *domain.FamilyBalance) {
		b.StatusID = domain.BalanceProcessed
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Unwind deletes balanceID and every row chained below it.
func (l *Ledger) Unwind(ctx context.Context, balanceID int64) error {
	row, err := l.balances.GetByIDForUpdate(ctx, balanceID)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("balance %d: %w", balanceID, domain.ErrBalanceNotFound)
	}
	return l.unwind(ctx, row)
}

func (l *Ledger) unwind(ctx context.Context, row *domain.FamilyBalance) error {
	children, err := l.balances.ListByAppliedIDForUpdate(ctx, row.BalanceID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := l.unwind(ctx, child); err != nil {
			return err
		}
	}
	return l.balances.Delete(ctx, row.BalanceID)
}

// Remove deletes a row outright, leaving an audit record with its contents.
func (l *Ledger) Remove(ctx context.Context, row *domain.FamilyBalance, actor string) (*domain.BalanceAudit, error) {
	snapshot, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot balance: %w", err)
	}

	audit := &domain.BalanceAudit{
		AuditID:   uuid.NewString(),
		BalanceID: row.BalanceID,
		FamilyID:  row.FamilyID,
		Action:    "remove",
		Actor:     actor,
		Snapshot:  datatypes.JSON(snapshot),
		CreatedAt: l.now,
	}
	if err := l.audits.Create(ctx, audit); err != nil {
		return nil, fmt.Errorf("failed to write audit: %w", err)
	}
	if err := l.balances.Delete(ctx, row.BalanceID); err != nil {
		return nil, err
	}
	return audit, nil
}
