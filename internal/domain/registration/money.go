package domain

import "github.com/shopspring/decimal"

// PaymentTolerance is the largest shortfall still treated as a full payment.
var PaymentTolerance = decimal.RequireFromString("0.01")

// Amounts is the signed money breakdown carried by a ledger row.
// EarlyRegDiscount is stored as a positive number and subtracted.
type Amounts struct {
	Tuition          decimal.Decimal
	RegFee           decimal.Decimal
	LateRegFee       decimal.Decimal
	EarlyRegDiscount decimal.Decimal
}

func (a Amounts) Total() decimal.Decimal {
	return a.Tuition.Add(a.RegFee).Add(a.LateRegFee).Sub(a.EarlyRegDiscount)
}

// Add sums two breakdowns column by column.
func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		Tuition:          a.Tuition.Add(b.Tuition),
		RegFee:           a.RegFee.Add(b.RegFee),
		LateRegFee:       a.LateRegFee.Add(b.LateRegFee),
		EarlyRegDiscount: a.EarlyRegDiscount.Add(b.EarlyRegDiscount),
	}
}

// Neg returns the compensating breakdown.
func (a Amounts) Neg() Amounts {
	return Amounts{
		Tuition:          a.Tuition.Neg(),
		RegFee:           a.RegFee.Neg(),
		LateRegFee:       a.LateRegFee.Neg(),
		EarlyRegDiscount: a.EarlyRegDiscount.Neg(),
	}
}

// FeeSchedule holds the per-family fees added to the first charge of a cycle.
type FeeSchedule struct {
	RegFee           decimal.Decimal
	EarlyRegDiscount decimal.Decimal
	LateRegFee1      decimal.Decimal
	LateRegFee2      decimal.Decimal
}

// FamilySeasonBalance is one family's ledger totals for a cycle.
type FamilySeasonBalance struct {
	FamilyID    int64           `json:"familyid" db:"familyid"`
	Charges     decimal.Decimal `json:"charges" db:"charges"`
	Payments    decimal.Decimal `json:"payments" db:"payments"`
	Reversals   decimal.Decimal `json:"reversals" db:"reversals"`
	Refunds     decimal.Decimal `json:"refunds" db:"refunds"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	PendingRows int             `json:"pending_rows" db:"pending_rows"`
}
