package repository

import (
	"context"
	"errors"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceRepository implements FamilyBalanceRepository using GORM
type BalanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository creates a new GORM family balance repository
func NewBalanceRepository(db *gorm.DB) interfaces.FamilyBalanceRepository {
	return &BalanceRepository{
		db: db,
	}
}

func (r *BalanceRepository) Create(ctx context.Context, balance *domain.FamilyBalance) error {
	return r.db.WithContext(ctx).Create(balance).Error
}

func (r *BalanceRepository) first(query *gorm.DB) (*domain.FamilyBalance, error) {
	var balance domain.FamilyBalance
	if err := query.First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

func (r *BalanceRepository) GetByID(ctx context.Context, id int64) (*domain.FamilyBalance, error) {
	return r.first(r.db.WithContext(ctx).Where("balanceid = ?", id))
}

func (r *BalanceRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.FamilyBalance, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)).Where("balanceid = ?", id))
}

func (r *BalanceRepository) GetByFamilyAndIDForUpdate(ctx context.Context, familyID, balanceID int64) (*domain.FamilyBalance, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)).Where("balanceid = ? AND familyid = ?", balanceID, familyID))
}

// GetPendingSlotForUpdate locks the family's open tuition row for the season:
// the pending charge with no back link that new registrations accumulate into.
func (r *BalanceRepository) GetPendingSlotForUpdate(ctx context.Context, familyID, seasonID int64) (*domain.FamilyBalance, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)).
		Where("familyid = ? AND seasonid = ? AND appliedid = 0 AND typeid = ? AND statusid = ?",
			familyID, seasonID, domain.BalanceTuition, domain.BalancePending).
		Order("balanceid DESC"))
}

// FindReversalForUpdate locks the latest reversal row written for a registration.
func (r *BalanceRepository) FindReversalForUpdate(ctx context.Context, regID int64) (*domain.FamilyBalance, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)).
		Where("appliedregid = ? AND typeid = ?", regID, domain.BalanceReversal).
		Order("balanceid DESC"))
}

func (r *BalanceRepository) ListByAppliedIDForUpdate(ctx context.Context, appliedID int64) ([]*domain.FamilyBalance, error) {
	var balances []*domain.FamilyBalance
	err := forUpdate(r.db.WithContext(ctx)).
		Where("appliedid = ?", appliedID).
		Order("balanceid ASC").
		Find(&balances).Error
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// SumByApplied totals the rows of one type that point back at appliedID.
func (r *BalanceRepository) SumByApplied(ctx context.Context, appliedID int64, typeID domain.BalanceType) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).Model(&domain.FamilyBalance{}).
		Select("COALESCE(SUM(totalamount), 0)").
		Where("appliedid = ? AND typeid = ?", appliedID, typeID).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SumAmountsByApplied totals each money column of the rows of one type that
// point back at appliedID.
func (r *BalanceRepository) SumAmountsByApplied(ctx context.Context, appliedID int64, typeID domain.BalanceType) (domain.Amounts, error) {
	var sum domain.Amounts
	row := r.db.WithContext(ctx).Model(&domain.FamilyBalance{}).
		Select("COALESCE(SUM(tuition), 0), COALESCE(SUM(regfee), 0), COALESCE(SUM(lateregfee), 0), COALESCE(SUM(earlyregdiscount), 0)").
		Where("appliedid = ? AND typeid = ?", appliedID, typeID).
		Row()
	if err := row.Scan(&sum.Tuition, &sum.RegFee, &sum.LateRegFee, &sum.EarlyRegDiscount); err != nil {
		return domain.Amounts{}, err
	}
	return sum, nil
}

func (r *BalanceRepository) Update(ctx context.Context, balance *domain.FamilyBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

func (r *BalanceRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.FamilyBalance{}, "balanceid = ?", id).Error
}

func (r *BalanceRepository) ListByFamily(ctx context.Context, familyID int64) ([]*domain.FamilyBalance, error) {
	var balances []*domain.FamilyBalance
	err := r.db.WithContext(ctx).
		Where("familyid = ?", familyID).
		Order("balanceid ASC").
		Find(&balances).Error
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// EffectiveBalance sums totalamount over the family's non-cancelled rows.
func (r *BalanceRepository) EffectiveBalance(ctx context.Context, familyID, seasonID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).Model(&domain.FamilyBalance{}).
		Select("COALESCE(SUM(totalamount), 0)").
		Where("familyid = ? AND seasonid = ? AND statusid <> ?", familyID, seasonID, domain.BalanceCancelled).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
