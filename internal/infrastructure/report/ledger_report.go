package report

import (
	"context"
	"fmt"

	domain "school-registration/internal/domain/registration"
	interfaces "school-registration/internal/interfaces/infrastructure"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

var _ interfaces.LedgerReporter = (*LedgerReport)(nil)

const seasonBalancesQuery = `
SELECT familyid,
	COALESCE(SUM(CASE WHEN typeid IN (?, ?) THEN totalamount ELSE 0 END), 0) AS charges,
	COALESCE(SUM(CASE WHEN typeid = ? THEN totalamount ELSE 0 END), 0) AS payments,
	COALESCE(SUM(CASE WHEN typeid = ? THEN totalamount ELSE 0 END), 0) AS reversals,
	COALESCE(SUM(CASE WHEN typeid = ? THEN totalamount ELSE 0 END), 0) AS refunds,
	COALESCE(SUM(totalamount), 0) AS balance,
	COUNT(CASE WHEN statusid = ? THEN 1 END) AS pending_rows
FROM familybalance
WHERE seasonid = ? AND statusid <> ?
GROUP BY familyid
ORDER BY familyid`

// LedgerReport answers aggregate questions with hand-written SQL through
// sqlx, sharing the connection pool opened by gorm.
type LedgerReport struct {
	db *sqlx.DB
}

func NewLedgerReport(db *sqlx.DB) *LedgerReport {
	return &LedgerReport{db: db}
}

// FromGorm wraps the gorm pool. Placeholders are rebound for the dialect.
func FromGorm(gdb *gorm.DB) (*LedgerReport, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	driver := "sqlite3"
	if gdb.Dialector.Name() == "postgres" {
		driver = "pgx"
	}
	return NewLedgerReport(sqlx.NewDb(sqlDB, driver)), nil
}

func (r *LedgerReport) SeasonBalances(ctx context.Context, seasonID int64) ([]domain.FamilySeasonBalance, error) {
	query := r.db.Rebind(seasonBalancesQuery)
	rows := []domain.FamilySeasonBalance{}
	err := r.db.SelectContext(ctx, &rows, query,
		int(domain.BalanceTuition), int(domain.BalanceAdjustment),
		int(domain.BalancePayment),
		int(domain.BalanceReversal),
		int(domain.BalanceRefund),
		int(domain.BalancePending),
		seasonID, int(domain.BalanceCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load season balances: %w", err)
	}
	return rows, nil
}
