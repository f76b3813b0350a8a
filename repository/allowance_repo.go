package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AllowanceRepository struct {
	db *gorm.DB
}

func NewAllowanceRepository(db *gorm.DB) *AllowanceRepository {
	return &AllowanceRepository{db: db}
}

func (r *AllowanceRepository) FindByWallet(ctx context.Context, wallet string) (*model.WalletAllowance, error) {
	var row model.WalletAllowance
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// Create inserts row unless the wallet already exists. It reports whether a row was inserted.
func (r *AllowanceRepository) Create(ctx context.Context, row *model.WalletAllowance) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Reset starts a new window for wallet if its current window began at or before cutoff.
// Concurrent callers race on the WHERE clause; exactly one of them sees true.
// It also reports false when the stored high already exceeds highest, so a stale
// caller never lowers it.
func (r *AllowanceRepository) Reset(ctx context.Context, wallet string, usd, highest, allocation decimal.Decimal, now, cutoff time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.WalletAllowance{}).
		Where("wallet_address = ? AND last_reset_at <= ? AND highest_balance_seen <= ?", wallet, cutoff, numeric(highest)).
		Updates(map[string]interface{}{
			"usd_balance_snapshot": usd,
			"highest_balance_seen": highest,
			"token_allocation":     allocation,
			"tokens_used":          decimal.Zero,
			"last_reset_at":        now,
			"updated_at":           now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RaiseHighest records a new high-water mark and the allocation derived from it.
// Used and the reset timer are untouched. No-op when usd does not exceed the stored high.
func (r *AllowanceRepository) RaiseHighest(ctx context.Context, wallet string, usd, allocation decimal.Decimal, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.WalletAllowance{}).
		Where("wallet_address = ? AND highest_balance_seen < ?", wallet, numeric(usd)).
		Updates(map[string]interface{}{
			"usd_balance_snapshot": usd,
			"highest_balance_seen": usd,
			"token_allocation":     allocation,
			"updated_at":           now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Consume adds cost to tokens_used only if it fits in the remaining allowance.
// The check and the increment are a single statement, so concurrent spends can't overdraw.
func (r *AllowanceRepository) Consume(ctx context.Context, wallet string, cost decimal.Decimal, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.WalletAllowance{}).
		Where("wallet_address = ? AND token_allocation - tokens_used >= ?", wallet, numeric(cost)).
		Updates(map[string]interface{}{
			"tokens_used": gorm.Expr("tokens_used + ?", numeric(cost)),
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
