package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *MembershipRepository) WithTx(tx *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: tx}
}

func (r *MembershipRepository) FindByWallet(ctx context.Context, wallet string) (*model.MembershipAccount, error) {
	var m model.MembershipAccount
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *MembershipRepository) Create(ctx context.Context, m *model.MembershipAccount) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// Credit adds amount to the balance and lifetime purchases. plan fields are only overwritten
// when planName is non-nil; badge is only set when the member has none yet.
func (r *MembershipRepository) Credit(ctx context.Context, wallet string, amount decimal.Decimal, badge, planName, planType *string, expiresAt *time.Time) error {
	updates := map[string]interface{}{
		"premium_balance": gorm.Expr("premium_balance + ?", numeric(amount)),
		"total_purchased": gorm.Expr("total_purchased + ?", numeric(amount)),
		"badge":           gorm.Expr("COALESCE(badge, ?)", badge),
	}
	if planName != nil {
		updates["current_plan"] = *planName
		updates["plan_type"] = planType
		updates["plan_expires_at"] = expiresAt
	}
	return r.db.WithContext(ctx).Model(&model.MembershipAccount{}).
		Where("wallet_address = ?", wallet).
		Updates(updates).Error
}

// Debit subtracts cost from an active member's balance if it covers it.
func (r *MembershipRepository) Debit(ctx context.Context, wallet string, cost decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.MembershipAccount{}).
		Where("wallet_address = ? AND status = ? AND premium_balance >= ?", wallet, model.MemberStatusActive, numeric(cost)).
		Updates(map[string]interface{}{
			"premium_balance": gorm.Expr("premium_balance - ?", numeric(cost)),
			"total_used":      gorm.Expr("total_used + ?", numeric(cost)),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Adjust moves the balance by delta, flooring at zero.
func (r *MembershipRepository) Adjust(ctx context.Context, wallet string, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.MembershipAccount{}).
		Where("wallet_address = ?", wallet).
		Update("premium_balance", gorm.Expr(
			"CASE WHEN premium_balance + ? < 0 THEN 0 ELSE premium_balance + ? END", numeric(delta), numeric(delta)))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MembershipRepository) SetStatus(ctx context.Context, wallet, status string) error {
	return r.updateColumn(ctx, wallet, "status", status)
}

func (r *MembershipRepository) SetBadge(ctx context.Context, wallet string, badge *string) error {
	return r.updateColumn(ctx, wallet, "badge", badge)
}

func (r *MembershipRepository) updateColumn(ctx context.Context, wallet, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.MembershipAccount{}).Where("wallet_address = ?", wallet).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MembershipRepository) Delete(ctx context.Context, wallet string) error {
	return r.db.WithContext(ctx).Where("wallet_address = ?", wallet).Delete(&model.MembershipAccount{}).Error
}

func (r *MembershipRepository) List(ctx context.Context, search, status string, page, size int) ([]*model.MembershipAccount, int64, error) {
	var list []*model.MembershipAccount
	var total int64
	offset, limit := pageOffset(page, size)

	search = strings.ToLower(strings.TrimSpace(search))
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.MembershipAccount{})
		if search != "" {
			q = q.Where("wallet_address LIKE ?", "%"+search+"%")
		}
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := filtered().Order("created_at desc").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

type MemberStats struct {
	Total     int64
	Active    int64
	Banned    int64
	TotalUsed decimal.Decimal
}

func (r *MembershipRepository) Stats(ctx context.Context) (*MemberStats, error) {
	var s MemberStats
	members := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.MembershipAccount{})
	}
	if err := members().Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if err := members().Where("status = ?", model.MemberStatusActive).Count(&s.Active).Error; err != nil {
		return nil, err
	}
	if err := members().Where("status = ?", model.MemberStatusBanned).Count(&s.Banned).Error; err != nil {
		return nil, err
	}
	var sum struct {
		TotalUsed decimal.NullDecimal
	}
	if err := members().Select("SUM(total_used) AS total_used").Scan(&sum).Error; err != nil {
		return nil, err
	}
	s.TotalUsed = sum.TotalUsed.Decimal
	return &s, nil
}
