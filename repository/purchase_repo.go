package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

func (r *PurchaseRepository) WithTx(tx *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: tx}
}

func (r *PurchaseRepository) ExistsByTxHash(ctx context.Context, txHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PurchaseRecord{}).Where("tx_hash = ?", txHash).Count(&count).Error
	return count > 0, err
}

// Create relies on the unique tx_hash index; a duplicate surfaces as gorm.ErrDuplicatedKey
// when the DB is opened with TranslateError.
func (r *PurchaseRepository) Create(ctx context.Context, p *model.PurchaseRecord) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PurchaseRepository) List(ctx context.Context, search string, page, size int) ([]*model.PurchaseRecord, int64, error) {
	var list []*model.PurchaseRecord
	var total int64
	offset, limit := pageOffset(page, size)

	search = strings.ToLower(strings.TrimSpace(search))
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.PurchaseRecord{})
		if search != "" {
			q = q.Where("wallet_address LIKE ? OR tx_hash LIKE ?", "%"+search+"%", "%"+search+"%")
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

type PurchaseStats struct {
	Total        int64
	Revenue      decimal.Decimal
	BalanceGiven decimal.Decimal
	Recent       int64
}

func (r *PurchaseRepository) Stats(ctx context.Context, since time.Time) (*PurchaseStats, error) {
	var s PurchaseStats
	confirmed := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.PurchaseRecord{}).Where("status = ?", model.PurchaseStatusConfirmed)
	}
	if err := confirmed().Count(&s.Total).Error; err != nil {
		return nil, err
	}
	var sums struct {
		Revenue      decimal.NullDecimal
		BalanceGiven decimal.NullDecimal
	}
	if err := confirmed().Select("SUM(amount) AS revenue, SUM(balance_added) AS balance_given").Scan(&sums).Error; err != nil {
		return nil, err
	}
	s.Revenue = sums.Revenue.Decimal
	s.BalanceGiven = sums.BalanceGiven.Decimal
	if err := confirmed().Where("created_at > ?", since).Count(&s.Recent).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
