package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"gorm.io/gorm"
)

func purchase(wallet, hash string, amount int64) *model.PurchaseRecord {
	return &model.PurchaseRecord{
		WalletAddress: wallet,
		TxHash:        hash,
		Amount:        decimal.NewFromInt(amount),
		BalanceAdded:  decimal.NewFromInt(amount * 2),
		PlanName:      "Basic",
		PurchaseType:  model.PlanTypeSubscription,
		FromAddress:   wallet,
		Status:        model.PurchaseStatusConfirmed,
		VerifiedAt:    time.Now().UTC(),
	}
}

func TestPurchaseTxHashUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(newTestDB(t))
	hash := "0x" + strings.Repeat("1", 64)

	require.NoError(t, repo.Create(ctx, purchase(testWallet, hash, 10)))
	err := repo.Create(ctx, purchase(testWallet, hash, 10))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	used, err := repo.ExistsByTxHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestPurchaseListAndStats(t *testing.T) {
	ctx := context.Background()
	repo := NewPurchaseRepository(newTestDB(t))
	require.NoError(t, repo.Create(ctx, purchase(testWallet, "0xaaa1", 10)))
	require.NoError(t, repo.Create(ctx, purchase(testWallet, "0xaaa2", 20)))
	require.NoError(t, repo.Create(ctx, purchase("0x00000000000000000000000000000000000000cc", "0xbbb1", 5)))

	list, total, err := repo.List(ctx, "0xAAA", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	stats, err := repo.Stats(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Total)
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(35)))
	assert.True(t, stats.BalanceGiven.Equal(decimal.NewFromInt(70)))
	assert.EqualValues(t, 3, stats.Recent)
}
