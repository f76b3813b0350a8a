package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 持仓额度表: one row per wallet, the rolling daily allowance derived from holdings.
type WalletAllowance struct {
	WalletAddress      string          `gorm:"primaryKey;column:wallet_address;type:varchar(42)" json:"wallet_address"`
	USDBalanceSnapshot decimal.Decimal `gorm:"column:usd_balance_snapshot;type:decimal(32,8);not null;default:0" json:"usd_balance_snapshot"`
	HighestBalanceSeen decimal.Decimal `gorm:"column:highest_balance_seen;type:decimal(32,8);not null;default:0" json:"highest_balance_seen"`
	TokenAllocation    decimal.Decimal `gorm:"column:token_allocation;type:decimal(32,8);not null;default:0" json:"token_allocation"`
	TokensUsed         decimal.Decimal `gorm:"column:tokens_used;type:decimal(32,8);not null;default:0" json:"tokens_used"`
	FirstConnectedAt   time.Time       `gorm:"column:first_connected_at;not null" json:"first_connected_at"`
	LastResetAt        time.Time       `gorm:"column:last_reset_at;not null" json:"last_reset_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime:false" json:"updated_at"`
}

func (WalletAllowance) TableName() string {
	return "wallet_allowances"
}

// Remaining is allocation minus used, never negative.
func (a *WalletAllowance) Remaining() decimal.Decimal {
	r := a.TokenAllocation.Sub(a.TokensUsed)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

const (
	MemberStatusActive = "active"
	MemberStatusBanned = "banned"

	PlanTypeSubscription = "subscription"
	PlanTypeCreditPack   = "credit_pack"

	PurchaseStatusConfirmed = "confirmed"
)

// 会员表: purchase-based premium balance.
type MembershipAccount struct {
	ID             uint            `gorm:"primaryKey;column:id" json:"id"`
	WalletAddress  string          `gorm:"column:wallet_address;type:varchar(42);uniqueIndex;not null" json:"wallet_address"`
	PremiumBalance decimal.Decimal `gorm:"column:premium_balance;type:decimal(32,8);not null;default:0" json:"premium_balance"`
	TotalPurchased decimal.Decimal `gorm:"column:total_purchased;type:decimal(32,8);not null;default:0" json:"total_purchased"`
	TotalUsed      decimal.Decimal `gorm:"column:total_used;type:decimal(32,8);not null;default:0" json:"total_used"`
	CurrentPlan    *string         `gorm:"column:current_plan;type:varchar(64)" json:"current_plan"`
	PlanType       *string         `gorm:"column:plan_type;type:varchar(32)" json:"plan_type"`
	PlanExpiresAt  *time.Time      `gorm:"column:plan_expires_at" json:"plan_expires_at"`
	Badge          *string         `gorm:"column:badge;type:varchar(32)" json:"badge"`
	Status         string          `gorm:"column:status;type:varchar(16);not null;default:'active'" json:"status"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (MembershipAccount) TableName() string {
	return "premium_members"
}

// 购买记录表: append-only, tx_hash unique so one payment credits at most once.
type PurchaseRecord struct {
	ID            uint            `gorm:"primaryKey;column:id" json:"id"`
	WalletAddress string          `gorm:"column:wallet_address;type:varchar(42);index;not null" json:"wallet_address"`
	TxHash        string          `gorm:"column:tx_hash;type:varchar(66);uniqueIndex;not null" json:"tx_hash"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(32,8);not null" json:"amount"`
	BalanceAdded  decimal.Decimal `gorm:"column:balance_added;type:decimal(32,8);not null" json:"balance_added"`
	PlanName      string          `gorm:"column:plan_name;type:varchar(64)" json:"plan_name"`
	PurchaseType  string          `gorm:"column:purchase_type;type:varchar(32)" json:"purchase_type"`
	BillingCycle  *string         `gorm:"column:billing_cycle;type:varchar(16)" json:"billing_cycle"`
	FromAddress   string          `gorm:"column:from_address;type:varchar(42)" json:"from_address"`
	BlockNumber   uint64          `gorm:"column:block_number" json:"block_number"`
	Status        string          `gorm:"column:status;type:varchar(16);not null;default:'confirmed'" json:"status"`
	VerifiedAt    time.Time       `gorm:"column:verified_at" json:"verified_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PurchaseRecord) TableName() string {
	return "premium_purchases"
}
