package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidWallet       = errors.New("invalid wallet address")
	ErrInvalidTxHash       = errors.New("invalid transaction hash")
	ErrUnknownPlan         = errors.New("invalid plan")
	ErrTxAlreadyUsed       = errors.New("transaction already used")
	ErrTxFailed            = errors.New("transaction failed on-chain")
	ErrSenderMismatch      = errors.New("transaction sender does not match wallet")
	ErrUnderpaid           = errors.New("payment amount too low")
	ErrNoMembership        = errors.New("no premium membership")
	ErrAccountBanned       = errors.New("account is suspended")
	ErrInsufficientBalance = errors.New("insufficient premium balance")
	ErrMemberExists        = errors.New("member already exists")
	ErrUnknownBadge        = errors.New("invalid badge")
)

type paymentVerifier interface {
	Verify(ctx context.Context, txHash string) (*Payment, error)
}

// MembershipSnapshot is the purchase-track view of a wallet.
type MembershipSnapshot struct {
	Registered bool
	Dev        bool
	Account    *model.MembershipAccount
}

type PurchaseResult struct {
	BalanceAdded decimal.Decimal
	NewBalance   decimal.Decimal
	Plan         Plan
}

type AdminStats struct {
	Members   repository.MemberStats
	Purchases repository.PurchaseStats
}

// MembershipService owns the purchase track: verified on-chain payments credit a balance
// that premium features draw down.
type MembershipService struct {
	db        *gorm.DB
	members   *repository.MembershipRepository
	purchases *repository.PurchaseRepository
	verifier  paymentVerifier
	tolerance decimal.Decimal
	isDev     func(string) bool
	now       func() time.Time
	log       *zap.Logger
}

func NewMembershipService(
	db *gorm.DB,
	members *repository.MembershipRepository,
	purchases *repository.PurchaseRepository,
	verifier paymentVerifier,
	tolerance float64,
	isDev func(string) bool,
	log *zap.Logger,
) *MembershipService {
	if isDev == nil {
		isDev = func(string) bool { return false }
	}
	return &MembershipService{
		db:        db,
		members:   members,
		purchases: purchases,
		verifier:  verifier,
		tolerance: decimal.NewFromFloat(tolerance),
		isDev:     isDev,
		now:       time.Now,
		log:       log,
	}
}

func (s *MembershipService) devAccount(wallet string) *model.MembershipAccount {
	badge := "dev"
	return &model.MembershipAccount{
		WalletAddress:  wallet,
		PremiumBalance: DevAllocation,
		TotalPurchased: decimal.Zero,
		TotalUsed:      decimal.Zero,
		Badge:          &badge,
		Status:         model.MemberStatusActive,
	}
}

// Balance never errors for unknown wallets; they come back unregistered.
func (s *MembershipService) Balance(ctx context.Context, wallet string) (*MembershipSnapshot, error) {
	if s.isDev(wallet) {
		return &MembershipSnapshot{Registered: true, Dev: true, Account: s.devAccount(wallet)}, nil
	}
	acct, err := s.members.FindByWallet(ctx, wallet)
	if errors.Is(err, repository.ErrNotFound) {
		return &MembershipSnapshot{Account: &model.MembershipAccount{
			WalletAddress:  wallet,
			PremiumBalance: decimal.Zero,
			TotalPurchased: decimal.Zero,
			TotalUsed:      decimal.Zero,
		}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	return &MembershipSnapshot{Registered: true, Account: acct}, nil
}

// Spend draws cost from an active member's balance. On ErrInsufficientBalance the current
// balance is returned alongside the error.
func (s *MembershipService) Spend(ctx context.Context, wallet string, cost decimal.Decimal) (decimal.Decimal, error) {
	if !cost.IsPositive() {
		return decimal.Zero, ErrInvalidCost
	}
	if s.isDev(wallet) {
		return DevAllocation, nil
	}
	ok, err := s.members.Debit(ctx, wallet, cost)
	if err != nil {
		return decimal.Zero, fmt.Errorf("debit member: %w", err)
	}
	acct, err := s.members.FindByWallet(ctx, wallet)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, ErrNoMembership
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("find member: %w", err)
	}
	if !ok {
		if acct.Status == model.MemberStatusBanned {
			return decimal.Zero, ErrAccountBanned
		}
		return acct.PremiumBalance, ErrInsufficientBalance
	}
	return acct.PremiumBalance, nil
}

// Purchase verifies txHash as a payment for planKey by wallet and credits the plan's balance.
// A transaction hash is credited at most once.
func (s *MembershipService) Purchase(ctx context.Context, wallet, txHash, planKey string) (*PurchaseResult, error) {
	if !utils.IsAddress(wallet) {
		return nil, ErrInvalidWallet
	}
	wallet = utils.NormalizeAddress(wallet)
	if !utils.IsTxHash(txHash) {
		return nil, ErrInvalidTxHash
	}
	txHash = utils.NormalizeAddress(txHash)
	p, ok := LookupPlan(planKey)
	if !ok {
		return nil, ErrUnknownPlan
	}

	used, err := s.purchases.ExistsByTxHash(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("check tx hash: %w", err)
	}
	if used {
		return nil, ErrTxAlreadyUsed
	}

	payment, err := s.verifier.Verify(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if !payment.Success {
		return nil, ErrTxFailed
	}
	if payment.From != wallet {
		return nil, ErrSenderMismatch
	}
	minimum := p.Price.Mul(decimal.NewFromInt(1).Sub(s.tolerance))
	if payment.Amount.LessThan(minimum) {
		return nil, fmt.Errorf("%w: expected %s USDT, received %s USDT", ErrUnderpaid, p.Price.StringFixed(2), payment.Amount.StringFixed(2))
	}

	now := s.now().UTC()
	var cycle *string
	if p.Cycle != "" {
		c := p.Cycle
		cycle = &c
	}
	planType, badge := p.Type, p.Badge
	expires := p.ExpiresAt(now)
	// only subscriptions become the member's current plan
	var planName *string
	if p.Type == model.PlanTypeSubscription {
		name := p.Name
		planName = &name
	}

	var newBalance decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchases := s.purchases.WithTx(tx)
		members := s.members.WithTx(tx)

		err := purchases.Create(ctx, &model.PurchaseRecord{
			WalletAddress: wallet,
			TxHash:        txHash,
			Amount:        payment.Amount,
			BalanceAdded:  p.Balance,
			PlanName:      p.Name,
			PurchaseType:  p.Type,
			BillingCycle:  cycle,
			FromAddress:   payment.From,
			BlockNumber:   payment.BlockNumber,
			Status:        model.PurchaseStatusConfirmed,
			VerifiedAt:    now,
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrTxAlreadyUsed
		}
		if err != nil {
			return err
		}

		_, err = members.FindByWallet(ctx, wallet)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			err = members.Create(ctx, &model.MembershipAccount{
				WalletAddress:  wallet,
				PremiumBalance: p.Balance,
				TotalPurchased: p.Balance,
				TotalUsed:      decimal.Zero,
				CurrentPlan:    planName,
				PlanType:       &planType,
				PlanExpiresAt:  expires,
				Badge:          &badge,
				Status:         model.MemberStatusActive,
			})
		case err == nil:
			err = members.Credit(ctx, wallet, p.Balance, &badge, planName, &planType, expires)
		}
		if err != nil {
			return err
		}

		acct, err := members.FindByWallet(ctx, wallet)
		if err != nil {
			return err
		}
		newBalance = acct.PremiumBalance
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTxAlreadyUsed) {
			return nil, err
		}
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	s.log.Info("premium purchase confirmed",
		zap.String("wallet", wallet),
		zap.String("tx", txHash),
		zap.String("plan", p.Key),
		zap.String("amount", payment.Amount.String()))
	return &PurchaseResult{BalanceAdded: p.Balance, NewBalance: newBalance, Plan: p}, nil
}

// --- admin ---

func (s *MembershipService) Stats(ctx context.Context) (*AdminStats, error) {
	m, err := s.members.Stats(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.purchases.Stats(ctx, s.now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		return nil, err
	}
	return &AdminStats{Members: *m, Purchases: *p}, nil
}

func (s *MembershipService) ListMembers(ctx context.Context, search, status string, page, size int) ([]*model.MembershipAccount, int64, error) {
	return s.members.List(ctx, search, status, page, size)
}

func (s *MembershipService) ListPurchases(ctx context.Context, search string, page, size int) ([]*model.PurchaseRecord, int64, error) {
	return s.purchases.List(ctx, search, page, size)
}

func (s *MembershipService) Ban(ctx context.Context, wallet string) error {
	if err := s.members.SetStatus(ctx, wallet, model.MemberStatusBanned); err != nil {
		return err
	}
	s.log.Info("member banned", zap.String("wallet", wallet))
	return nil
}

func (s *MembershipService) Unban(ctx context.Context, wallet string) error {
	return s.members.SetStatus(ctx, wallet, model.MemberStatusActive)
}

// SetBadge assigns a catalogue badge; an empty key clears it.
func (s *MembershipService) SetBadge(ctx context.Context, wallet, badge string) error {
	if badge == "" {
		return s.members.SetBadge(ctx, wallet, nil)
	}
	if _, ok := LookupBadge(badge); !ok {
		return ErrUnknownBadge
	}
	return s.members.SetBadge(ctx, wallet, &badge)
}

func (s *MembershipService) Adjust(ctx context.Context, wallet string, delta decimal.Decimal) (*model.MembershipAccount, error) {
	if err := s.members.Adjust(ctx, wallet, delta); err != nil {
		return nil, err
	}
	s.log.Info("member balance adjusted", zap.String("wallet", wallet), zap.String("delta", delta.String()))
	return s.members.FindByWallet(ctx, wallet)
}

func (s *MembershipService) AddMember(ctx context.Context, wallet string, balance decimal.Decimal, badge, plan string) (*model.MembershipAccount, error) {
	if !utils.IsAddress(wallet) {
		return nil, ErrInvalidWallet
	}
	wallet = utils.NormalizeAddress(wallet)
	if _, err := s.members.FindByWallet(ctx, wallet); err == nil {
		return nil, ErrMemberExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	acct := &model.MembershipAccount{
		WalletAddress:  wallet,
		PremiumBalance: balance,
		TotalPurchased: balance,
		TotalUsed:      decimal.Zero,
		Status:         model.MemberStatusActive,
	}
	if badge != "" {
		if _, ok := LookupBadge(badge); !ok {
			return nil, ErrUnknownBadge
		}
		acct.Badge = &badge
	}
	if plan != "" {
		acct.CurrentPlan = &plan
	}
	if err := s.members.Create(ctx, acct); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrMemberExists
		}
		return nil, err
	}
	return acct, nil
}

func (s *MembershipService) RemoveMember(ctx context.Context, wallet string) error {
	return s.members.Delete(ctx, wallet)
}
