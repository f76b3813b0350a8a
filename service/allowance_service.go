package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"go.uber.org/zap"
)

const (
	ModeDev      = "dev"
	ModePurchase = "purchase"

	devHorizon    = 365 * 24 * time.Hour
	resetAttempts = 3
)

var (
	ErrInvalidCost           = errors.New("cost must be greater than 0")
	ErrNotRegistered         = errors.New("wallet not registered for premium")
	ErrInsufficientAllowance = errors.New("insufficient premium allowance")

	// DevAllocation is what dev wallets always report. It is never persisted or consumed.
	DevAllocation = decimal.NewFromInt(999999)
)

type valuator interface {
	Mode(ctx context.Context) (string, string)
	ValueOf(ctx context.Context, wallet string) Valuation
}

// AllowanceSnapshot is a wallet's allowance as of one request.
type AllowanceSnapshot struct {
	Registered     bool
	Dev            bool
	Mode           string
	Allocation     decimal.Decimal
	Used           decimal.Decimal
	Remaining      decimal.Decimal
	USDValue       decimal.Decimal
	HighestBalance decimal.Decimal
	NextReset      *time.Time

	// set by Register only
	TokenBalance decimal.Decimal
	TokenPrice   decimal.Decimal
}

type SpendResult struct {
	Used      decimal.Decimal
	Remaining decimal.Decimal
}

type AllowanceOptions struct {
	USDPerUnit  decimal.Decimal
	ResetWindow time.Duration
	DevWallets  []string
	Now         func() time.Time
}

// AllowanceService meters the holdings-based allowance: floor(value / USDPerUnit) units per
// rolling window, sized from the best value seen so that a dip between resets costs nothing.
type AllowanceService struct {
	repo       *repository.AllowanceRepository
	valuator   valuator
	usdPerUnit decimal.Decimal
	window     time.Duration
	devWallets map[string]bool
	now        func() time.Time
	log        *zap.Logger
}

func NewAllowanceService(repo *repository.AllowanceRepository, v valuator, opts AllowanceOptions, log *zap.Logger) *AllowanceService {
	if !opts.USDPerUnit.IsPositive() {
		opts.USDPerUnit = decimal.NewFromInt(50)
	}
	if opts.ResetWindow <= 0 {
		opts.ResetWindow = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	devs := make(map[string]bool, len(opts.DevWallets))
	for _, w := range opts.DevWallets {
		devs[w] = true
	}
	return &AllowanceService{
		repo:       repo,
		valuator:   v,
		usdPerUnit: opts.USDPerUnit,
		window:     opts.ResetWindow,
		devWallets: devs,
		now:        opts.Now,
		log:        log,
	}
}

func (s *AllowanceService) IsDev(wallet string) bool {
	return s.devWallets[wallet]
}

func (s *AllowanceService) Mode(ctx context.Context) (string, string) {
	return s.valuator.Mode(ctx)
}

func (s *AllowanceService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Allocation is floor(usd / USDPerUnit).
func (s *AllowanceService) Allocation(usd decimal.Decimal) decimal.Decimal {
	if !usd.IsPositive() {
		return decimal.Zero
	}
	return usd.Div(s.usdPerUnit).Floor()
}

func (s *AllowanceService) devSnapshot() *AllowanceSnapshot {
	next := s.clock().Add(devHorizon)
	return &AllowanceSnapshot{
		Registered: true,
		Dev:        true,
		Mode:       ModeDev,
		Allocation: DevAllocation,
		Used:       decimal.Zero,
		Remaining:  DevAllocation,
		NextReset:  &next,
	}
}

func (s *AllowanceService) snapshot(row *model.WalletAllowance, mode string) *AllowanceSnapshot {
	next := row.LastResetAt.Add(s.window)
	return &AllowanceSnapshot{
		Registered:     true,
		Mode:           mode,
		Allocation:     row.TokenAllocation,
		Used:           row.TokensUsed,
		Remaining:      row.Remaining(),
		USDValue:       row.USDBalanceSnapshot,
		HighestBalance: row.HighestBalanceSeen,
		NextReset:      &next,
	}
}

// Status reports the wallet's allowance, starting a new window first if the current one has
// elapsed. Unknown wallets come back with Registered false and nothing is stored.
func (s *AllowanceService) Status(ctx context.Context, wallet string) (*AllowanceSnapshot, error) {
	if s.IsDev(wallet) {
		return s.devSnapshot(), nil
	}
	mode, _ := s.valuator.Mode(ctx)
	row, err := s.repo.FindByWallet(ctx, wallet)
	if errors.Is(err, repository.ErrNotFound) {
		return &AllowanceSnapshot{
			Mode:       mode,
			Allocation: decimal.Zero,
			Used:       decimal.Zero,
			Remaining:  decimal.Zero,
			USDValue:   decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find allowance: %w", err)
	}
	row, err = s.resetIfDue(ctx, row, nil)
	if err != nil {
		return nil, err
	}
	return s.snapshot(row, mode), nil
}

// Register creates the wallet's row on first sight. For a known wallet it behaves like Status
// and additionally lifts the allocation at once when holdings exceed the best value seen.
func (s *AllowanceService) Register(ctx context.Context, wallet string) (*AllowanceSnapshot, error) {
	if s.IsDev(wallet) {
		snap := s.devSnapshot()
		snap.TokenBalance = decimal.Zero
		snap.TokenPrice = decimal.Zero
		return snap, nil
	}

	val := s.valuator.ValueOf(ctx, wallet)
	now := s.clock()

	row, err := s.repo.FindByWallet(ctx, wallet)
	if errors.Is(err, repository.ErrNotFound) {
		created, cerr := s.repo.Create(ctx, &model.WalletAllowance{
			WalletAddress:      wallet,
			USDBalanceSnapshot: val.USD,
			HighestBalanceSeen: val.USD,
			TokenAllocation:    s.Allocation(val.USD),
			TokensUsed:         decimal.Zero,
			FirstConnectedAt:   now,
			LastResetAt:        now,
			UpdatedAt:          now,
		})
		if cerr != nil {
			return nil, fmt.Errorf("create allowance: %w", cerr)
		}
		if created {
			s.log.Info("premium wallet registered",
				zap.String("wallet", wallet), zap.String("usd", val.USD.String()), zap.String("mode", val.Mode))
		}
		// a concurrent register may have won the insert; either way the row exists now
		row, err = s.repo.FindByWallet(ctx, wallet)
	}
	if err != nil {
		return nil, fmt.Errorf("find allowance: %w", err)
	}

	row, err = s.resetIfDue(ctx, row, &val)
	if err != nil {
		return nil, err
	}
	if val.USD.GreaterThan(row.HighestBalanceSeen) {
		raised, err := s.repo.RaiseHighest(ctx, wallet, val.USD, s.Allocation(val.USD), now)
		if err != nil {
			return nil, fmt.Errorf("raise allowance: %w", err)
		}
		if raised {
			s.log.Info("premium allowance raised",
				zap.String("wallet", wallet), zap.String("usd", val.USD.String()))
		}
		if row, err = s.repo.FindByWallet(ctx, wallet); err != nil {
			return nil, fmt.Errorf("find allowance: %w", err)
		}
	}

	snap := s.snapshot(row, val.Mode)
	snap.USDValue = val.USD
	snap.TokenBalance = val.Balance
	snap.TokenPrice = val.Price
	return snap, nil
}

// Spend consumes cost from the wallet's remaining allowance. On ErrInsufficientAllowance the
// returned result still carries the current remaining.
func (s *AllowanceService) Spend(ctx context.Context, wallet string, cost decimal.Decimal) (*SpendResult, error) {
	if !cost.IsPositive() {
		return nil, ErrInvalidCost
	}
	if s.IsDev(wallet) {
		return &SpendResult{Used: decimal.Zero, Remaining: DevAllocation}, nil
	}

	row, err := s.repo.FindByWallet(ctx, wallet)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("find allowance: %w", err)
	}
	if _, err = s.resetIfDue(ctx, row, nil); err != nil {
		return nil, err
	}

	ok, err := s.repo.Consume(ctx, wallet, cost, s.clock())
	if err != nil {
		return nil, fmt.Errorf("consume allowance: %w", err)
	}
	if row, err = s.repo.FindByWallet(ctx, wallet); err != nil {
		return nil, fmt.Errorf("find allowance: %w", err)
	}
	res := &SpendResult{Used: row.TokensUsed, Remaining: row.Remaining()}
	if !ok {
		return res, ErrInsufficientAllowance
	}
	return res, nil
}

// resetIfDue starts a new window when the current one has run its course. The new allocation
// uses the larger of the current value and the best value seen. val may be passed when the
// caller has already priced the wallet.
func (s *AllowanceService) resetIfDue(ctx context.Context, row *model.WalletAllowance, val *Valuation) (*model.WalletAllowance, error) {
	now := s.clock()
	if now.Sub(row.LastResetAt) < s.window {
		return row, nil
	}
	if val == nil {
		v := s.valuator.ValueOf(ctx, row.WalletAddress)
		val = &v
	}
	// A concurrent raise can lift the high between our read and the reset. Reset refuses to
	// lower it, so re-read and try again while the window is still due.
	for attempt := 0; attempt < resetAttempts; attempt++ {
		effective := decimal.Max(val.USD, row.HighestBalanceSeen)
		reset, err := s.repo.Reset(ctx, row.WalletAddress, val.USD, effective, s.Allocation(effective), now, now.Add(-s.window))
		if err != nil {
			return nil, fmt.Errorf("reset allowance: %w", err)
		}
		if reset {
			s.log.Info("premium allowance reset",
				zap.String("wallet", row.WalletAddress),
				zap.String("usd", val.USD.String()),
				zap.String("allocation", s.Allocation(effective).String()))
			break
		}
		if row, err = s.repo.FindByWallet(ctx, row.WalletAddress); err != nil {
			return nil, fmt.Errorf("find allowance: %w", err)
		}
		if now.Sub(row.LastResetAt) < s.window {
			return row, nil
		}
	}
	fresh, err := s.repo.FindByWallet(ctx, row.WalletAddress)
	if err != nil {
		return nil, fmt.Errorf("find allowance: %w", err)
	}
	return fresh, nil
}
