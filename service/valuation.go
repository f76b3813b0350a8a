package service

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/utils"
	"go.uber.org/zap"
)

const (
	ModePrimaryToken    = "primary-token"
	ModeReferenceStable = "reference-stable"

	SettingPrimaryToken = "tord_contract"
)

// Valuation is a wallet's holdings priced in the reference stablecoin.
type Valuation struct {
	Mode    string
	Balance decimal.Decimal
	Price   decimal.Decimal
	USD     decimal.Decimal
}

type balanceReader interface {
	FetchBalance(ctx context.Context, owner, token common.Address) decimal.Decimal
}

type priceSource interface {
	PriceOf(ctx context.Context, token common.Address) decimal.Decimal
}

type settingSource interface {
	Get(ctx context.Context, key string) (string, error)
}

// HoldingsValuator prices a wallet's primary-token position, or its stablecoin balance
// when no primary token is configured or the token has no price.
type HoldingsValuator struct {
	chain    balanceReader
	prices   priceSource
	settings settingSource
	stable   common.Address
	log      *zap.Logger
}

func NewHoldingsValuator(chain balanceReader, prices priceSource, settings settingSource, stable common.Address, log *zap.Logger) *HoldingsValuator {
	return &HoldingsValuator{chain: chain, prices: prices, settings: settings, stable: stable, log: log}
}

// Mode reports the valuation mode and, in primary-token mode, the token address.
func (v *HoldingsValuator) Mode(ctx context.Context) (string, string) {
	addr, err := v.settings.Get(ctx, SettingPrimaryToken)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			v.log.Warn("read primary token setting", zap.Error(err))
		}
		return ModeReferenceStable, ""
	}
	if !utils.IsAddress(addr) {
		return ModeReferenceStable, ""
	}
	return ModePrimaryToken, utils.NormalizeAddress(addr)
}

func (v *HoldingsValuator) ValueOf(ctx context.Context, wallet string) Valuation {
	owner := common.HexToAddress(wallet)
	mode, token := v.Mode(ctx)

	if mode == ModePrimaryToken {
		tokenAddr := common.HexToAddress(token)
		balance := v.chain.FetchBalance(ctx, owner, tokenAddr)
		if !balance.IsPositive() {
			return Valuation{Mode: ModePrimaryToken, Balance: decimal.Zero, Price: decimal.Zero, USD: decimal.Zero}
		}
		price := v.prices.PriceOf(ctx, tokenAddr)
		if price.IsPositive() {
			return Valuation{Mode: ModePrimaryToken, Balance: balance, Price: price, USD: balance.Mul(price)}
		}
		v.log.Info("primary token has no price, valuing stablecoin balance", zap.String("token", token))
	}

	balance := v.chain.FetchBalance(ctx, owner, v.stable)
	return Valuation{Mode: ModeReferenceStable, Balance: balance, Price: decimal.NewFromInt(1), USD: balance}
}
