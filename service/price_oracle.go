package service

import (
	"bytes"
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const pricePrecision = 18

var errNoReserves = errors.New("pair reserves unavailable")

type pairReader interface {
	FetchDecimals(ctx context.Context, token common.Address) int32
	FetchPairAddress(ctx context.Context, factory, a, b common.Address) (common.Address, bool)
	FetchReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, bool)
}

// PriceOracle quotes a token in the reference stablecoin from the AMM pair reserves.
type PriceOracle struct {
	chain   pairReader
	factory common.Address
	stable  common.Address
}

func NewPriceOracle(chain pairReader, factory, stable common.Address) *PriceOracle {
	return &PriceOracle{chain: chain, factory: factory, stable: stable}
}

// PriceOf returns the stablecoin price of one whole token. Zero means unknown: no pair,
// unreachable chain, or an empty side of the pool.
func (o *PriceOracle) PriceOf(ctx context.Context, token common.Address) decimal.Decimal {
	pair, ok := o.chain.FetchPairAddress(ctx, o.factory, token, o.stable)
	if !ok {
		return decimal.Zero
	}

	// reserves and both decimals are independent reads; a pool without reserves
	// cancels the decimals lookups
	var (
		r0, r1              *big.Int
		tokenDec, stableDec int32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var found bool
		if r0, r1, found = o.chain.FetchReserves(gctx, pair); !found {
			return errNoReserves
		}
		return nil
	})
	g.Go(func() error {
		tokenDec = o.chain.FetchDecimals(gctx, token)
		return nil
	})
	g.Go(func() error {
		stableDec = o.chain.FetchDecimals(gctx, o.stable)
		return nil
	})
	if err := g.Wait(); err != nil {
		return decimal.Zero
	}

	// the pair stores reserves by ascending token address
	tokenReserve, stableReserve := r0, r1
	if bytes.Compare(token.Bytes(), o.stable.Bytes()) > 0 {
		tokenReserve, stableReserve = r1, r0
	}
	if tokenReserve.Sign() == 0 || stableReserve.Sign() == 0 {
		return decimal.Zero
	}

	stableAmount := decimal.NewFromBigInt(stableReserve, -stableDec)
	tokenAmount := decimal.NewFromBigInt(tokenReserve, -tokenDec)
	return stableAmount.DivRound(tokenAmount, pricePrecision)
}
