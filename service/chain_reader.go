package service

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultTokenDecimals = 18

var errEmptyResult = errors.New("empty call result")

// read-only views used against BEP-20 tokens, the factory and pairs
const chainViewsABIJSON = `[
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"type":"function"},
{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"type":"function"}
]`

// RPCChainReader issues eth_call against an ordered list of endpoints. Any failure on one
// endpoint moves on to the next; callers only see "no result".
type RPCChainReader struct {
	callers []ethereum.ContractCaller
	timeout time.Duration
	views   abi.ABI
	log     *zap.Logger
}

// NewRPCChainReader dials every URL. Endpoints that cannot be dialed are skipped.
func NewRPCChainReader(urls []string, timeout time.Duration, log *zap.Logger) (*RPCChainReader, error) {
	callers := make([]ethereum.ContractCaller, 0, len(urls))
	for _, u := range urls {
		client, err := ethclient.Dial(u)
		if err != nil {
			log.Warn("skip rpc endpoint", zap.String("url", u), zap.Error(err))
			continue
		}
		callers = append(callers, client)
	}
	if len(callers) == 0 {
		return nil, errors.New("no usable rpc endpoint")
	}
	return NewChainReaderWithCallers(callers, timeout, log)
}

func NewChainReaderWithCallers(callers []ethereum.ContractCaller, timeout time.Duration, log *zap.Logger) (*RPCChainReader, error) {
	views, err := abi.JSON(strings.NewReader(chainViewsABIJSON))
	if err != nil {
		return nil, err
	}
	return &RPCChainReader{callers: callers, timeout: timeout, views: views, log: log}, nil
}

// Call runs a read-only call and returns the raw result, or false when every endpoint failed
// or answered with an empty result.
func (r *RPCChainReader) Call(ctx context.Context, to common.Address, data []byte) ([]byte, bool) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	attempts := make([]Attempt[[]byte], len(r.callers))
	for i, caller := range r.callers {
		attempts[i] = func(ctx context.Context) ([]byte, error) {
			out, err := caller.CallContract(ctx, msg, nil)
			if err != nil {
				return nil, err
			}
			if len(out) == 0 {
				return nil, errEmptyResult
			}
			return out, nil
		}
	}
	out, err := FirstSuccess(ctx, r.timeout, attempts)
	if err != nil {
		r.log.Debug("eth_call failed on all endpoints", zap.String("to", to.Hex()), zap.Error(err))
		return nil, false
	}
	return out, true
}

func (r *RPCChainReader) pack(method string, args ...interface{}) []byte {
	data, err := r.views.Pack(method, args...)
	if err != nil {
		// only reachable with a broken ABI definition
		panic(err)
	}
	return data
}

// FetchDecimals falls back to 18 when the token does not answer.
func (r *RPCChainReader) FetchDecimals(ctx context.Context, token common.Address) int32 {
	out, ok := r.Call(ctx, token, r.pack("decimals"))
	if !ok || len(out) < 32 {
		return DefaultTokenDecimals
	}
	d := new(big.Int).SetBytes(out[:32])
	if !d.IsInt64() || d.Int64() > 255 {
		return DefaultTokenDecimals
	}
	return int32(d.Int64())
}

// FetchRawBalance returns the owner's balance in the token's smallest unit.
func (r *RPCChainReader) FetchRawBalance(ctx context.Context, owner, token common.Address) (*big.Int, bool) {
	out, ok := r.Call(ctx, token, r.pack("balanceOf", owner))
	if !ok {
		return nil, false
	}
	if len(out) > 32 {
		out = out[:32]
	}
	return new(big.Int).SetBytes(out), true
}

// FetchBalance returns the owner's balance in whole tokens, truncated to 4 decimal places.
// Unreachable chains read as zero.
func (r *RPCChainReader) FetchBalance(ctx context.Context, owner, token common.Address) decimal.Decimal {
	raw, ok := r.FetchRawBalance(ctx, owner, token)
	if !ok {
		return decimal.Zero
	}
	dec := r.FetchDecimals(ctx, token)
	return decimal.NewFromBigInt(raw, -dec).Truncate(4)
}

// FetchPairAddress resolves the AMM pair of a and b. Token order does not matter.
func (r *RPCChainReader) FetchPairAddress(ctx context.Context, factory, a, b common.Address) (common.Address, bool) {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	out, ok := r.Call(ctx, factory, r.pack("getPair", a, b))
	if !ok || len(out) < 32 {
		return common.Address{}, false
	}
	pair := common.BytesToAddress(out[12:32])
	if pair == (common.Address{}) {
		return common.Address{}, false
	}
	return pair, true
}

// FetchReserves returns the pair's (reserve0, reserve1).
func (r *RPCChainReader) FetchReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, bool) {
	out, ok := r.Call(ctx, pair, r.pack("getReserves"))
	if !ok || len(out) < 64 {
		return nil, nil, false
	}
	return new(big.Int).SetBytes(out[:32]), new(big.Int).SetBytes(out[32:64]), true
}
