package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrTxNotFound         = errors.New("transaction not found")
	ErrTxPending          = errors.New("transaction not yet mined")
	ErrNoMatchingTransfer = errors.New("no matching stablecoin transfer to payment wallet")
)

// Transfer(address,address,uint256)
var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

const transferABIJSON = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`

// Payment is a stablecoin transfer to the payment wallet found in a mined transaction.
type Payment struct {
	TxHash      string
	Success     bool
	From        string
	To          string
	Amount      decimal.Decimal
	BlockNumber uint64
}

type receiptSource interface {
	TransactionReceipt(ctx context.Context, txHash string) (*ExplorerReceipt, error)
	TransactionByHash(ctx context.Context, txHash string) (*ExplorerTx, error)
}

type TxVerifier struct {
	explorer      receiptSource
	stable        common.Address
	stableDec     int32
	paymentWallet common.Address
	erc           abi.ABI
	log           *zap.Logger
}

func NewTxVerifier(explorer receiptSource, stable, paymentWallet common.Address, stableDecimals int32, log *zap.Logger) (*TxVerifier, error) {
	erc, err := abi.JSON(strings.NewReader(transferABIJSON))
	if err != nil {
		return nil, err
	}
	return &TxVerifier{
		explorer:      explorer,
		stable:        stable,
		stableDec:     stableDecimals,
		paymentWallet: paymentWallet,
		erc:           erc,
		log:           log,
	}, nil
}

// Verify looks for a stablecoin Transfer to the payment wallet inside txHash's receipt.
// ErrTxNotFound and ErrTxPending are inconclusive; the caller may retry later.
func (v *TxVerifier) Verify(ctx context.Context, txHash string) (*Payment, error) {
	receipt, err := v.explorer.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		tx, err := v.explorer.TransactionByHash(ctx, txHash)
		if err != nil {
			return nil, err
		}
		if tx != nil {
			return nil, ErrTxPending
		}
		return nil, ErrTxNotFound
	}

	for _, lg := range receipt.Logs {
		if lg.Address != v.stable {
			continue
		}
		from, to, value, err := v.parseTransfer(lg)
		if err != nil {
			continue
		}
		if to != v.paymentWallet {
			continue
		}
		p := &Payment{
			TxHash:      txHash,
			Success:     receipt.Status == 1,
			From:        strings.ToLower(from.Hex()),
			To:          strings.ToLower(to.Hex()),
			Amount:      decimal.NewFromBigInt(value, -v.stableDec),
			BlockNumber: uint64(receipt.BlockNumber),
		}
		v.log.Debug("payment transfer found",
			zap.String("tx", txHash), zap.String("from", p.From), zap.String("amount", p.Amount.String()))
		return p, nil
	}
	return nil, ErrNoMatchingTransfer
}

func (v *TxVerifier) parseTransfer(lg ExplorerLog) (common.Address, common.Address, *big.Int, error) {
	if len(lg.Topics) < 3 || lg.Topics[0] != transferEventSig {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("not a transfer event")
	}
	from := common.BytesToAddress(lg.Topics[1].Bytes()[12:])
	to := common.BytesToAddress(lg.Topics[2].Bytes()[12:])
	var out struct{ Value *big.Int }
	if err := v.erc.UnpackIntoInterface(&out, "Transfer", lg.Data); err != nil {
		return common.Address{}, common.Address{}, nil, fmt.Errorf("abi unpack: %w", err)
	}
	return from, to, out.Value, nil
}
