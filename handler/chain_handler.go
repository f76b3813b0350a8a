package handler

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/service"
	"go.uber.org/zap"
)

type rawBalanceReader interface {
	FetchRawBalance(ctx context.Context, owner, token common.Address) (*big.Int, bool)
}

// ChainHandler exposes a capped balance probe for the dashboard.
type ChainHandler struct {
	chain   rawBalanceReader
	stable  common.Address
	usage   service.UsageCounter
	limit   int64
	log     *zap.Logger
	nowFunc func() time.Time
}

func NewChainHandler(chain rawBalanceReader, stable common.Address, usage service.UsageCounter, dailyLimit int64, log *zap.Logger) *ChainHandler {
	return &ChainHandler{chain: chain, stable: stable, usage: usage, limit: dailyLimit, log: log, nowFunc: time.Now}
}

// POST /api/bsc-balance
func (h *ChainHandler) StableBalance(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required,wallet"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid address")
		return
	}
	ctx := c.Request.Context()

	if h.limit > 0 {
		n, err := h.usage.Incr(ctx, "probe:"+c.ClientIP(), service.Day(h.nowFunc()))
		if err != nil {
			// the cap is best effort; don't fail the probe over it
			h.log.Warn("usage counter", zap.Error(err))
		} else if n > h.limit {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "daily balance lookup limit reached"})
			return
		}
	}

	raw, ok := h.chain.FetchRawBalance(ctx, common.HexToAddress(req.Address), h.stable)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"result": "0x0"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": hexutil.EncodeBig(raw)})
}
