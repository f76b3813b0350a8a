package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/service"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/utils"
	"go.uber.org/zap"
)

type PremiumHandler struct {
	allowance  *service.AllowanceService
	membership *service.MembershipService
	devWallets []string
	log        *zap.Logger
}

func NewPremiumHandler(allowance *service.AllowanceService, membership *service.MembershipService, devWallets []string, log *zap.Logger) *PremiumHandler {
	return &PremiumHandler{allowance: allowance, membership: membership, devWallets: devWallets, log: log}
}

type walletCostRequest struct {
	Wallet string          `json:"wallet" binding:"required,wallet"`
	Cost   decimal.Decimal `json:"cost"`
}

func badgeFields(h gin.H, badge *string) gin.H {
	h["badge"] = nil
	h["badgeConfig"] = nil
	if badge != nil && *badge != "" {
		h["badge"] = *badge
		if b, ok := service.LookupBadge(*badge); ok {
			h["badgeConfig"] = b
		}
	}
	return h
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func allowanceJSON(s *service.AllowanceSnapshot) gin.H {
	h := gin.H{
		"registered":     s.Registered,
		"allocation":     num(s.Allocation),
		"used":           num(s.Used),
		"remaining":      num(s.Remaining),
		"nextReset":      timeOrNil(s.NextReset),
		"usdValue":       num(s.USDValue),
		"highestBalance": num(s.HighestBalance),
		"mode":           s.Mode,
	}
	if s.Dev {
		h["dev"] = true
		dev := "dev"
		return badgeFields(h, &dev)
	}
	return h
}

// GET /api/premium/mode
func (h *PremiumHandler) Mode(c *gin.Context) {
	mode, contract := h.allowance.Mode(c.Request.Context())
	var addr interface{}
	if contract != "" {
		addr = contract
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode, "contractAddress": addr})
}

// GET /api/premium/status?wallet=
func (h *PremiumHandler) Status(c *gin.Context) {
	wallet, ok := walletQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	snap, err := h.allowance.Status(ctx, wallet)
	if err != nil {
		serverError(c, err)
		return
	}
	if snap.Dev {
		c.JSON(http.StatusOK, allowanceJSON(snap))
		return
	}

	member, err := h.membership.Balance(ctx, wallet)
	if err != nil {
		serverError(c, err)
		return
	}
	acct := member.Account
	if !snap.Registered && member.Registered && acct.PremiumBalance.IsPositive() {
		c.JSON(http.StatusOK, badgeFields(gin.H{
			"registered":     true,
			"allocation":     num(acct.PremiumBalance),
			"used":           0,
			"remaining":      num(acct.PremiumBalance),
			"nextReset":      nil,
			"usdValue":       0,
			"highestBalance": 0,
			"mode":           service.ModePurchase,
		}, acct.Badge))
		return
	}
	c.JSON(http.StatusOK, badgeFields(allowanceJSON(snap), acct.Badge))
}

// POST /api/premium/register
func (h *PremiumHandler) Register(c *gin.Context) {
	var req struct {
		Wallet string `json:"wallet" binding:"required,wallet"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	wallet := utils.NormalizeAddress(req.Wallet)
	snap, err := h.allowance.Register(c.Request.Context(), wallet)
	if err != nil {
		serverError(c, err)
		return
	}
	out := allowanceJSON(snap)
	out["tokenBalance"] = num(snap.TokenBalance)
	out["tokenPrice"] = num(snap.TokenPrice)
	c.JSON(http.StatusOK, out)
}

// POST /api/premium/use
func (h *PremiumHandler) Use(c *gin.Context) {
	var req walletCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	wallet := utils.NormalizeAddress(req.Wallet)
	res, err := h.allowance.Spend(c.Request.Context(), wallet, req.Cost)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "used": num(res.Used), "remaining": num(res.Remaining)})
	case errors.Is(err, service.ErrInvalidCost):
		badRequest(c, err.Error())
	case errors.Is(err, service.ErrNotRegistered):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientAllowance):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "remaining": num(res.Remaining)})
	default:
		serverError(c, err)
	}
}

// POST /api/premium/purchase
func (h *PremiumHandler) Purchase(c *gin.Context) {
	var req struct {
		Wallet string `json:"wallet"`
		TxHash string `json:"tx_hash"`
		Plan   string `json:"plan"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	res, err := h.membership.Purchase(c.Request.Context(), strings.TrimSpace(req.Wallet), strings.TrimSpace(req.TxHash), req.Plan)
	if err != nil {
		h.purchaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"balanceAdded": num(res.BalanceAdded),
		"newBalance":   num(res.NewBalance),
		"plan":         res.Plan.Name,
	})
}

func (h *PremiumHandler) purchaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTxNotFound), errors.Is(err, service.ErrTxPending):
		badRequest(c, "transaction not found on BSC, please wait a moment and try again")
	case errors.Is(err, service.ErrInvalidWallet),
		errors.Is(err, service.ErrInvalidTxHash),
		errors.Is(err, service.ErrUnknownPlan),
		errors.Is(err, service.ErrTxAlreadyUsed),
		errors.Is(err, service.ErrNoMatchingTransfer),
		errors.Is(err, service.ErrTxFailed),
		errors.Is(err, service.ErrSenderMismatch),
		errors.Is(err, service.ErrUnderpaid):
		badRequest(c, err.Error())
	case errors.Is(err, service.ErrExplorerUnavailable):
		h.log.Warn("purchase verification unavailable", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment verification is temporarily unavailable, please try again"})
	default:
		serverError(c, err)
	}
}

// GET /api/premium/balance?wallet=
func (h *PremiumHandler) Balance(c *gin.Context) {
	wallet, ok := walletQuery(c)
	if !ok {
		return
	}
	snap, err := h.membership.Balance(c.Request.Context(), wallet)
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, memberJSON(snap))
}

func memberJSON(snap *service.MembershipSnapshot) gin.H {
	a := snap.Account
	out := gin.H{
		"registered":     snap.Registered,
		"premiumBalance": num(a.PremiumBalance),
		"totalPurchased": num(a.TotalPurchased),
		"totalUsed":      num(a.TotalUsed),
	}
	if !snap.Registered {
		return out
	}
	out["currentPlan"] = a.CurrentPlan
	out["planType"] = a.PlanType
	out["planExpiresAt"] = timeOrNil(a.PlanExpiresAt)
	out["status"] = a.Status
	if snap.Dev {
		out["dev"] = true
		out["currentPlan"] = "Developer"
		out["planType"] = service.ModeDev
	}
	return badgeFields(out, a.Badge)
}

// POST /api/premium/spend
func (h *PremiumHandler) Spend(c *gin.Context) {
	var req walletCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindError(err))
		return
	}
	wallet := utils.NormalizeAddress(req.Wallet)
	if hw := utils.NormalizeAddress(c.GetHeader("X-Wallet-Address")); hw != "" && hw != wallet {
		c.JSON(http.StatusForbidden, gin.H{"error": "wallet mismatch"})
		return
	}
	remaining, err := h.membership.Spend(c.Request.Context(), wallet, req.Cost)
	switch {
	case err == nil:
		out := gin.H{"success": true, "remaining": num(remaining)}
		if h.allowance.IsDev(wallet) {
			out["dev"] = true
		}
		c.JSON(http.StatusOK, out)
	case errors.Is(err, service.ErrInvalidCost):
		badRequest(c, err.Error())
	case errors.Is(err, service.ErrNoMembership), errors.Is(err, service.ErrAccountBanned):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientBalance):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "remaining": num(remaining)})
	default:
		serverError(c, err)
	}
}

// GET /api/premium/plans
func (h *PremiumHandler) Plans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": service.Plans()})
}

// GET /api/badges
func (h *PremiumHandler) Badges(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"badges": service.Badges(), "devWallets": h.devWallets})
}
