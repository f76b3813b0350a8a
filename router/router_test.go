package router

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/handler"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	walletA   = "0x00000000000000000000000000000000000000aa"
	walletB   = "0x00000000000000000000000000000000000000bb"
	devWallet = "0x00000000000000000000000000000000000000de"
	password  = "hunter2"
)

var validatorsOnce sync.Once

type stubValuator struct {
	mu  sync.Mutex
	usd map[string]decimal.Decimal
}

func (s *stubValuator) Mode(context.Context) (string, string) {
	return service.ModeReferenceStable, ""
}

func (s *stubValuator) ValueOf(_ context.Context, wallet string) service.Valuation {
	s.mu.Lock()
	defer s.mu.Unlock()
	usd := s.usd[wallet]
	return service.Valuation{Mode: service.ModeReferenceStable, Balance: usd, Price: decimal.NewFromInt(1), USD: usd}
}

type stubVerifier struct {
	payment *service.Payment
	err     error
}

func (s *stubVerifier) Verify(_ context.Context, txHash string) (*service.Payment, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.payment
	p.TxHash = txHash
	return &p, nil
}

type stubChain struct{}

func (stubChain) FetchRawBalance(context.Context, common.Address, common.Address) (*big.Int, bool) {
	return big.NewInt(255), true
}

type testEnv struct {
	engine   *gin.Engine
	valuator *stubValuator
	verifier *stubVerifier
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validatorsOnce.Do(func() { require.NoError(t, handler.RegisterValidators()) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.AutoMigrate(db))

	log := zap.NewNop()
	val := &stubValuator{usd: map[string]decimal.Decimal{}}
	ver := &stubVerifier{}

	allowance := service.NewAllowanceService(repository.NewAllowanceRepository(db), val, service.AllowanceOptions{
		USDPerUnit:  decimal.NewFromInt(50),
		ResetWindow: 24 * time.Hour,
		DevWallets:  []string{devWallet},
	}, log)
	membership := service.NewMembershipService(db, repository.NewMembershipRepository(db), repository.NewPurchaseRepository(db),
		ver, 0.02, allowance.IsDev, log)
	auth := service.NewAdminAuth("admin", password, "secret", time.Hour, service.NewMemorySessionStore(), log)
	publicDir := t.TempDir()

	h := Handlers{
		Premium:  handler.NewPremiumHandler(allowance, membership, []string{devWallet}, log),
		Admin:    handler.NewAdminHandler(auth, service.NewSettingsService(repository.NewSettingsRepository(db)), membership, log),
		Campaign: handler.NewCampaignHandler(service.NewCampaignService(repository.NewCampaignRepository(db), publicDir, log)),
		Chat:     handler.NewChatHandler(service.NewChatService(repository.NewChatRepository(db))),
		Chain:    handler.NewChainHandler(stubChain{}, common.Address{}, service.NewMemoryUsageCounter(), 2, log),
		Health:   handler.NewHealthHandler(db),
	}
	return &testEnv{
		engine:   SetupRouter(h, auth, Options{PublicDir: publicDir}, log),
		valuator: val,
		verifier: ver,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	w, out := e.do(t, http.MethodPost, "/api/admin/login", gin.H{"username": "admin", "password": password})
	require.Equal(t, http.StatusOK, w.Code)
	return out["token"].(string)
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	w, _ := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, out := env.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", out["status"])
}

func TestHoldingsAllowanceFlow(t *testing.T) {
	env := newEnv(t)
	env.valuator.usd[walletA] = decimal.NewFromInt(500)

	w, out := env.do(t, http.MethodGet, "/api/premium/status?wallet="+walletA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["registered"])

	w, out = env.do(t, http.MethodPost, "/api/premium/register", gin.H{"wallet": "0x123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid wallet address", out["error"])

	w, out = env.do(t, http.MethodPost, "/api/premium/register", gin.H{"wallet": walletA})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 10, out["allocation"])
	assert.EqualValues(t, 500, out["usdValue"])
	assert.NotNil(t, out["nextReset"])

	w, out = env.do(t, http.MethodPost, "/api/premium/use", gin.H{"wallet": walletA, "cost": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, out["remaining"])

	w, out = env.do(t, http.MethodPost, "/api/premium/use", gin.H{"wallet": walletA, "cost": 8})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.EqualValues(t, 7, out["remaining"])

	w, _ = env.do(t, http.MethodPost, "/api/premium/use", gin.H{"wallet": walletA, "cost": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/premium/use", gin.H{"wallet": walletB, "cost": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, out = env.do(t, http.MethodGet, "/api/premium/status?wallet="+walletA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["registered"])
	assert.EqualValues(t, 3, out["used"])
	assert.Equal(t, service.ModeReferenceStable, out["mode"])

	w, _ = env.do(t, http.MethodGet, "/api/premium/status?wallet=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDevWallet(t *testing.T) {
	env := newEnv(t)
	w, out := env.do(t, http.MethodGet, "/api/premium/status?wallet="+devWallet, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["dev"])
	assert.EqualValues(t, 999999, out["remaining"])
	assert.Equal(t, "dev", out["badge"])
}

func TestPurchaseFlow(t *testing.T) {
	env := newEnv(t)
	hash := "0x" + strings.Repeat("1", 64)
	env.verifier.payment = &service.Payment{Success: true, From: walletA, Amount: decimal.RequireFromString("49.90")}

	w, out := env.do(t, http.MethodPost, "/api/premium/purchase", gin.H{"wallet": walletA, "tx_hash": hash, "plan": "pro_monthly"})
	require.Equal(t, http.StatusOK, w.Code, out)
	assert.Equal(t, "Pro", out["plan"])
	assert.InDelta(t, 49.9, out["newBalance"], 1e-9)

	w, out = env.do(t, http.MethodPost, "/api/premium/purchase", gin.H{"wallet": walletA, "tx_hash": hash, "plan": "pro_monthly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.ErrTxAlreadyUsed.Error(), out["error"])

	// purchase-only wallets report the purchase track in status
	w, out = env.do(t, http.MethodGet, "/api/premium/status?wallet="+walletA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ModePurchase, out["mode"])
	assert.Equal(t, "pro", out["badge"])

	w, out = env.do(t, http.MethodGet, "/api/premium/balance?wallet="+walletA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pro", out["currentPlan"])

	w, _ = env.do(t, http.MethodPost, "/api/premium/spend", gin.H{"wallet": walletA, "cost": 1}, "X-Wallet-Address", walletB)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, out = env.do(t, http.MethodPost, "/api/premium/spend", gin.H{"wallet": walletA, "cost": "9.9"}, "X-Wallet-Address", walletA)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 40.0, out["remaining"], 1e-9)
}

func TestPurchaseVerificationOutcomes(t *testing.T) {
	env := newEnv(t)
	body := gin.H{"wallet": walletA, "tx_hash": "0x" + strings.Repeat("2", 64), "plan": "basic_monthly"}

	env.verifier.err = service.ErrTxPending
	w, _ := env.do(t, http.MethodPost, "/api/premium/purchase", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.verifier.err = service.ErrExplorerUnavailable
	w, _ = env.do(t, http.MethodPost, "/api/premium/purchase", body)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	env.verifier.err = nil
	env.verifier.payment = &service.Payment{Success: true, From: walletA, Amount: decimal.RequireFromString("5")}
	w, out := env.do(t, http.MethodPost, "/api/premium/purchase", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "payment amount too low")

	w, _ = env.do(t, http.MethodPost, "/api/premium/purchase", gin.H{"wallet": walletA, "tx_hash": "0x12", "plan": "basic_monthly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogue(t *testing.T) {
	env := newEnv(t)
	w, out := env.do(t, http.MethodGet, "/api/premium/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["plans"], 9)

	w, out = env.do(t, http.MethodGet, "/api/badges", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["badges"], 8)
	assert.Equal(t, []interface{}{devWallet}, out["devWallets"])
}

func TestAdminAuth(t *testing.T) {
	env := newEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/admin/premium/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/admin/login", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// the raw password is not a session token on the membership routes
	w, _ = env.do(t, http.MethodGet, "/api/admin/premium/stats", nil, "Authorization", "Bearer "+password)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := env.login(t)
	bearer := "Bearer " + token
	w, out := env.do(t, http.MethodGet, "/api/admin/verify", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["valid"])

	w, _ = env.do(t, http.MethodPost, "/api/admin/logout", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/admin/premium/stats", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMembers(t *testing.T) {
	env := newEnv(t)
	auth := []string{"Authorization", "Bearer " + env.login(t)}

	w, _ := env.do(t, http.MethodPost, "/api/admin/premium/members", gin.H{"wallet": walletA, "balance": 10, "badge": "pro"}, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodPost, "/api/admin/premium/members", gin.H{"wallet": walletA}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out := env.do(t, http.MethodPut, "/api/admin/premium/members/"+walletA+"/adjust", gin.H{"amount": -4}, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 6, out["newBalance"])

	w, _ = env.do(t, http.MethodPut, "/api/admin/premium/members/"+walletA+"/ban", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodPost, "/api/premium/spend", gin.H{"wallet": walletA, "cost": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(t, http.MethodPut, "/api/admin/premium/members/"+walletB+"/ban", nil, auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = env.do(t, http.MethodPut, "/api/admin/premium/members/"+walletA+"/badge", gin.H{"badge": "gold"}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = env.do(t, http.MethodGet, "/api/admin/premium/stats", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	members := out["members"].(map[string]interface{})
	assert.EqualValues(t, 1, members["total"])
	assert.EqualValues(t, 1, members["banned"])

	w, out = env.do(t, http.MethodGet, "/api/admin/premium/members?status=banned", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, out["total"])

	w, _ = env.do(t, http.MethodDelete, "/api/admin/premium/members/"+walletA, nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminSettings(t *testing.T) {
	env := newEnv(t)
	auth := []string{"Authorization", "Bearer " + env.login(t)}

	w, _ := env.do(t, http.MethodPut, "/api/admin/settings", gin.H{"settings": gin.H{"tord_contract": "0x12"}}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := "0x1000000000000000000000000000000000000ABC"
	w, out := env.do(t, http.MethodPut, "/api/admin/settings", gin.H{"settings": gin.H{"tord_contract": token}}, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	settings := out["settings"].(map[string]interface{})
	assert.Equal(t, strings.ToLower(token), settings["tord_contract"])

	w, out = env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, strings.ToLower(token), out["settings"].(map[string]interface{})["tord_contract"])
}

func TestAirdropCampaign(t *testing.T) {
	env := newEnv(t)
	pw := []string{"Authorization", "Bearer " + password}

	w, out := env.do(t, http.MethodGet, "/api/campaign", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, out["campaign"])

	w, _ = env.do(t, http.MethodPost, "/api/admin/campaign/new", gin.H{"title": "Drop"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, out = env.do(t, http.MethodPost, "/api/admin/campaign/new", gin.H{"title": "Drop"}, pw...)
	require.Equal(t, http.StatusOK, w.Code)
	id := out["campaign"].(map[string]interface{})["id"].(float64)

	w, _ = env.do(t, http.MethodPost, "/api/admin/task", gin.H{"campaign_id": id, "task_key": "follow", "label": "Follow", "points": 10}, pw...)
	require.Equal(t, http.StatusOK, w.Code)

	w, out = env.do(t, http.MethodGet, "/api/campaign", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["tasks"], 1)

	entry := gin.H{"campaign_id": id, "x_username": "alice", "tasks_completed": gin.H{"follow": gin.H{"completed": true, "points": 10}}}
	w, out = env.do(t, http.MethodPost, "/api/participate", entry)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["success"])
	assert.EqualValues(t, 10000, out["reward"])

	w, out = env.do(t, http.MethodPost, "/api/participate", entry)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["updated"])

	w, _ = env.do(t, http.MethodGet, "/api/admin/participants/1/export?token="+password, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "alice")

	w, out = env.do(t, http.MethodGet, "/api/admin/participants/1", nil, pw...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, out["total"])

	// a newer campaign closes the old one
	w, _ = env.do(t, http.MethodPost, "/api/admin/campaign/new", gin.H{}, pw...)
	require.Equal(t, http.StatusOK, w.Code)
	w, out = env.do(t, http.MethodPost, "/api/participate", entry)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, out["success"])
}

func TestChats(t *testing.T) {
	env := newEnv(t)

	w, out := env.do(t, http.MethodPost, "/api/tordai/chats", gin.H{"title": "hello", "messages": []gin.H{{"role": "user", "content": "hi"}}})
	require.Equal(t, http.StatusOK, w.Code)
	id := out["id"].(string)

	w, out = env.do(t, http.MethodGet, "/api/tordai/chats/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", out["title"])
	assert.Len(t, out["messages"], 1)

	w, _ = env.do(t, http.MethodGet, "/api/tordai/chats/"+id, nil, "X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/tordai/chats/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/tordai/chats/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStableBalanceProbeIsCapped(t *testing.T) {
	env := newEnv(t)
	for i := 0; i < 2; i++ {
		w, out := env.do(t, http.MethodPost, "/api/bsc-balance", gin.H{"address": walletA})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "0xff", out["result"])
	}
	w, _ := env.do(t, http.MethodPost, "/api/bsc-balance", gin.H{"address": walletA})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/bsc-balance", gin.H{"address": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
