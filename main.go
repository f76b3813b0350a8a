package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/config"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/handler"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/repository"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/router"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/service"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/utils"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const bscUSDTDecimals = 18

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.LogLevel, cfg.DevLog)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

// ----------------- 初始化数据库 -----------------
func initDB(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.DBDriver) {
	case "postgres", "":
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.DBDriver, "sqlite") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer at a time
		sqlDB.SetMaxOpenConns(1)
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := initDB(cfg)
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}

	var sessions service.SessionStore
	var usage service.UsageCounter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		sessions = service.NewRedisSessionStore(rdb)
		usage = service.NewRedisUsageCounter(rdb)
		logger.Info("using redis for sessions and usage counters", zap.String("addr", cfg.RedisAddr))
	} else {
		mem := service.NewMemorySessionStore()
		go mem.Run(ctx, 10*time.Minute, logger)
		sessions = mem
		usage = service.NewMemoryUsageCounter()
	}

	// repositories
	allowanceRepo := repository.NewAllowanceRepository(db)
	memberRepo := repository.NewMembershipRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// chain
	stable := common.HexToAddress(cfg.USDTAddress)
	chain, err := service.NewRPCChainReader(cfg.RPCURLs, cfg.RPCTimeout, logger.Named("chain"))
	if err != nil {
		return fmt.Errorf("chain reader: %w", err)
	}
	oracle := service.NewPriceOracle(chain, common.HexToAddress(cfg.PancakeFactory), stable)
	valuator := service.NewHoldingsValuator(chain, oracle, settingsRepo, stable, logger.Named("valuation"))
	explorer := service.NewExplorerClient(cfg.BscScanBaseURL, cfg.BscScanAPIKey, cfg.ExplorerRPS)
	verifier, err := service.NewTxVerifier(explorer, stable, common.HexToAddress(cfg.PaymentWallet), bscUSDTDecimals, logger.Named("verifier"))
	if err != nil {
		return fmt.Errorf("tx verifier: %w", err)
	}

	// services
	allowance := service.NewAllowanceService(allowanceRepo, valuator, service.AllowanceOptions{
		USDPerUnit:  decimal.NewFromFloat(cfg.USDPerUnit),
		ResetWindow: cfg.ResetWindow,
		DevWallets:  cfg.DevWallets,
	}, logger.Named("allowance"))
	membership := service.NewMembershipService(db, memberRepo, purchaseRepo, verifier, cfg.PaymentTolerance, allowance.IsDev, logger.Named("membership"))
	settings := service.NewSettingsService(settingsRepo)
	campaigns := service.NewCampaignService(campaignRepo, cfg.PublicDir, logger.Named("campaign"))
	chats := service.NewChatService(chatRepo)
	auth := service.NewAdminAuth(cfg.AdminUsername, cfg.AdminPassword, cfg.SessionSecret, cfg.SessionTTL, sessions, logger.Named("auth"))
	if cfg.AdminPassword == "" {
		logger.Warn("ADMIN_PASSWORD is empty, admin login disabled")
	}

	if !cfg.DevLog {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handler.RegisterValidators(); err != nil {
		return err
	}
	r := router.SetupRouter(router.Handlers{
		Premium:  handler.NewPremiumHandler(allowance, membership, cfg.DevWallets, logger),
		Admin:    handler.NewAdminHandler(auth, settings, membership, logger),
		Campaign: handler.NewCampaignHandler(campaigns),
		Chat:     handler.NewChatHandler(chats),
		Chain:    handler.NewChainHandler(chain, stable, usage, cfg.ProbeDailyLimit, logger),
		Health:   handler.NewHealthHandler(db),
	}, auth, router.Options{CORSOrigins: cfg.CORSOrigins, PublicDir: cfg.PublicDir}, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
