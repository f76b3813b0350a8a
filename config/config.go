package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default BSC endpoints, tried in order.
var defaultRPCURLs = []string{
	"https://bsc-dataseed.binance.org/",
	"https://bsc-dataseed1.defibit.io/",
	"https://bsc-dataseed1.ninicoin.io/",
	"https://bsc.publicnode.com",
}

type Config struct {
	// HTTP
	Port        int
	CORSOrigins []string

	// Database
	DBDriver    string
	DatabaseDSN string

	// Chain
	RPCURLs        []string
	RPCTimeout     time.Duration
	USDTAddress    string
	PancakeFactory string
	PaymentWallet  string

	// Explorer
	BscScanAPIKey  string
	BscScanBaseURL string
	ExplorerRPS    float64

	// Premium
	USDPerUnit       float64
	ResetWindow      time.Duration
	DevWallets       []string
	PaymentTolerance float64

	// Admin
	AdminUsername string
	AdminPassword string
	SessionSecret string
	SessionTTL    time.Duration
	RedisAddr     string
	PublicDir     string

	// Limits
	ProbeDailyLimit int64

	LogLevel string
	DevLog   bool
}

// Load reads .env (if any), then config.yaml (if any), then environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 5000)
	v.SetDefault("cors_origins", "")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("database_dsn", "host=localhost user=postgres password=postgres dbname=tordlabs sslmode=disable")
	v.SetDefault("bsc_rpc_urls", strings.Join(defaultRPCURLs, ","))
	v.SetDefault("rpc_timeout", "4s")
	v.SetDefault("usdt_address", "0x55d398326f99059fF775485246999027B3197955")
	v.SetDefault("pancake_factory", "0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73")
	v.SetDefault("payment_wallet", "0x99DF34AefE68BC1d891729ad39CFa2Bd56E41e6B")
	v.SetDefault("bscscan_api_key", "")
	v.SetDefault("bscscan_base_url", "https://api.bscscan.com/api")
	v.SetDefault("explorer_rps", 4.0)
	v.SetDefault("usd_per_unit", 50.0)
	v.SetDefault("reset_window", "24h")
	v.SetDefault("payment_tolerance", 0.02)
	v.SetDefault("dev_wallets", "0xb7d0e84b85df0ca4811f0564e8d83f51011666a8,0x3e0ba08eeac78c868b425f16695608edf7483a23")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "")
	v.SetDefault("session_secret", "")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("redis_addr", "")
	v.SetDefault("public_dir", "./public")
	v.SetDefault("probe_daily_limit", 500)
	v.SetDefault("log_level", "info")
	v.SetDefault("dev_log", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{
		Port:             v.GetInt("port"),
		CORSOrigins:      splitList(v.GetString("cors_origins")),
		DBDriver:         v.GetString("db_driver"),
		DatabaseDSN:      v.GetString("database_dsn"),
		RPCURLs:          splitList(v.GetString("bsc_rpc_urls")),
		RPCTimeout:       v.GetDuration("rpc_timeout"),
		USDTAddress:      v.GetString("usdt_address"),
		PancakeFactory:   v.GetString("pancake_factory"),
		PaymentWallet:    strings.ToLower(v.GetString("payment_wallet")),
		BscScanAPIKey:    v.GetString("bscscan_api_key"),
		BscScanBaseURL:   strings.TrimSuffix(v.GetString("bscscan_base_url"), "/"),
		ExplorerRPS:      v.GetFloat64("explorer_rps"),
		USDPerUnit:       v.GetFloat64("usd_per_unit"),
		ResetWindow:      v.GetDuration("reset_window"),
		PaymentTolerance: v.GetFloat64("payment_tolerance"),
		AdminUsername:    v.GetString("admin_username"),
		AdminPassword:    v.GetString("admin_password"),
		SessionSecret:    v.GetString("session_secret"),
		SessionTTL:       v.GetDuration("session_ttl"),
		RedisAddr:        v.GetString("redis_addr"),
		PublicDir:        v.GetString("public_dir"),
		ProbeDailyLimit:  v.GetInt64("probe_daily_limit"),
		LogLevel:         v.GetString("log_level"),
		DevLog:           v.GetBool("dev_log"),
	}
	for _, w := range splitList(v.GetString("dev_wallets")) {
		cfg.DevWallets = append(cfg.DevWallets, strings.ToLower(w))
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
