package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port string }
type DBCfg struct{ DSN string }
type RedisCfg struct{ Addr string }

// TenancyCfg names the discriminator columns. Column is the default
// applied to entities that declare none; BranchColumn is registered for
// branch-pinned API keys.
type TenancyCfg struct {
	Column       string
	BranchColumn string
}

type SecurityCfg struct {
	AdminToken      string
	RateLimitPerMin int
	KeyCacheTTL     time.Duration
}

type WorkerCfg struct {
	ExpiryInterval time.Duration
	ExpiryBatch    int
}

type Cfg struct {
	App     AppCfg
	DB      DBCfg
	Redis   RedisCfg
	Tenancy TenancyCfg
	Sec     SecurityCfg
	Worker  WorkerCfg
}

func Load() Cfg {
	// 1) Load .env into process env (if file exists)
	_ = godotenv.Load()

	// 2) Read from env via viper
	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ADMIN_TOKEN", "")
	viper.SetDefault("RATE_LIMIT_PER_MIN", 300)
	viper.SetDefault("KEY_CACHE_TTL", "5m")
	viper.SetDefault("TENANT_COLUMN", "tenant_id")
	viper.SetDefault("TENANT_BRANCH_COLUMN", "branch_id")
	viper.SetDefault("EXPIRY_INTERVAL", "1m")
	viper.SetDefault("EXPIRY_BATCH", 100)

	cfg := Cfg{
		App: AppCfg{
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetString("APP_PORT"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Tenancy: TenancyCfg{
			Column:       strings.TrimSpace(viper.GetString("TENANT_COLUMN")),
			BranchColumn: strings.TrimSpace(viper.GetString("TENANT_BRANCH_COLUMN")),
		},
		Sec: SecurityCfg{
			AdminToken:      strings.TrimSpace(viper.GetString("ADMIN_TOKEN")),
			RateLimitPerMin: viper.GetInt("RATE_LIMIT_PER_MIN"),
			KeyCacheTTL:     viper.GetDuration("KEY_CACHE_TTL"),
		},
		Worker: WorkerCfg{
			ExpiryInterval: viper.GetDuration("EXPIRY_INTERVAL"),
			ExpiryBatch:    viper.GetInt("EXPIRY_BATCH"),
		},
	}

	// 3) Fail fast on required settings
	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	if cfg.Tenancy.Column == "" {
		log.Fatal().Msg("TENANT_COLUMN cannot be blank")
	}

	return cfg
}
