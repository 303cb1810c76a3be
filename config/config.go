package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	APIBaseURL string
	Port       string
	GinMode    string
	LogLevel   string

	StoreDriver        string
	StoreDSN           string
	StoreMaxValueBytes int

	AdminPIN  string
	JWTSecret string

	MerchantVPA  string
	MerchantName string

	OrderPollInterval time.Duration
	AdminPollInterval time.Duration
	MenuCacheTTL      time.Duration
	HTTPTimeout       time.Duration

	AllowedOrigin string
	// RateLimitPerMinute caps requests per client IP. Zero disables it.
	RateLimitPerMinute int
}

// SetDefaults registers the defaults on v. Keys match the environment
// variable names with AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("API_URL", "http://localhost:3000")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("STORE_DSN", "table-order.db")
	v.SetDefault("STORE_MAX_VALUE_BYTES", 5<<20)
	v.SetDefault("ADMIN_PIN", "2512")
	v.SetDefault("JWT_SECRET", "table-order-dev-secret")
	v.SetDefault("MERCHANT_VPA", "merchant@upi")
	v.SetDefault("MERCHANT_NAME", "Cafe Merchant")
	v.SetDefault("ORDER_POLL_INTERVAL", "10s")
	v.SetDefault("ADMIN_POLL_INTERVAL", "30s")
	v.SetDefault("MENU_CACHE_TTL", "5m")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("ALLOWED_ORIGIN", "*")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 600)
}

// Load reads .env (if present) into the environment and then resolves the
// configuration through v, so bound flags override env which overrides
// defaults.
func Load(v *viper.Viper, envFiles ...string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load(envFiles...)

	SetDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		APIBaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString("API_URL")), "/"),
		Port:               v.GetString("PORT"),
		GinMode:            v.GetString("GIN_MODE"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		StoreDriver:        strings.ToLower(v.GetString("STORE_DRIVER")),
		StoreDSN:           v.GetString("STORE_DSN"),
		StoreMaxValueBytes: v.GetInt("STORE_MAX_VALUE_BYTES"),
		AdminPIN:           v.GetString("ADMIN_PIN"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		MerchantVPA:        v.GetString("MERCHANT_VPA"),
		MerchantName:       v.GetString("MERCHANT_NAME"),
		OrderPollInterval:  v.GetDuration("ORDER_POLL_INTERVAL"),
		AdminPollInterval:  v.GetDuration("ADMIN_POLL_INTERVAL"),
		MenuCacheTTL:       v.GetDuration("MENU_CACHE_TTL"),
		HTTPTimeout:        v.GetDuration("HTTP_TIMEOUT"),
		AllowedOrigin:      v.GetString("ALLOWED_ORIGIN"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_URL is not set")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("API_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.StoreDriver != "sqlite" && c.StoreDriver != "mysql" {
		return fmt.Errorf("STORE_DRIVER must be sqlite or mysql, got %q", c.StoreDriver)
	}
	if c.StoreDSN == "" {
		return fmt.Errorf("STORE_DSN is not set")
	}
	if len(c.AdminPIN) != 4 {
		return fmt.Errorf("ADMIN_PIN must have 4 digits")
	}
	for _, r := range c.AdminPIN {
		if r < '0' || r > '9' {
			return fmt.Errorf("ADMIN_PIN must have 4 digits")
		}
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if c.MerchantVPA == "" {
		return fmt.Errorf("MERCHANT_VPA is not set")
	}
	if c.OrderPollInterval <= 0 || c.AdminPollInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	return nil
}

// InitDB opens the storage database for the configured driver.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case "mysql":
		dialector = mysql.Open(cfg.StoreDSN)
	default:
		dialector = sqlite.Open(cfg.StoreDSN)
	}

	gormCfg := &gorm.Config{}
	if cfg.GinMode == "release" {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	return db, nil
}
