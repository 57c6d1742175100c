package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/suspectuso/ton-energy/internal/payment"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

type Config struct {
	// HTTP
	Port int

	// Toncenter
	TonAPIKey     string
	TonAPIBaseURL string
	Testnet       bool

	// Wallets
	OwnerWallet     string
	ContractAddress string

	// Payment matching
	LookupWindow int

	// Database
	DBPath string

	// Locking
	RedisAddr string
	LockTTL   time.Duration

	// Telegram
	BotToken    string
	BotUsername string
	WebAppURL   string

	// Logging
	LogLevel slog.Level
}

func Load() *Config {
	cfg := &Config{
		// HTTP
		Port: getEnvInt("PORT", 3001),

		// Toncenter
		TonAPIKey: getEnv("TON_API_KEY", ""),
		Testnet:   getEnvBool("TON_TESTNET", getEnv("NODE_ENV", "") == "development"),

		// Wallets
		OwnerWallet: strings.TrimSpace(getEnv("OWNER_WALLET", "")),

		// Payment matching
		LookupWindow: getEnvInt("LOOKUP_WINDOW", payment.LookupWindow),

		// Database
		DBPath: getEnv("DB_PATH", "./energy.db"),

		// Locking
		RedisAddr: getEnv("REDIS_ADDR", ""),
		LockTTL:   getEnvDuration("LOCK_TTL", 30*time.Second),

		// Telegram
		BotToken:    getEnv("BOT_TOKEN", ""),
		BotUsername: getEnv("BOT_USERNAME", "secco_tap_bot"),
		WebAppURL:   getEnv("WEB_APP_URL", "https://dmitrycoinsec.github.io/secco-tap-game/"),

		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	cfg.TonAPIBaseURL = strings.TrimSuffix(getEnv("TON_API_BASE_URL", toncenter.BaseURL(cfg.Testnet)), "/")

	// payments go to the contract when one is deployed, otherwise straight to the owner
	cfg.ContractAddress = strings.TrimSpace(getEnv("CONTRACT_ADDRESS", cfg.OwnerWallet))

	return cfg
}

// Recipient is the address claimed payments must have been sent to
func (c *Config) Recipient() string {
	return c.ContractAddress
}

// HasContract reports whether a contract separate from the owner wallet is configured
func (c *Config) HasContract() bool {
	return c.ContractAddress != "" && !toncenter.SameAddress(c.ContractAddress, c.OwnerWallet)
}

// Validate checks the settings the server cannot run without
func (c *Config) Validate() error {
	var errs []error
	if c.Recipient() == "" {
		errs = append(errs, errors.New("OWNER_WALLET or CONTRACT_ADDRESS must be set"))
	}
	if c.LookupWindow <= 0 {
		errs = append(errs, fmt.Errorf("LOOKUP_WINDOW must be positive, got %d", c.LookupWindow))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
