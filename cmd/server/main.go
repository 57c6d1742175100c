package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/suspectuso/ton-energy/internal/api"
	"github.com/suspectuso/ton-energy/internal/config"
	"github.com/suspectuso/ton-energy/internal/contract"
	"github.com/suspectuso/ton-energy/internal/ledger"
	"github.com/suspectuso/ton-energy/internal/lock"
	"github.com/suspectuso/ton-energy/internal/monitor"
	"github.com/suspectuso/ton-energy/internal/payment"
	"github.com/suspectuso/ton-energy/internal/storage"
	"github.com/suspectuso/ton-energy/internal/telegram"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

// store is what both storage backends provide
type store interface {
	ledger.Store
	telegram.WalletLinks
	telegram.Credits
	Close() error
}

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load config
	cfg := config.Load()

	// Setup logger
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(log)

	if envErr != nil {
		log.Debug("no .env file found")
	}

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	st, err := openStore(cfg.DBPath)
	if err != nil {
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	defer st.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	// Create context cancelled on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize locker
	locker, closeLocker, err := openLocker(ctx, cfg, log)
	if err != nil {
		log.Error("init locker", "error", err)
		os.Exit(1)
	}
	defer closeLocker()

	// Initialize toncenter client
	client := toncenter.NewClient(cfg.TonAPIBaseURL, cfg.TonAPIKey)
	log.Info("toncenter client initialized",
		"base_url", cfg.TonAPIBaseURL,
		"testnet", cfg.Testnet,
		"api_key", cfg.TonAPIKey != "",
	)

	matcher := payment.NewMatcher(client, cfg.Recipient(), log, payment.WithWindow(cfg.LookupWindow))
	accounts := ledger.New(st, log, ledger.WithLocker(locker))
	reporter := monitor.NewReporter(client, log)

	if cfg.HasContract() {
		go checkContract(ctx, client, cfg.ContractAddress, log)
	}

	// Start telegram bot
	if cfg.BotToken != "" {
		bot, err := telegram.New(cfg, accounts, st, st, log)
		if err != nil {
			log.Error("init telegram bot", "error", err)
			os.Exit(1)
		}
		go bot.Start(ctx)
	} else {
		log.Info("BOT_TOKEN not set, telegram bot disabled")
	}

	handler := api.NewHandler(accounts, matcher, reporter, cfg.OwnerWallet, cfg.ContractAddress, log)
	server := api.NewServer(api.NewRouter(handler, log), log)

	log.Info("payment recipient", "address", toncenter.ShortAddr(cfg.Recipient(), 6))
	if err := server.Start(ctx, cfg.Port); err != nil {
		log.Error("api server", "error", err)
		os.Exit(1)
	}
	log.Info("shutting down...")
}

func openStore(path string) (store, error) {
	if path == ":memory:" {
		return storage.NewMemory(), nil
	}
	s, err := storage.New(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openLocker(ctx context.Context, cfg *config.Config, log *slog.Logger) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewKeyedMutex(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	log.Info("redis locker initialized", "addr", cfg.RedisAddr, "ttl", cfg.LockTTL)

	opts := lock.DefaultRedisOptions()
	opts.TTL = cfg.LockTTL
	return lock.NewRedisLocker(rdb, opts, log), func() { rdb.Close() }, nil
}

// checkContract warns when the deployed contract charges other prices than the matcher expects
func checkContract(ctx context.Context, client *toncenter.Client, address string, log *slog.Logger) {
	prices, err := contract.New(address, client).EnergyPrices(ctx)
	if err != nil {
		log.Warn("read contract prices", "address", toncenter.ShortAddr(address, 6), "error", err)
		return
	}
	if err := payment.CheckContractPrices(prices); err != nil {
		log.Warn("contract prices differ from price table", "error", err)
		return
	}
	log.Info("contract prices match price table", "address", toncenter.ShortAddr(address, 6))
}
