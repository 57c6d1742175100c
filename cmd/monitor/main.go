package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/suspectuso/ton-energy/internal/config"
	"github.com/suspectuso/ton-energy/internal/monitor"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

const programName = "energy-monitor"

var globalFlags = struct {
	address string
	testnet bool
	debug   bool
}{}

// env is shared by every subcommand once the root pre-run has finished
type env struct {
	cfg      *config.Config
	address  string
	client   *toncenter.Client
	reporter *monitor.Reporter
	log      *slog.Logger
}

var app env

func commonRun(cmd *cobra.Command) error {
	// .env is optional
	_ = godotenv.Load()
	cfg := config.Load()

	level := cfg.LogLevel
	if globalFlags.debug {
		level = slog.LevelDebug
	}
	// logs go to stderr so stdout stays the report
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	baseURL := cfg.TonAPIBaseURL
	if cmd.Flags().Changed("testnet") {
		cfg.Testnet = globalFlags.testnet
		baseURL = toncenter.BaseURL(globalFlags.testnet)
	}

	address := globalFlags.address
	if address == "" {
		address = cfg.OwnerWallet
	}

	client := toncenter.NewClient(baseURL, cfg.TonAPIKey)
	app = env{
		cfg:      cfg,
		address:  address,
		client:   client,
		reporter: monitor.NewReporter(client, log),
		log:      log,
	}
	log.Debug("monitor configured", "base_url", baseURL, "address", address)
	return nil
}

// requireAddress fails commands that read a wallet when none is known
func requireAddress() error {
	if app.address == "" {
		return fmt.Errorf("no wallet address: pass --address or set OWNER_WALLET")
	}
	return nil
}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Inspect energy payments received by a TON wallet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return commonRun(cmd)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().
		StringVarP(&globalFlags.address, "address", "a", "", "wallet to inspect (default OWNER_WALLET)")
	rootCmd.PersistentFlags().
		BoolVar(&globalFlags.testnet, "testnet", false, "use the testnet toncenter endpoint")
	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")

	// Subcommands
	rootCmd.AddCommand(monitorCommand())
	rootCmd.AddCommand(balanceCommand())
	rootCmd.AddCommand(checkCommand())
	rootCmd.AddCommand(waitCommand())
	rootCmd.AddCommand(pricesCommand())
	rootCmd.AddCommand(payloadCommand())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}
