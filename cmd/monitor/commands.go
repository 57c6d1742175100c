package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/tonkeeper/tongo/boc"

	"github.com/suspectuso/ton-energy/internal/contract"
	"github.com/suspectuso/ton-energy/internal/monitor"
	"github.com/suspectuso/ton-energy/internal/payment"
	"github.com/suspectuso/ton-energy/internal/toncenter"
)

const timeLayout = "02.01.2006 15:04:05"

func monitorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Summarize energy payments received by the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAddress(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🔍 Monitoring wallet: %s\n\n", app.address)

			s, err := app.reporter.Summarize(cmd.Context(), app.address)
			if err != nil {
				return fmt.Errorf("monitor: %w", err)
			}
			printSummary(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAddress(); err != nil {
				return err
			}
			balance, err := app.reporter.Balance(cmd.Context(), app.address)
			if err != nil {
				return fmt.Errorf("balance: %w", err)
			}
			printBalance(cmd.OutOrStdout(), app.address, balance, time.Now())
			return nil
		},
	}
}

func checkCommand() *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:   "check <hash>",
		Short: "Look up a transaction among the wallet's recent history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAddress(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🔍 Checking transaction: %s\n", args[0])

			tx, err := app.reporter.FindTransaction(cmd.Context(), app.address, args[0], window)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			printTransaction(cmd.OutOrStdout(), tx)
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", monitor.CheckWindow, "number of recent transactions to search")
	return cmd
}

func waitCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait <lt>",
		Short: "Wait until a transaction with the given logical time lands on the wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAddress(); err != nil {
				return err
			}
			if _, err := strconv.ParseUint(args[0], 10, 64); err != nil {
				return fmt.Errorf("logical time must be a number: %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "⏳ Waiting for lt %s (timeout %s)...\n", args[0], timeout)

			tx, err := app.client.WaitForTransaction(cmd.Context(), app.address, args[0], timeout)
			if errors.Is(err, toncenter.ErrConfirmationTimeout) {
				return fmt.Errorf("no transaction with lt %s after %s", args[0], timeout)
			}
			if err != nil {
				return fmt.Errorf("wait: %w", err)
			}
			printTransaction(cmd.OutOrStdout(), tx)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", toncenter.DefaultWaitTimeout, "give up after this long")
	return cmd
}

func pricesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Read the contract's state and compare its prices with the price table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			address := app.cfg.ContractAddress
			if globalFlags.address != "" {
				address = globalFlags.address
			}
			if address == "" {
				return errors.New("no contract address: pass --address or set CONTRACT_ADDRESS")
			}

			c := contract.New(address, app.client)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			prices, err := c.EnergyPrices(ctx)
			if err != nil {
				return fmt.Errorf("get_energy_prices: %w", err)
			}
			fmt.Fprintf(out, "📜 Contract: %s\n\n", address)
			printPrices(out, prices)

			if owner, err := c.OwnerAddress(ctx); err != nil {
				app.log.Warn("get_owner_address", "error", err)
			} else {
				fmt.Fprintf(out, "\n👤 Owner: %s\n", toncenter.RawToFriendly(owner))
			}
			if total, err := c.TotalCollected(ctx); err != nil {
				app.log.Warn("get_total_collected", "error", err)
			} else {
				fmt.Fprintf(out, "💎 Total collected: %s TON\n", toncenter.NanoToTON(total).StringFixed(2))
			}

			if err := payment.CheckContractPrices(prices); err != nil {
				return fmt.Errorf("contract prices out of lockstep: %w", err)
			}
			fmt.Fprintln(out, "\n✅ Contract prices match the price table")
			return nil
		},
	}
}

func payloadCommand() *cobra.Command {
	var queryID uint64
	cmd := &cobra.Command{
		Use:   "payload",
		Short: "Print base64 BOC message bodies for the contract",
	}
	cmd.PersistentFlags().Uint64Var(&queryID, "query-id", 0, "query_id field of the body")

	cmd.AddCommand(&cobra.Command{
		Use:   "buy <tier>",
		Short: "Body of a buy-energy message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("tier must be a number: %q", args[0])
			}
			body, err := contract.BuyBody(tier, queryID)
			if err != nil {
				return err
			}
			return printBody(cmd.OutOrStdout(), body)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "withdraw <ton>",
		Short: "Body of an owner withdraw message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil || !amount.IsPositive() {
				return fmt.Errorf("amount must be a positive TON value: %q", args[0])
			}
			body, err := contract.WithdrawBody(queryID, uint64(toncenter.TONToNano(amount)))
			if err != nil {
				return err
			}
			return printBody(cmd.OutOrStdout(), body)
		},
	})

	return cmd
}

// --- Output ---

func printSummary(w io.Writer, s *monitor.Summary) {
	for _, p := range s.Payments {
		fmt.Fprintf(w, "💰 [ENERGY %d] +%s TON\n", p.Tier, p.Amount.StringFixed(2))
		fmt.Fprintf(w, "   From: %s\n", shortOrUnknown(p.From, 10))
		fmt.Fprintf(w, "   Time: %s\n", p.Timestamp.Format(timeLayout))
		fmt.Fprintf(w, "   Hash: %s\n\n", shortOrUnknown(p.Hash, 16))
	}

	fmt.Fprintln(w, "📊 ENERGY STATS:")
	fmt.Fprintf(w, "   💎 Earned from energy: %s TON\n", s.TotalPayments.StringFixed(2))
	fmt.Fprintf(w, "   🔢 Energy purchases: %d\n", len(s.Payments))
	fmt.Fprintf(w, "   💵 Average purchase: %s TON\n", s.AveragePayment().StringFixed(2))

	byTier := s.ByTier()
	tiers := make([]int, 0, len(byTier))
	for tier := range byTier {
		tiers = append(tiers, tier)
	}
	sort.Ints(tiers)
	for _, tier := range tiers {
		fmt.Fprintf(w, "   ⚡ %d energy: %d\n", tier, byTier[tier])
	}

	fmt.Fprintf(w, "\n💳 Wallet balance: %s TON\n", s.TotalBalance.StringFixed(2))
	if s.LastTransaction != nil {
		fmt.Fprintf(w, "\n🕐 Last transaction: %s\n", s.LastTransaction.Timestamp().Format(timeLayout))
	}
}

func printBalance(w io.Writer, address string, balance decimal.Decimal, at time.Time) {
	fmt.Fprintf(w, "💰 Wallet balance: %s TON\n", balance.StringFixed(2))
	fmt.Fprintf(w, "   Address: %s\n", address)
	fmt.Fprintf(w, "   Checked at: %s\n", at.Format(timeLayout))
}

func printTransaction(w io.Writer, tx *toncenter.Transaction) {
	if tx == nil {
		fmt.Fprintln(w, "❌ Transaction not found")
		return
	}
	fmt.Fprintln(w, "✅ Transaction found!")
	fmt.Fprintf(w, "💰 Amount: %s TON\n", tx.Value().StringFixed(2))
	fmt.Fprintf(w, "📅 Time: %s\n", tx.Timestamp().Format(timeLayout))
	fmt.Fprintf(w, "👤 From: %s\n", orUnknown(tx.Source()))
	fmt.Fprintf(w, "👤 To: %s\n", orUnknown(tx.Destination()))
	fmt.Fprintf(w, "🔗 Hash: %s (lt %s)\n", tx.Hash(), tx.LT())
	if monitor.IsEnergyComment(tx.Comment()) {
		fmt.Fprintln(w, "🎮 Type: SECCO energy purchase")
	}
}

func printPrices(w io.Writer, p contract.Prices) {
	byTier := p.ByTier()
	for _, tier := range payment.Tiers() {
		want, _ := payment.PriceOf(tier)
		got := toncenter.NanoToTON(byTier[tier])
		mark := "✅"
		if !got.Equal(want) {
			mark = "⚠️"
		}
		fmt.Fprintf(w, "%s %3d energy: %s TON (table %s TON)\n", mark, tier, got.String(), want.String())
	}
}

func printBody(w io.Writer, body *boc.Cell) error {
	b64, err := contract.EncodeBody(body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	fmt.Fprintln(w, b64)
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func shortOrUnknown(s string, n int) string {
	if s == "" {
		return "unknown"
	}
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
