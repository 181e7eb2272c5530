package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"assetbridge-nexus/internal/common"

	"github.com/spf13/cobra"
)

func newWithdrawalsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawals",
		Short: "Settle or reverse pending vault withdrawals",
	}
	cmd.AddCommand(newListWithdrawalsCommand(app))
	cmd.AddCommand(newSettleWithdrawalCommand(app))
	cmd.AddCommand(newReverseWithdrawalCommand(app))
	cmd.AddCommand(newSettlePendingCommand(app))
	cmd.AddCommand(newWatchWithdrawalsCommand(app))
	return cmd
}

func newListWithdrawalsCommand(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending withdrawals, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				pending, err := services.Accounting.ListPendingWithdrawals(ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, tx := range pending {
					fmt.Fprintf(out, "%s  user %s  %12s  %s\n",
						tx.Id, tx.UserId, common.Money(tx.Amount), tx.CreatedAt.Format("2006-01-02 15:04:05"))
				}
				fmt.Fprintf(out, "%d pending withdrawal(s)\n", len(pending))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows (0 uses the settlement batch size)")
	return cmd
}

func newSettleWithdrawalCommand(app *App) *cobra.Command {
	var payoutRef string
	cmd := &cobra.Command{
		Use:   "settle <transaction-id>",
		Short: "Mark a pending withdrawal as paid out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if payoutRef == "" {
				return fmt.Errorf("--ref is required")
			}
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				tx, err := services.Accounting.SettleWithdrawal(ctx, args[0], payoutRef)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Settled %s (%s) ref %s\n", tx.Id, common.Money(tx.Amount), payoutRef)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&payoutRef, "ref", "", "external payout reference")
	return cmd
}

func newReverseWithdrawalCommand(app *App) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reverse <transaction-id>",
		Short: "Cancel a pending withdrawal and credit the amount back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				reversal, err := services.Accounting.ReverseWithdrawal(ctx, args[0], reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Reversed %s, new balance %s\n", args[0], common.Money(reversal.BalanceAfter))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "operator reversal", "reason recorded on the event")
	return cmd
}

func newSettlePendingCommand(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "settle-pending",
		Short: "Pay out pending withdrawals through Coinbase Prime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				payout, err := common.InitializePayout(ctx, services.Config)
				if err != nil {
					return err
				}
				report, err := services.Accounting.SettlePending(ctx, payout, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Settled:  %d %s\n", len(report.Settled), strings.Join(report.Settled, " "))
				fmt.Fprintf(out, "Reversed: %d %s\n", len(report.Reversed), strings.Join(report.Reversed, " "))
				fmt.Fprintf(out, "Skipped:  %d %s\n", len(report.Skipped), strings.Join(report.Skipped, " "))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum withdrawals per run (0 uses SETTLEMENT_BATCH_MAX)")
	return cmd
}

func newWatchWithdrawalsCommand(app *App) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep paying out pending withdrawals until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				if interval > 0 {
					services.Config.Listener.PollingInterval = interval
				}
				settlement, err := common.InitializeSettlementListener(ctx, services)
				if err != nil {
					return err
				}
				if err := settlement.Start(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Watching pending withdrawals every %s, press Ctrl+C to stop\n",
					services.Config.Listener.PollingInterval)

				<-ctx.Done()
				settlement.Stop()
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "polling interval (defaults to SETTLEMENT_POLL_INTERVAL)")
	return cmd
}
