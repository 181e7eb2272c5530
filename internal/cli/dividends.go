package cli

import (
	"context"
	"fmt"

	"assetbridge-nexus/internal/common"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newDividendsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dividends",
		Short: "Credit vault dividends",
	}

	var userId, amount, ref string
	credit := &cobra.Command{
		Use:   "credit",
		Short: "Credit a dividend to a user's vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				tx, err := services.Accounting.CreditDividend(ctx, userId, value, ref)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Credited %s to %s, new balance %s\n",
					common.Money(tx.Amount), userId, common.Money(tx.BalanceAfter))
				return nil
			})
		},
	}
	credit.Flags().StringVar(&userId, "user", "", "user id")
	credit.Flags().StringVar(&amount, "amount", "", "dividend amount in USD")
	credit.Flags().StringVar(&ref, "ref", "", "distribution reference")
	_ = credit.MarkFlagRequired("user")
	_ = credit.MarkFlagRequired("amount")
	cmd.AddCommand(credit)
	return cmd
}
