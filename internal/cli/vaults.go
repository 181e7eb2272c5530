package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"assetbridge-nexus/internal/common"
	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type vaultStats struct {
	totalUsers      int
	usersWithVaults int
}

func newVaultsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaults",
		Short: "Inspect user vaults",
	}

	var email string
	report := &cobra.Command{
		Use:   "report",
		Short: "Print every vault with its recent transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				users, err := common.InitializeUsers(ctx, services.DbService, email, zap.L())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				common.PrintHeader(out, "VAULT REPORT", common.DefaultWidth)
				stats := vaultStats{totalUsers: len(users)}
				for _, user := range users {
					vault, err := services.Accounting.GetVault(ctx, user.Id)
					if errors.Is(err, errs.ErrNotFound) {
						continue
					}
					if err != nil {
						return fmt.Errorf("failed to load vault for %s: %w", user.Id, err)
					}
					stats.usersWithVaults++
					printVault(out, user, vault)
				}
				common.PrintFooter(out, fmt.Sprintf("Users: %d | With vaults: %d", stats.totalUsers, stats.usersWithVaults), common.DefaultWidth)
				return nil
			})
		},
	}
	report.Flags().StringVar(&email, "email", "", "only report the user with this email")
	cmd.AddCommand(report)
	return cmd
}

func printVault(out io.Writer, user common.UserInfo, vault *models.Vault) {
	fmt.Fprintf(out, "\n┌─ User: %s (%s)\n", user.Name, user.Contact)
	fmt.Fprintf(out, "│  Vault: %s  strategy: %s\n", vault.Id, vault.Strategy)
	fmt.Fprintf(out, "│  Balance: %s  deposited: %s  yield: %s\n",
		common.Money(vault.CurrentBalance), common.Money(vault.TotalDeposited), common.Money(vault.YieldAccrued))
	common.PrintBoxSeparator(out, 78)
	for i, tx := range vault.Transactions {
		fmt.Fprintf(out, "%s %-10s %12s  %-9s %s  %s\n",
			common.BoxPrefix(i == len(vault.Transactions)-1),
			tx.Type,
			common.Money(tx.Amount),
			tx.Status,
			common.ShortId(tx.Id),
			tx.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}
