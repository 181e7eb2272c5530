package cli

import (
	"context"
	"fmt"

	"assetbridge-nexus/internal/common"

	"github.com/spf13/cobra"
)

func newKycCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kyc",
		Short: "Administrative KYC actions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reset <user-id>",
		Short: "Force a user's KYC status back to pending, verified users included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				if err := services.KYC.ForceReset(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ KYC reset to pending for %s\n", args[0])
				return nil
			})
		},
	})
	return cmd
}
