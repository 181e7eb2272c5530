package cli

import (
	"context"
	"errors"
	"fmt"

	"assetbridge-nexus/internal/common"
	"assetbridge-nexus/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDealsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deals",
		Short: "Manage deals",
	}

	var file string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create deals from a YAML file; existing ids are skipped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deals, err := common.LoadDealSeeds(file)
			if err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				out := cmd.OutOrStdout()
				created := 0
				for i := range deals {
					deal := &deals[i]
					err := services.DbService.CreateDeal(ctx, deal)
					if errors.Is(err, store.ErrDuplicate) {
						fmt.Fprintf(out, "✓ %s: already exists\n", deal.Id)
						continue
					}
					if err != nil {
						return fmt.Errorf("failed to create deal %s: %w", deal.Title, err)
					}
					created++
					fmt.Fprintf(out, "✓ %s: %s (%s, target %s)\n", deal.Id, deal.Title, deal.Status, common.Money(deal.TargetAmount))
				}
				zap.L().Info("Deals seeded", zap.Int("created", created), zap.Int("total", len(deals)))
				return nil
			})
		},
	}
	seed.Flags().StringVar(&file, "file", "deals.yaml", "deals YAML file")
	cmd.AddCommand(seed)
	return cmd
}
