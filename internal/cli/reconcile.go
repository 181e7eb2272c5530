package cli

import (
	"context"
	"fmt"
	"io"

	"assetbridge-nexus/internal/accounting"
	"assetbridge-nexus/internal/common"
	"assetbridge-nexus/internal/formance"
	"assetbridge-nexus/internal/models"

	"github.com/spf13/cobra"
)

func newReconcileCommand(app *App) *cobra.Command {
	var checkMirror bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check stored counters against positions, vault history and the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				results, err := services.Accounting.ReconcileAll(ctx)
				if err != nil {
					return err
				}
				if checkMirror {
					if services.Mirror == nil {
						return fmt.Errorf("--mirror needs FORMANCE_STACK_URL, FORMANCE_CLIENT_ID and FORMANCE_CLIENT_SECRET")
					}
					mirrored, err := compareMirror(ctx, services.Mirror, results)
					if err != nil {
						return err
					}
					results = append(results, mirrored...)
				}

				unbalanced := printReconcile(cmd.OutOrStdout(), results)
				if unbalanced > 0 {
					return fmt.Errorf("%d unbalanced result(s)", unbalanced)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&checkMirror, "mirror", false, "also compare balances with the Formance ledger mirror")
	return cmd
}

// compareMirror checks each stored counter against the mirrored account
func compareMirror(ctx context.Context, mirror *formance.Service, results []models.ReconcileResult) ([]models.ReconcileResult, error) {
	var mirrored []models.ReconcileResult
	for _, result := range results {
		var (
			kind string
			err  error
		)
		switch result.Kind {
		case accounting.ReconcileDealKind:
			kind = "mirror_deal"
			result.Calculated, err = mirror.EscrowBalance(ctx, result.Id)
		case accounting.ReconcileVaultKind:
			kind = "mirror_vault"
			result.Calculated, err = mirror.VaultBalance(ctx, result.Id)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Kind = kind
		result.Balanced = result.Stored.Equal(result.Calculated)
		mirrored = append(mirrored, result)
	}
	return mirrored, nil
}

func printReconcile(out io.Writer, results []models.ReconcileResult) int {
	common.PrintHeader(out, "RECONCILIATION", common.DefaultWidth)
	unbalanced := 0
	for _, r := range results {
		mark := "✓"
		if !r.Balanced {
			mark = "✗"
			unbalanced++
		}
		fmt.Fprintf(out, "%s %-13s %-38s stored %14s  calculated %14s\n", mark, r.Kind, r.Id, r.Stored.String(), r.Calculated.String())
	}
	common.PrintFooter(out, fmt.Sprintf("Checked: %d | Unbalanced: %d", len(results), unbalanced), common.DefaultWidth)
	return unbalanced
}
