package cli

import (
	"context"

	"assetbridge-nexus/internal/common"
	"assetbridge-nexus/internal/config"

	"github.com/spf13/cobra"
)

// Loader builds the wired services a command runs against
type Loader func(ctx context.Context) (*common.Services, error)

// DefaultLoader reads the environment configuration and initializes services
func DefaultLoader(ctx context.Context) (*common.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return common.InitializeServices(ctx, cfg)
}

// App carries what every subcommand needs
type App struct {
	load Loader
}

// NewRootCommand creates the nexusctl operator command
func NewRootCommand(load Loader) *cobra.Command {
	app := &App{load: load}

	cmd := &cobra.Command{
		Use:           "nexusctl",
		Short:         "AssetBridge Nexus operator tool",
		Long:          "Seed deals, manage users, settle vault withdrawals and reconcile balances.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newUsersCommand(app))
	cmd.AddCommand(newDealsCommand(app))
	cmd.AddCommand(newVaultsCommand(app))
	cmd.AddCommand(newReconcileCommand(app))
	cmd.AddCommand(newWithdrawalsCommand(app))
	cmd.AddCommand(newDividendsCommand(app))
	cmd.AddCommand(newKycCommand(app))
	return cmd
}

// run opens the services for the duration of one command
func (a *App) run(cmd *cobra.Command, fn func(ctx context.Context, services *common.Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	services, err := a.load(ctx)
	if err != nil {
		return err
	}
	defer services.Close()
	return fn(ctx, services)
}
