package cli

import (
	"context"
	"fmt"
	"strings"

	"assetbridge-nexus/internal/common"
	"assetbridge-nexus/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type addUserOptions struct {
	email     string
	firstName string
	lastName  string
	country   string
	wallet    string
}

func newUsersCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage platform users",
	}
	cmd.AddCommand(newAddUserCommand(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				users, err := common.InitializeUsers(ctx, services.DbService, "", zap.L())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, u := range users {
					fmt.Fprintf(out, "%s  %-24s %s\n", u.Id, u.Name, u.Contact)
				}
				return nil
			})
		},
	})
	return cmd
}

func newAddUserCommand(app *App) *cobra.Command {
	opts := &addUserOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user without a password (operator onboarding)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return app.run(cmd, func(ctx context.Context, services *common.Services) error {
				user := opts.user()
				if err := services.DbService.CreateUser(ctx, user); err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
				zap.L().Info("User created", zap.String("user_id", user.Id))
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created user %s (%s %s)\n", user.Id, user.FirstName, user.LastName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", "", "user email")
	cmd.Flags().StringVar(&opts.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&opts.lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&opts.country, "country", "", "country")
	cmd.Flags().StringVar(&opts.wallet, "wallet", "", "payout wallet address")
	return cmd
}

func (o *addUserOptions) validate() error {
	if o.email == "" && o.wallet == "" {
		return fmt.Errorf("either --email or --wallet is required")
	}
	if o.email != "" && !models.ValidEmail(o.email) {
		return fmt.Errorf("invalid email format: %s", o.email)
	}
	if len(strings.TrimSpace(o.firstName)) < 2 {
		return fmt.Errorf("--first-name must be at least 2 characters")
	}
	return nil
}

func (o *addUserOptions) user() *models.User {
	user := &models.User{
		Id:            uuid.New().String(),
		FirstName:     strings.TrimSpace(o.firstName),
		LastName:      strings.TrimSpace(o.lastName),
		Country:       o.country,
		KycStatus:     models.KycPending,
		Subscription:  models.Subscription{Plan: models.PlanFree},
		TotalInvested: decimal.Zero,
		TotalEarned:   decimal.Zero,
	}
	if o.email != "" {
		email := strings.ToLower(o.email)
		user.Email = &email
	}
	if o.wallet != "" {
		wallet := o.wallet
		user.WalletAddress = &wallet
	}
	return user
}
