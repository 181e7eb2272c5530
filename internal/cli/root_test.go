package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"assetbridge-nexus/internal/accounting"
	"assetbridge-nexus/internal/common"
	"assetbridge-nexus/internal/database"
	"assetbridge-nexus/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader(t *testing.T) Loader {
	t.Helper()
	cfg := &models.Config{
		Env: "test",
		Database: models.DatabaseConfig{
			Driver:          database.DriverSQLite,
			Path:            filepath.Join(t.TempDir(), "cli.db"),
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Minute,
			ConnMaxIdleTime: time.Minute,
			PingTimeout:     time.Second,
			BusyTimeout:     5 * time.Second,
		},
		Auth: models.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
	}
	return func(ctx context.Context) (*common.Services, error) {
		return common.InitializeServices(ctx, cfg)
	}
}

func execute(t *testing.T, load Loader, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(load)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// withServices runs fn against the same database the commands use
func withServices(t *testing.T, load Loader, fn func(ctx context.Context, services *common.Services)) {
	t.Helper()
	services, err := load(context.Background())
	require.NoError(t, err)
	defer services.Close()
	fn(context.Background(), services)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(testLoader(t))
	assert.Equal(t, "nexusctl", cmd.Use)

	for _, path := range [][]string{
		{"users", "add"},
		{"users", "list"},
		{"deals", "seed"},
		{"vaults", "report"},
		{"reconcile"},
		{"withdrawals", "list"},
		{"withdrawals", "settle"},
		{"withdrawals", "reverse"},
		{"withdrawals", "settle-pending"},
		{"withdrawals", "watch"},
		{"dividends", "credit"},
		{"kyc", "reset"},
	} {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestUsersAddValidation(t *testing.T) {
	load := testLoader(t)

	_, err := execute(t, load, "users", "add", "--first-name", "Ada")
	assert.ErrorContains(t, err, "--email or --wallet")

	_, err = execute(t, load, "users", "add", "--email", "not-an-email", "--first-name", "Ada")
	assert.ErrorContains(t, err, "invalid email")

	out, err := execute(t, load, "users", "add", "--email", "Ada@Example.com", "--first-name", "Ada", "--last-name", "Lovelace")
	require.NoError(t, err)
	assert.Contains(t, out, "Created user")

	out, err = execute(t, load, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
}

func TestDealsSeedIsRepeatable(t *testing.T) {
	load := testLoader(t)
	file := filepath.Join(t.TempDir(), "deals.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
deals:
  - id: tech-series-a
    title: Tech Startup Series A
    apy: "12"
    term: 24
    minInvestment: "500"
    targetAmount: "1000000"
    assetClass: other
    riskRating: medium
`), 0o600))

	out, err := execute(t, load, "deals", "seed", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Tech Startup Series A")

	out, err = execute(t, load, "deals", "seed", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = execute(t, load, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "tech-series-a")
	assert.Contains(t, out, "Unbalanced: 0")
}

func TestWithdrawalLifecycle(t *testing.T) {
	load := testLoader(t)
	_, err := execute(t, load, "users", "add", "--email", "kwesi@example.com", "--first-name", "Kwesi")
	require.NoError(t, err)

	var userId string
	var first, second *models.VaultTransaction
	withServices(t, load, func(ctx context.Context, services *common.Services) {
		user, err := services.DbService.GetUserByEmail(ctx, "kwesi@example.com")
		require.NoError(t, err)
		userId = user.Id

		_, err = services.Accounting.Deposit(ctx, accounting.DepositRequest{UserId: userId, Amount: decimal.NewFromInt(1000)})
		require.NoError(t, err)
		_, err = services.Accounting.Withdraw(ctx, accounting.WithdrawRequest{UserId: userId, Amount: decimal.NewFromInt(200)})
		require.NoError(t, err)
		_, err = services.Accounting.Withdraw(ctx, accounting.WithdrawRequest{UserId: userId, Amount: decimal.NewFromInt(300)})
		require.NoError(t, err)

		pending, err := services.Accounting.ListPendingWithdrawals(ctx, 0)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		first, second = &pending[0], &pending[1]
	})

	out, err := execute(t, load, "withdrawals", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2 pending withdrawal(s)")

	_, err = execute(t, load, "withdrawals", "settle", first.Id)
	assert.ErrorContains(t, err, "--ref")

	out, err = execute(t, load, "withdrawals", "settle", first.Id, "--ref", "payout-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Settled")

	out, err = execute(t, load, "withdrawals", "reverse", second.Id)
	require.NoError(t, err)
	assert.Contains(t, out, "$800.00")

	_, err = execute(t, load, "withdrawals", "reverse", first.Id)
	assert.Error(t, err)

	out, err = execute(t, load, "dividends", "credit", "--user", userId, "--amount", "12.5")
	require.NoError(t, err)
	assert.Contains(t, out, "$812.50")

	out, err = execute(t, load, "vaults", "report", "--email", "kwesi@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Balance: $812.50")
	assert.Contains(t, out, "With vaults: 1")

	out, err = execute(t, load, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "Unbalanced: 0")
}

func TestSettlePendingRequiresPrime(t *testing.T) {
	_, err := execute(t, testLoader(t), "withdrawals", "settle-pending")
	assert.ErrorContains(t, err, "Prime")
}

func TestWatchRequiresPrime(t *testing.T) {
	_, err := execute(t, testLoader(t), "withdrawals", "watch", "--interval", "1s")
	assert.ErrorContains(t, err, "Prime")
}

func TestReconcileMirrorRequiresFormance(t *testing.T) {
	_, err := execute(t, testLoader(t), "reconcile", "--mirror")
	assert.ErrorContains(t, err, "FORMANCE_STACK_URL")
}

func TestKycReset(t *testing.T) {
	load := testLoader(t)
	_, err := execute(t, load, "users", "add", "--email", "zainab@example.com", "--first-name", "Zainab")
	require.NoError(t, err)

	var userId string
	withServices(t, load, func(ctx context.Context, services *common.Services) {
		user, err := services.DbService.GetUserByEmail(ctx, "zainab@example.com")
		require.NoError(t, err)
		userId = user.Id
		require.NoError(t, services.DbService.UpdateKycStatus(ctx, userId, models.KycVerified, true))
	})

	out, err := execute(t, load, "kyc", "reset", userId)
	require.NoError(t, err)
	assert.Contains(t, out, "reset to pending")

	withServices(t, load, func(ctx context.Context, services *common.Services) {
		user, err := services.DbService.GetUserById(ctx, userId)
		require.NoError(t, err)
		assert.Equal(t, models.KycPending, user.KycStatus)
	})
}

