package store

import (
	"context"
	"errors"
	"time"

	"assetbridge-nexus/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicate              = errors.New("duplicate record")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// Deal list sort orders
const (
	SortByCreated = ""
	SortByApy     = "apy"
	SortByTerm    = "term"
)

// DealFilter narrows ListDeals. Zero values mean "no filter".
type DealFilter struct {
	Status     string
	AssetClass string
	MinApy     *decimal.Decimal
	SortBy     string
	Limit      int // 0 uses the default page size, negative lists everything
}

// ProfileUpdate carries the editable profile fields; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Country     *string
}

// InvestmentParams describes one compare-and-swap investment write. The deal
// row is only updated when its version still equals ExpectedVersion.
type InvestmentParams struct {
	DealId          string
	ExpectedVersion int64
	NewRaised       decimal.Decimal
	NewStatus       string
	Position        models.Position
}

// VaultWriteParams describes one compare-and-swap vault write together with
// the history entry that explains it. ExpectedVersion 0 creates the vault.
type VaultWriteParams struct {
	VaultId           string
	UserId            string
	ExpectedVersion   int64
	Strategy          string
	RebalanceSchedule string
	TotalDeposited    decimal.Decimal
	CurrentBalance    decimal.Decimal
	YieldAccrued      decimal.Decimal
	Transaction       models.VaultTransaction
	// Reverses marks a pending withdrawal as reversed in the same write.
	Reverses string
	// EarnedDelta is added to the owner's lifetime earnings.
	EarnedDelta decimal.Decimal
}

// TransactionStatusChange moves a vault transaction between statuses, only if
// it is still in From.
type TransactionStatusChange struct {
	TransactionId string
	From          string
	To            string
	SettlementRef string
	At            time.Time
}

// SubscriptionUpdate replaces a user's subscription state
type SubscriptionUpdate struct {
	UserId       string
	Subscription models.Subscription
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error)
	UpdateProfile(ctx context.Context, userId string, update ProfileUpdate) (*models.User, error)
	UpdateKycStatus(ctx context.Context, userId, status string, isVerified bool) error
	UpdateSubscription(ctx context.Context, update SubscriptionUpdate) error
}

type KYCStore interface {
	CreateVerification(ctx context.Context, v *models.KYCVerification) error
	GetVerification(ctx context.Context, id string) (*models.KYCVerification, error)
	GetVerificationByInquiry(ctx context.Context, inquiryId string) (*models.KYCVerification, error)
	UpdateVerificationStatus(ctx context.Context, id, status string) error
}

type DealStore interface {
	CreateDeal(ctx context.Context, deal *models.Deal) error
	GetDeal(ctx context.Context, dealId string) (*models.Deal, error)
	ListDeals(ctx context.Context, filter DealFilter) ([]models.Deal, error)
	ListUserInvestments(ctx context.Context, userId string) ([]models.UserInvestment, error)
	ApplyInvestment(ctx context.Context, params InvestmentParams) error
	SumPositions(ctx context.Context, dealId string) (decimal.Decimal, error)
}

type VaultStore interface {
	GetVault(ctx context.Context, userId string) (*models.Vault, error)
	ListVaults(ctx context.Context) ([]models.Vault, error)
	ListVaultTransactions(ctx context.Context, vaultId string) ([]models.VaultTransaction, error)
	GetVaultTransaction(ctx context.Context, transactionId string) (*models.VaultTransaction, error)
	ListPendingWithdrawals(ctx context.Context, limit int) ([]models.VaultTransaction, error)
	ApplyVaultWrite(ctx context.Context, params VaultWriteParams) (*models.VaultTransaction, error)
	UpdateTransactionStatus(ctx context.Context, change TransactionStatusChange) error
	SumVaultTransactions(ctx context.Context, vaultId string) (decimal.Decimal, error)
}

// LedgerStore is the full persistence contract of the platform.
type LedgerStore interface {
	UserStore
	KYCStore
	DealStore
	VaultStore

	Ping(ctx context.Context) error
	Close()
}
