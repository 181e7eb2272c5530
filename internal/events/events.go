package events

import (
	"context"
	"time"
)

// Event types published after a state change commits
const (
	InvestmentCreated     = "deal.investment_created"
	DealClosed            = "deal.closed"
	VaultDeposited        = "vault.deposited"
	WithdrawalRequested   = "vault.withdrawal_requested"
	WithdrawalSettled     = "vault.withdrawal_settled"
	WithdrawalReversed    = "vault.withdrawal_reversed"
	DividendCredited      = "vault.dividend_credited"
	KycStatusChanged      = "kyc.status_changed"
	SubscriptionActivated = "premium.subscription_activated"
	SubscriptionCancelled = "premium.subscription_cancelled"
)

// Event is a domain notification. Key groups events of one aggregate onto
// one partition.
type Event struct {
	Type       string            `json:"type"`
	Key        string            `json:"key"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data"`
}

// Publisher delivers events. Publishing is best effort: callers log failures
// and never roll back committed state because of them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New builds an event stamped with the current time
func New(eventType, key string, data map[string]string) Event {
	return Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Data: data}
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
