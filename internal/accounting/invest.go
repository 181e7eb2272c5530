package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"assetbridge-nexus/internal/errs"
	"assetbridge-nexus/internal/events"
	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type InvestRequest struct {
	DealId      string
	UserId      string
	Amount      decimal.Decimal
	ExternalRef string
}

// Invest records a position in an open deal. Requests are not deduplicated
// on ExternalRef: every successful call creates a new position.
func (s *Service) Invest(ctx context.Context, req InvestRequest) (*models.InvestmentResult, error) {
	if err := checkAmount(req.Amount, "Invalid investment data: amount must be positive"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserId) == "" {
		return nil, errs.Validation("Invalid investment data: userId is required")
	}

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		deal, err := s.store.GetDeal(ctx, req.DealId)
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.NotFound("Deal not found")
		}
		if err != nil {
			return nil, errs.Internal(fmt.Errorf("failed to load deal %s: %w", req.DealId, err))
		}

		newRaised, newStatus, err := checkInvestment(deal, req.Amount)
		if err != nil {
			return nil, err
		}

		position := models.Position{
			Id:              uuid.New().String(),
			DealId:          deal.Id,
			UserId:          req.UserId,
			Amount:          req.Amount,
			InvestmentDate:  s.now(),
			EarningsAccrued: decimal.Zero,
			ExternalRef:     req.ExternalRef,
		}

		err = s.store.ApplyInvestment(ctx, store.InvestmentParams{
			DealId:          deal.Id,
			ExpectedVersion: deal.Version,
			NewRaised:       newRaised,
			NewStatus:       newStatus,
			Position:        position,
		})
		if errors.Is(err, store.ErrConcurrentModification) {
			zap.L().Info("Deal changed underneath investment, retrying",
				zap.String("deal_id", deal.Id),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, errs.Internal(fmt.Errorf("failed to apply investment: %w", err))
		}

		deal.CurrentRaised = newRaised
		deal.Status = newStatus
		s.afterInvestment(ctx, *deal, position)

		return &models.InvestmentResult{
			DealId:          deal.Id,
			DealTitle:       deal.Title,
			InvestedAmount:  req.Amount,
			Apy:             deal.Apy,
			TransactionHash: req.ExternalRef,
			PositionId:      position.Id,
			CurrentRaised:   newRaised,
			DealStatus:      newStatus,
		}, nil
	}

	zap.L().Warn("Investment retries exhausted",
		zap.String("deal_id", req.DealId),
		zap.Int("max_retries", s.cfg.MaxRetries))
	return nil, errs.Conflict("Deal %s is being modified concurrently, please retry", req.DealId)
}

func (s *Service) afterInvestment(ctx context.Context, deal models.Deal, position models.Position) {
	s.publish(ctx, events.New(events.InvestmentCreated, deal.Id, map[string]string{
		"deal_id":        deal.Id,
		"user_id":        position.UserId,
		"position_id":    position.Id,
		"amount":         position.Amount.String(),
		"current_raised": deal.CurrentRaised.String(),
	}))
	if deal.Status == models.DealClosed {
		s.publish(ctx, events.New(events.DealClosed, deal.Id, map[string]string{
			"deal_id":        deal.Id,
			"current_raised": deal.CurrentRaised.String(),
		}))
	}
	if s.mirror != nil {
		if err := s.mirror.MirrorInvestment(ctx, deal, position); err != nil {
			zap.L().Warn("Failed to mirror investment",
				zap.String("deal_id", deal.Id),
				zap.String("position_id", position.Id),
				zap.Error(err))
		}
	}
}

// GetDeal returns a deal with its positions
func (s *Service) GetDeal(ctx context.Context, dealId string) (*models.Deal, error) {
	deal, err := s.store.GetDeal(ctx, dealId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.NotFound("Deal not found")
	}
	if err != nil {
		return nil, errs.Internal(err)
	}
	return deal, nil
}

// ListDeals returns deals matching the filter, newest first by default
func (s *Service) ListDeals(ctx context.Context, filter store.DealFilter) ([]models.Deal, error) {
	if filter.Status == "all" {
		filter.Status = ""
	}
	if filter.AssetClass == "all" {
		filter.AssetClass = ""
	}
	deals, err := s.store.ListDeals(ctx, filter)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return deals, nil
}

// UserInvestments lists a user's positions with their totals
func (s *Service) UserInvestments(ctx context.Context, userId string) (*models.InvestmentSummary, error) {
	investments, err := s.store.ListUserInvestments(ctx, userId)
	if err != nil {
		return nil, errs.Internal(err)
	}
	summary := &models.InvestmentSummary{
		Investments:   investments,
		Count:         len(investments),
		TotalInvested: decimal.Zero,
		TotalEarnings: decimal.Zero,
	}
	for _, inv := range investments {
		summary.TotalInvested = summary.TotalInvested.Add(inv.Amount)
		summary.TotalEarnings = summary.TotalEarnings.Add(inv.EarningsAccrued)
	}
	return summary, nil
}
