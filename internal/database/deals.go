package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultDealListLimit = 50

func scanDeal(row rowScanner) (*models.Deal, error) {
	var deal models.Deal
	var apy, minInvestment, target, raised, distributed string
	var startDate, maturityDate sql.NullTime

	err := row.Scan(&deal.Id, &deal.Title, &deal.Description, &apy, &deal.TermMonths, &minInvestment,
		&target, &raised, &deal.Status, &deal.UnderlyingAsset, &deal.AssetClass, &deal.Geography,
		&deal.RiskRating, &deal.Issuer, &deal.IssuerRating, &distributed, &startDate, &maturityDate,
		&deal.Version, &deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		return nil, err
	}

	var d decimals
	deal.Apy = d.parse("apy", apy)
	deal.MinInvestment = d.parse("min_investment", minInvestment)
	deal.TargetAmount = d.parse("target_amount", target)
	deal.CurrentRaised = d.parse("current_raised", raised)
	deal.TotalEarningsDistributed = d.parse("total_earnings_distributed", distributed)
	if d.err != nil {
		return nil, d.err
	}
	deal.StartDate = timePtr(startDate)
	deal.MaturityDate = timePtr(maturityDate)
	return &deal, nil
}

func (s *Service) CreateDeal(ctx context.Context, deal *models.Deal) error {
	now := time.Now().UTC()
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}
	deal.UpdatedAt = now
	deal.Version = 1
	if err := checkStorable(deal.MinInvestment, deal.TargetAmount, deal.CurrentRaised, deal.TotalEarningsDistributed); err != nil {
		return fmt.Errorf("deal %s: %w", deal.Id, err)
	}

	_, err := s.db.ExecContext(ctx, s.q(queryInsertDeal),
		deal.Id, deal.Title, deal.Description, deal.Apy.String(), deal.TermMonths,
		deal.MinInvestment.String(), deal.TargetAmount.String(), deal.CurrentRaised.String(),
		deal.Status, deal.UnderlyingAsset, deal.AssetClass, deal.Geography, deal.RiskRating,
		deal.Issuer, deal.IssuerRating, deal.TotalEarningsDistributed.String(),
		nullTime(deal.StartDate), nullTime(deal.MaturityDate), deal.Version, deal.CreatedAt, deal.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: deal %s already exists", store.ErrDuplicate, deal.Id)
		}
		return fmt.Errorf("failed to insert deal: %w", err)
	}

	zap.L().Info("Deal created", zap.String("id", deal.Id), zap.String("title", deal.Title))
	return nil
}

// GetDeal returns a deal with its positions in investment order
func (s *Service) GetDeal(ctx context.Context, dealId string) (*models.Deal, error) {
	deal, err := scanDeal(s.db.QueryRowContext(ctx, s.q(queryGetDeal), dealId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q(queryGetDealPositions), dealId)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var p models.Position
		var amount, earnings string
		if err := rows.Scan(&p.Id, &p.DealId, &p.UserId, &amount, &earnings, &p.ExternalRef, &p.InvestmentDate); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		var d decimals
		p.Amount = d.parse("amount", amount)
		p.EarningsAccrued = d.parse("earnings_accrued", earnings)
		if d.err != nil {
			return nil, d.err
		}
		deal.Positions = append(deal.Positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating position rows: %w", err)
	}
	return deal, nil
}

// ListDeals applies the filter; positions are not loaded
func (s *Service) ListDeals(ctx context.Context, filter store.DealFilter) ([]models.Deal, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AssetClass != "" {
		where = append(where, "asset_class = ?")
		args = append(args, filter.AssetClass)
	}
	if filter.MinApy != nil {
		where = append(where, "apy >= ?")
		args = append(args, filter.MinApy.String())
	}

	query := queryListDeals
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch filter.SortBy {
	case store.SortByApy:
		query += " ORDER BY apy DESC, created_at DESC"
	case store.SortByTerm:
		query += " ORDER BY term_months ASC, created_at DESC"
	default:
		query += " ORDER BY created_at DESC"
	}
	limit := filter.Limit
	if limit == 0 || limit > defaultDealListLimit {
		limit = defaultDealListLimit
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer closeRows(rows)

	deals := []models.Deal{}
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, *deal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deal rows: %w", err)
	}
	return deals, nil
}

func (s *Service) ListUserInvestments(ctx context.Context, userId string) ([]models.UserInvestment, error) {
	rows, err := s.db.QueryContext(ctx, s.q(queryGetUserInvestments), userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer closeRows(rows)

	investments := []models.UserInvestment{}
	for rows.Next() {
		var inv models.UserInvestment
		var apy, amount, earnings string
		err := rows.Scan(&inv.PositionId, &inv.DealId, &inv.DealTitle, &inv.AssetClass, &inv.RiskRating,
			&apy, &inv.Status, &amount, &earnings, &inv.InvestmentDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		var d decimals
		inv.Apy = d.parse("apy", apy)
		inv.Amount = d.parse("amount", amount)
		inv.EarningsAccrued = d.parse("earnings_accrued", earnings)
		if d.err != nil {
			return nil, d.err
		}
		investments = append(investments, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investment rows: %w", err)
	}
	return investments, nil
}

// ApplyInvestment atomically bumps the deal, records the position and credits
// the investor's running total. It fails with ErrConcurrentModification when
// the deal version moved since it was read.
func (s *Service) ApplyInvestment(ctx context.Context, params store.InvestmentParams) error {
	zap.L().Info("Applying investment",
		zap.String("deal_id", params.DealId),
		zap.String("user_id", params.Position.UserId),
		zap.String("amount", params.Position.Amount.String()),
		zap.Int64("expected_version", params.ExpectedVersion))

	if err := checkStorable(params.NewRaised, params.Position.Amount); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, s.q(queryUpdateDealRaised),
		params.NewRaised.String(), params.NewStatus, now, params.DealId, params.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	if err := checkRowsAffected(result, fmt.Errorf("deal update failed - %w", store.ErrConcurrentModification)); err != nil {
		return err
	}

	p := params.Position
	_, err = tx.ExecContext(ctx, s.q(queryInsertPosition),
		p.Id, params.DealId, p.UserId, params.ExpectedVersion+1, p.Amount.String(),
		p.EarningsAccrued.String(), p.ExternalRef, p.InvestmentDate.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}

	// Wallet-only or unknown investors simply have no running total to bump.
	if _, err := tx.ExecContext(ctx, s.q(queryAddUserInvested), p.Amount.String(), now, p.UserId); err != nil {
		return fmt.Errorf("failed to update user total: %w", err)
	}

	entries := []journalEntry{
		{"deal_cash", params.DealId, p.Amount, decimal.Zero},
		{"investor_position", p.UserId + "_" + params.DealId, decimal.Zero, p.Amount},
	}
	if err := s.addJournalEntries(ctx, tx, p.Id, entries); err != nil {
		return fmt.Errorf("failed to add journal entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Investment applied",
		zap.String("deal_id", params.DealId),
		zap.String("position_id", p.Id),
		zap.String("new_raised", params.NewRaised.String()),
		zap.String("status", params.NewStatus))
	return nil
}

func (s *Service) SumPositions(ctx context.Context, dealId string) (decimal.Decimal, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, s.q(querySumPositions), dealId).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum positions: %w", err)
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse position sum '%s': %w", raw, err)
	}
	return sum.Round(sumScale), nil
}
