package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"

	"github.com/shopspring/decimal"
)

func investParams(deal *models.Deal, positionId, userId string, amount int64) store.InvestmentParams {
	amt := decimal.NewFromInt(amount)
	return store.InvestmentParams{
		DealId:          deal.Id,
		ExpectedVersion: deal.Version,
		NewRaised:       deal.CurrentRaised.Add(amt),
		NewStatus:       deal.Status,
		Position: models.Position{
			Id:              positionId,
			DealId:          deal.Id,
			UserId:          userId,
			Amount:          amt,
			EarningsAccrued: decimal.Zero,
			InvestmentDate:  time.Now().UTC(),
			ExternalRef:     "0xhash",
		},
	}
}

func TestApplyInvestment(t *testing.T) {
	service := setupTestDB(t)
	ctx := context.Background()
	createTestUser(t, service, "user1", "investor@example.com")
	deal := createTestDeal(t, service, "deal1", 1000, 100)

	if err := service.ApplyInvestment(ctx, investParams(deal, "pos1", "user1", 200)); err != nil {
		t.Fatalf("ApplyInvestment failed: %v", err)
	}

	got, err := service.GetDeal(ctx, "deal1")
	if err != nil {
		t.Fatalf("GetDeal failed: %v", err)
	}
	if !got.CurrentRaised.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected raised 200, got %s", got.CurrentRaised)
	}
	if got.Version != 2 {
		t.Errorf("Expected version 2, got %d", got.Version)
	}
	if len(got.Positions) != 1 || got.Positions[0].ExternalRef != "0xhash" {
		t.Fatalf("Expected one position with external ref, got %+v", got.Positions)
	}

	user, err := service.GetUserById(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if !user.TotalInvested.Equal(decimal.NewFromInt(200)) {
		t.Errorf("Expected total invested 200, got %s", user.TotalInvested)
	}

	sum, err := service.SumPositions(ctx, "deal1")
	if err != nil {
		t.Fatalf("SumPositions failed: %v", err)
	}
	if !sum.Equal(got.CurrentRaised) {
		t.Errorf("Position sum %s does not match raised %s", sum, got.CurrentRaised)
	}
}

func TestApplyInvestmentStaleVersion(t *testing.T) {
	service := setupTestDB(t)
	ctx := context.Background()
	deal := createTestDeal(t, service, "deal1", 1000, 100)

	if err := service.ApplyInvestment(ctx, investParams(deal, "pos1", "user1", 200)); err != nil {
		t.Fatalf("First investment failed: %v", err)
	}

	// Same snapshot again: version 1 is gone now
	err := service.ApplyInvestment(ctx, investParams(deal, "pos2", "user2", 300))
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification, got %v", err)
	}

	got, _ := service.GetDeal(ctx, "deal1")
	if len(got.Positions) != 1 {
		t.Errorf("Rejected write must not leave a position, got %d", len(got.Positions))
	}
}

func TestApplyInvestmentRespectsTargetConstraint(t *testing.T) {
	service := setupTestDB(t)
	deal := createTestDeal(t, service, "deal1", 1000, 100)

	if err := service.ApplyInvestment(context.Background(), investParams(deal, "pos1", "user1", 1500)); err == nil {
		t.Fatalf("Expected the database to refuse raising past target")
	}
}

func TestListDealsFiltersAndSorts(t *testing.T) {
	service := setupTestDB(t)
	ctx := context.Background()

	low := createTestDeal(t, service, "low", 1000, 100)
	_ = low
	high := &models.Deal{
		Id: "high", Title: "High", Apy: decimal.RequireFromString("18"), TermMonths: 6,
		MinInvestment: decimal.NewFromInt(50), TargetAmount: decimal.NewFromInt(5000),
		Status: models.DealOpen, AssetClass: "agriculture", RiskRating: "high",
	}
	if err := service.CreateDeal(ctx, high); err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}
	closed := &models.Deal{
		Id: "closed", Title: "Closed", Apy: decimal.RequireFromString("9"), TermMonths: 24,
		MinInvestment: decimal.NewFromInt(50), TargetAmount: decimal.NewFromInt(5000),
		Status: models.DealClosed, AssetClass: "credit", RiskRating: "low",
	}
	if err := service.CreateDeal(ctx, closed); err != nil {
		t.Fatalf("CreateDeal failed: %v", err)
	}

	open, err := service.ListDeals(ctx, store.DealFilter{Status: models.DealOpen, SortBy: store.SortByApy})
	if err != nil {
		t.Fatalf("ListDeals failed: %v", err)
	}
	if len(open) != 2 || open[0].Id != "high" {
		t.Errorf("Expected [high low], got %d deals starting with %v", len(open), open)
	}

	minApy := decimal.RequireFromString("10")
	credit, err := service.ListDeals(ctx, store.DealFilter{AssetClass: "credit", MinApy: &minApy})
	if err != nil {
		t.Fatalf("ListDeals failed: %v", err)
	}
	if len(credit) != 1 || credit[0].Id != "low" {
		t.Errorf("Expected only the low deal, got %v", credit)
	}

	byTerm, err := service.ListDeals(ctx, store.DealFilter{SortBy: store.SortByTerm})
	if err != nil {
		t.Fatalf("ListDeals failed: %v", err)
	}
	if len(byTerm) != 3 || byTerm[0].Id != "high" || byTerm[2].Id != "closed" {
		t.Errorf("Unexpected term order: %v", byTerm)
	}
}

func TestCreateDealDuplicate(t *testing.T) {
	service := setupTestDB(t)
	deal := createTestDeal(t, service, "deal1", 1000, 100)
	if err := service.CreateDeal(context.Background(), deal); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestListUserInvestments(t *testing.T) {
	service := setupTestDB(t)
	ctx := context.Background()
	deal := createTestDeal(t, service, "deal1", 1000, 100)

	if err := service.ApplyInvestment(ctx, investParams(deal, "pos1", "user1", 150)); err != nil {
		t.Fatalf("ApplyInvestment failed: %v", err)
	}

	investments, err := service.ListUserInvestments(ctx, "user1")
	if err != nil {
		t.Fatalf("ListUserInvestments failed: %v", err)
	}
	if len(investments) != 1 {
		t.Fatalf("Expected 1 investment, got %d", len(investments))
	}
	if investments[0].DealTitle != "Deal deal1" || !investments[0].Amount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Unexpected investment: %+v", investments[0])
	}

	none, err := service.ListUserInvestments(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListUserInvestments failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no investments, got %d", len(none))
	}
}

func TestGetDealNotFound(t *testing.T) {
	service := setupTestDB(t)
	if _, err := service.GetDeal(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
