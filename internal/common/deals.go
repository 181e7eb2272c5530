package common

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"assetbridge-nexus/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// DealSeed is one offering in a deals YAML file. Seeded deals always start
// with nothing raised; capital only arrives through investments.
type DealSeed struct {
	Id              string `yaml:"id"`
	Title           string `yaml:"title"`
	Description     string `yaml:"description"`
	Apy             string `yaml:"apy"`
	TermMonths      int    `yaml:"term"`
	MinInvestment   string `yaml:"minInvestment"`
	TargetAmount    string `yaml:"targetAmount"`
	Status          string `yaml:"status"`
	UnderlyingAsset string `yaml:"underlyingAsset"`
	AssetClass      string `yaml:"assetClass"`
	Geography       string `yaml:"geography"`
	RiskRating      string `yaml:"riskRating"`
	Issuer          string `yaml:"issuer"`
	IssuerRating    string `yaml:"issuerRating"`
	StartDate       string `yaml:"startDate"`
}

type DealsConfig struct {
	Deals []DealSeed `yaml:"deals"`
}

// LoadDealSeeds reads and validates a deals YAML file
func LoadDealSeeds(dealsFile string) ([]models.Deal, error) {
	var dealsPath string
	if filepath.IsAbs(dealsFile) {
		dealsPath = dealsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dealsPath = filepath.Join(wd, dealsFile)
	}

	data, err := os.ReadFile(dealsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", dealsFile, err)
	}

	var config DealsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", dealsFile, err)
	}

	deals := make([]models.Deal, 0, len(config.Deals))
	for i, seed := range config.Deals {
		deal, err := seed.toDeal()
		if err != nil {
			return nil, fmt.Errorf("deal at index %d: %w", i, err)
		}
		deals = append(deals, deal)
	}
	return deals, nil
}

func (d DealSeed) toDeal() (models.Deal, error) {
	if d.Title == "" {
		return models.Deal{}, fmt.Errorf("missing title")
	}
	apy, err := parseAmount("apy", d.Apy)
	if err != nil {
		return models.Deal{}, err
	}
	if apy.IsNegative() || apy.GreaterThan(decimal.NewFromInt(100)) {
		return models.Deal{}, fmt.Errorf("apy %s must be between 0 and 100", apy)
	}
	if d.TermMonths < 1 {
		return models.Deal{}, fmt.Errorf("term must be at least 1 month")
	}
	minimum, err := parseAmount("minInvestment", d.MinInvestment)
	if err != nil {
		return models.Deal{}, err
	}
	target, err := parseAmount("targetAmount", d.TargetAmount)
	if err != nil {
		return models.Deal{}, err
	}
	if !minimum.IsPositive() || target.LessThan(minimum) {
		return models.Deal{}, fmt.Errorf("need 0 < minInvestment <= targetAmount, got %s and %s", minimum, target)
	}

	status := d.Status
	if status == "" {
		status = models.DealOpen
	}
	if !slices.Contains(models.DealStatuses, status) {
		return models.Deal{}, fmt.Errorf("unknown status %q", status)
	}
	assetClass := d.AssetClass
	if assetClass == "" {
		assetClass = "other"
	}
	if !slices.Contains(models.AssetClasses, assetClass) {
		return models.Deal{}, fmt.Errorf("unknown assetClass %q", assetClass)
	}
	if !slices.Contains(models.RiskRatings, d.RiskRating) {
		return models.Deal{}, fmt.Errorf("unknown riskRating %q", d.RiskRating)
	}

	deal := models.Deal{
		Id:                       d.Id,
		Title:                    d.Title,
		Description:              d.Description,
		Apy:                      apy,
		TermMonths:               d.TermMonths,
		MinInvestment:            minimum,
		TargetAmount:             target,
		CurrentRaised:            decimal.Zero,
		Status:                   status,
		UnderlyingAsset:          d.UnderlyingAsset,
		AssetClass:               assetClass,
		Geography:                d.Geography,
		RiskRating:               d.RiskRating,
		Issuer:                   d.Issuer,
		IssuerRating:             d.IssuerRating,
		TotalEarningsDistributed: decimal.Zero,
	}
	if deal.Id == "" {
		deal.Id = uuid.New().String()
	}
	if d.StartDate != "" {
		start, err := time.Parse("2006-01-02", d.StartDate)
		if err != nil {
			return models.Deal{}, fmt.Errorf("invalid startDate %q: %w", d.StartDate, err)
		}
		maturity := start.AddDate(0, d.TermMonths, 0)
		deal.StartDate = &start
		deal.MaturityDate = &maturity
	}
	return deal, nil
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("missing %s", field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if !models.Storable(d) {
		return decimal.Zero, fmt.Errorf("%s %s must be whole cents no larger than %s", field, value, models.MaxMoney)
	}
	return d, nil
}
