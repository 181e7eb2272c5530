package premium

import (
	"fmt"
	"os"

	"assetbridge-nexus/internal/models"

	"gopkg.in/yaml.v2"
)

// PlanPrice holds a plan's prices in cents
type PlanPrice struct {
	Monthly int64 `yaml:"monthly"`
	Annual  int64 `yaml:"annual"`
}

// PricingTable maps paid plans to their prices. It is read-only once built.
type PricingTable struct {
	plans map[string]PlanPrice
}

func DefaultPricing() PricingTable {
	return PricingTable{plans: map[string]PlanPrice{
		models.PlanPremium:     {Monthly: 4900, Annual: 49000},
		models.PlanPremiumPlus: {Monthly: 9900, Annual: 99000},
	}}
}

type pricingFile struct {
	Plans map[string]PlanPrice `yaml:"plans"`
}

// LoadPricing reads plan prices from a YAML file, falling back to the
// defaults for any plan the file leaves out.
func LoadPricing(path string) (PricingTable, error) {
	table := DefaultPricing()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return PricingTable{}, fmt.Errorf("failed to read pricing file: %w", err)
	}
	var file pricingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return PricingTable{}, fmt.Errorf("failed to parse pricing file: %w", err)
	}

	for plan, price := range file.Plans {
		if _, known := table.plans[plan]; !known {
			return PricingTable{}, fmt.Errorf("unknown plan %q in pricing file", plan)
		}
		if price.Monthly <= 0 || price.Annual <= 0 {
			return PricingTable{}, fmt.Errorf("plan %q must have positive monthly and annual prices", plan)
		}
		table.plans[plan] = price
	}
	return table, nil
}

// Price returns the price in cents of plan billed per cycle
func (p PricingTable) Price(plan, cycle string) (int64, bool) {
	price, ok := p.plans[plan]
	if !ok {
		return 0, false
	}
	switch cycle {
	case models.BillingMonthly:
		return price.Monthly, true
	case models.BillingAnnual:
		return price.Annual, true
	}
	return 0, false
}

// FormatCents renders 4900 as "$49" and 4950 as "$49.5"
func FormatCents(cents int64) string {
	whole, frac := cents/100, cents%100
	switch {
	case frac == 0:
		return fmt.Sprintf("$%d", whole)
	case frac%10 == 0:
		return fmt.Sprintf("$%d.%d", whole, frac/10)
	default:
		return fmt.Sprintf("$%d.%02d", whole, frac)
	}
}
