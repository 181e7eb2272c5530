package database

import (
	"database/sql"
	"fmt"
	"time"

	"assetbridge-nexus/internal/models"

	"github.com/shopspring/decimal"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// decimals parses NUMERIC columns scanned as strings and keeps the first error
type decimals struct {
	err error
}

func (d *decimals) parse(field, raw string) decimal.Decimal {
	if d.err != nil {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		d.err = fmt.Errorf("failed to parse %s '%s': %w", field, raw, err)
		return decimal.Zero
	}
	return value
}

// checkStorable refuses amounts the NUMERIC columns would round. SQLite
// converts them to REAL on insert.
func checkStorable(amounts ...decimal.Decimal) error {
	for _, amount := range amounts {
		if !models.Storable(amount) {
			return fmt.Errorf("amount %s cannot be stored without rounding", amount.String())
		}
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
