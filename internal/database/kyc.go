package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"assetbridge-nexus/internal/models"
	"assetbridge-nexus/internal/store"
)

func scanVerification(row rowScanner) (*models.KYCVerification, error) {
	var v models.KYCVerification
	if err := row.Scan(&v.Id, &v.UserId, &v.InquiryId, &v.Email, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan verification: %w", err)
	}
	return &v, nil
}

func (s *Service) CreateVerification(ctx context.Context, v *models.KYCVerification) error {
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, s.q(queryInsertVerification),
		v.Id, v.UserId, v.InquiryId, v.Email, v.Status, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: inquiry %s already recorded", store.ErrDuplicate, v.InquiryId)
		}
		return fmt.Errorf("failed to insert verification: %w", err)
	}
	return nil
}

func (s *Service) GetVerification(ctx context.Context, id string) (*models.KYCVerification, error) {
	return scanVerification(s.db.QueryRowContext(ctx, s.q(queryGetVerification), id))
}

func (s *Service) GetVerificationByInquiry(ctx context.Context, inquiryId string) (*models.KYCVerification, error) {
	return scanVerification(s.db.QueryRowContext(ctx, s.q(queryGetVerificationByInquiry), inquiryId))
}

func (s *Service) UpdateVerificationStatus(ctx context.Context, id, status string) error {
	result, err := s.db.ExecContext(ctx, s.q(queryUpdateVerificationStatus), status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	return checkRowsAffected(result, store.ErrNotFound)
}
