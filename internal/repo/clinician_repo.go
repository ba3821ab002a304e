// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ClinicianProfile model.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/medqa/go-medqa-backend/internal/domain"
)

// ErrDuplicate indicates that a row with the same primary key (or unique
// index) already exists.
var ErrDuplicate = errors.New("duplicate")

// CreateProfile inserts a clinician profile at onboarding time. The caller
// supplies the clinician's user id as the primary key; a second onboarding
// attempt for the same id returns ErrDuplicate.
func CreateProfile(ctx context.Context, db *gorm.DB, p *domain.ClinicianProfile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetProfile fetches a clinician profile by user id, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.ClinicianProfile, error) {
	var p domain.ClinicianProfile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateReputation writes a freshly derived reputation score and verified
// response count onto the profile. The values must come from a full
// recomputation over the clinician's verified queries, never from an
// incremental patch. Returns ErrNotFound when the profile does not exist.
func UpdateReputation(ctx context.Context, db *gorm.DB, id string, rating float64, verifiedResponses int64) error {
	res := db.WithContext(ctx).
		Model(&domain.ClinicianProfile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"rating":             rating,
			"verified_responses": verifiedResponses,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation detects unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
