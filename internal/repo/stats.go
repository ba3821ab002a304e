// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) on the listing endpoints.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/medqa/go-medqa-backend/internal/domain"
)

// PendingStats returns aggregate metadata for the shared pending queue:
// the number of unverified queries and the greatest UpdatedAt among them.
// When the queue is empty, count is 0 and maxUpdatedAt is nil.
func PendingStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Query{}).Where("verified = ?", false)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// UserQueriesStats returns aggregate metadata for one patient's history:
// total queries and the greatest UpdatedAt among them (nil when empty).
// Rating and verification writes both bump UpdatedAt, so the derived ETag
// changes whenever the history view would.
func UserQueriesStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Query{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
