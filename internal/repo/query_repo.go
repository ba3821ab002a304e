// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Query
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a query is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Conditional updates (MarkVerified, SetRating) return ErrNotFound when
//     no row matched the guard; the service layer decides whether that
//     means "missing" or "state already transitioned".
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medqa/go-medqa-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateQuery inserts a new pending query. The query ID is a randomly
// generated UUID, CreatedAt is stamped in UTC, and all verification and
// rating fields start unset.
func CreateQuery(ctx context.Context, db *gorm.DB, userID *string, question, answer string) (*domain.Query, error) {
	q := &domain.Query{
		ID:        uuid.NewString(),
		UserID:    userID,
		Question:  question,
		Answer:    answer,
		Verified:  false,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(q).Error; err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuery fetches a single query by ID, or ErrNotFound if missing.
func GetQuery(ctx context.Context, db *gorm.DB, id string) (*domain.Query, error) {
	var q domain.Query
	if err := db.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// CountPending returns the number of queries still awaiting verification.
func CountPending(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Query{}).
		Where("verified = ?", false).
		Count(&total).Error
	return total, err
}

// ListPendingPage returns a page of unverified queries, newest first. The
// pending view is shared: it is not scoped to any clinician, any clinician
// may pick up any pending query.
func ListPendingPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Query, error) {
	var out []domain.Query
	err := db.WithContext(ctx).
		Where("verified = ?", false).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListVerifiedBy returns all queries verified by the given clinician,
// newest first. This is both the clinician's "verified by me" view and the
// source set for reputation recomputation.
func ListVerifiedBy(ctx context.Context, db *gorm.DB, clinicianID string) ([]domain.Query, error) {
	var out []domain.Query
	err := db.WithContext(ctx).
		Where("clinician_id = ? AND verified = ?", clinicianID, true).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListUserQueries returns a user's own query history, newest first.
func ListUserQueries(ctx context.Context, db *gorm.DB, userID string) ([]domain.Query, error) {
	var out []domain.Query
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// RecentExchanges reconstructs the conversation context for a user: the
// question/answer pairs of their most recent queries, capped at limit and
// returned oldest first, ready to prepend to a generation request.
func RecentExchanges(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []domain.Query
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Exchange, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, domain.Exchange{Question: rows[i].Question, Answer: rows[i].Answer})
	}
	return out, nil
}

// MarkVerified transitions a pending query to verified in a single guarded
// UPDATE: verified, clinician attribution, the (possibly edited) answer and
// the verification instant are written together, and only when the row is
// still unverified. A concurrent second verifier therefore loses cleanly
// instead of overwriting (ErrNotFound; the caller distinguishes "missing"
// from "already verified" by re-reading).
func MarkVerified(ctx context.Context, db *gorm.DB, id, answer, clinicianID, clinicianName string, when time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Query{}).
		Where("id = ? AND verified = ?", id, false).
		Updates(map[string]any{
			"verified":       true,
			"answer":         answer,
			"clinician_id":   clinicianID,
			"clinician_name": clinicianName,
			"verified_at":    when,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRating records the patient's one-time binary feedback. The UPDATE is
// guarded on "rating IS NULL": re-rating an already rated query affects no
// rows and surfaces as ErrNotFound for the service layer to translate.
func SetRating(ctx context.Context, db *gorm.DB, id string, rating int) error {
	res := db.WithContext(ctx).
		Model(&domain.Query{}).
		Where("id = ? AND rating IS NULL", id).
		Update("rating", rating)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
