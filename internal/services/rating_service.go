// Package services – RatingService
//
// This file implements patient feedback on verified answers and the
// derived clinician reputation score. The score is a materialized cache:
// every trigger recomputes it in full from the clinician's verified
// queries, which makes the recomputation idempotent and safe to re-run at
// any time (concurrent recomputations converge because each write carries
// a complete, self-consistent derivation).
package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medqa/go-medqa-backend/internal/repo"
)

// Rating values accepted from patients.
const (
	RatingNotHelpful = 0
	RatingHelpful    = 1
)

// DefaultReputation is a clinician's score before any rated feedback
// exists (and the value profiles start with at onboarding).
const DefaultReputation = 5.0

// RatingService records patient feedback and maintains clinician
// reputation scores.
type RatingService struct {
	DB *gorm.DB
}

// Rate records a one-time binary rating on a verified query and then
// recomputes the verifying clinician's reputation.
//
// Validation:
//   - rating must be 0 or 1 (ErrInvalidRating)
//   - the query must exist (ErrQueryNotFound), be verified
//     (ErrNotVerified), and not be rated yet (ErrAlreadyRated)
//
// A recompute failure after the rating write does not roll the rating
// back: the recomputation is a pure function of stored state and can be
// retried independently (see Recompute).
func (s *RatingService) Rate(ctx context.Context, queryID string, rating int) error {
	tr := otel.Tracer("services/RatingService")
	ctx, span := tr.Start(ctx, "Rate",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.Int("rating", rating),
		),
	)
	defer span.End()

	if rating != RatingNotHelpful && rating != RatingHelpful {
		return ErrInvalidRating
	}

	q, err := repo.GetQuery(ctx, s.DB, queryID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrQueryNotFound
		}
		return err
	}
	if !q.Verified {
		return ErrNotVerified
	}
	if q.Rated() {
		return ErrAlreadyRated
	}

	if err := repo.SetRating(ctx, s.DB, queryID, rating); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Lost a race against another rating write.
			return ErrAlreadyRated
		}
		return err
	}

	if q.ClinicianID == nil || *q.ClinicianID == "" {
		return nil
	}
	if _, err := s.Recompute(ctx, *q.ClinicianID); err != nil {
		return fmt.Errorf("rating recorded, reputation recompute failed: %w", err)
	}
	return nil
}

// Recompute derives the clinician's reputation from scratch and persists
// it, returning the new score.
//
// Derivation over all queries with this clinician id and verified=true:
//   - totalRated = queries with a non-nil rating
//   - positive   = queries rated helpful
//   - score      = 5.0 when totalRated == 0, else
//     1.0 + (positive/totalRated) * 4.0
//
// 0% helpful maps to 1.0 and 100% to 5.0, linearly in between. The
// persisted verified-response count covers all verified queries, rated or
// not.
func (s *RatingService) Recompute(ctx context.Context, clinicianID string) (float64, error) {
	tr := otel.Tracer("services/RatingService")
	ctx, span := tr.Start(ctx, "Recompute",
		trace.WithAttributes(attribute.String("clinician.id", clinicianID)),
	)
	defer span.End()

	verified, err := repo.ListVerifiedBy(ctx, s.DB, clinicianID)
	if err != nil {
		return 0, err
	}

	var totalRated, positive int
	for _, q := range verified {
		if q.Rating == nil {
			continue
		}
		totalRated++
		if *q.Rating == RatingHelpful {
			positive++
		}
	}

	score := DefaultReputation
	if totalRated > 0 {
		score = 1.0 + float64(positive)/float64(totalRated)*4.0
	}

	err = repo.UpdateReputation(ctx, s.DB, clinicianID, score, int64(len(verified)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrClinicianNotFound
		}
		return 0, err
	}
	return score, nil
}
