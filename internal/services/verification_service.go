// Package services – VerificationService
//
// This file implements the clinician verification step: claiming a pending
// query, optionally replacing the AI draft with an edited answer, and
// marking it verified with clinician attribution. The transition is guarded
// at the storage layer so the first verifier wins; a losing concurrent
// attempt gets ErrAlreadyVerified instead of silently overwriting.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medqa/go-medqa-backend/internal/repo"
)

// VerificationService transitions pending queries to verified.
type VerificationService struct {
	DB *gorm.DB
}

// Verify marks the query as verified by the given clinician, replacing the
// stored answer with the supplied final text (identical to the draft when
// the clinician did not edit it) and stamping VerifiedAt.
//
// Preconditions:
//   - clinicianID and clinicianName must both be present; otherwise
//     ErrMissingClinician and nothing is updated.
//   - the final answer must be non-empty; otherwise ErrEmptyAnswer.
//
// Outcomes:
//   - nil: the query is now verified by this clinician.
//   - ErrQueryNotFound: no such query.
//   - ErrAlreadyVerified: another clinician got there first.
//   - other: storage error, safe to retry.
func (s *VerificationService) Verify(ctx context.Context, queryID, answer, clinicianID, clinicianName string) error {
	tr := otel.Tracer("services/VerificationService")
	ctx, span := tr.Start(ctx, "Verify",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.String("clinician.id", clinicianID),
		),
	)
	defer span.End()

	clinicianID = strings.TrimSpace(clinicianID)
	clinicianName = strings.TrimSpace(clinicianName)
	if clinicianID == "" || clinicianName == "" {
		return ErrMissingClinician
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ErrEmptyAnswer
	}

	err := repo.MarkVerified(ctx, s.DB, queryID, answer, clinicianID, clinicianName, time.Now().UTC())
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	// The guarded update matched nothing: either the query is missing or it
	// was already verified. Re-read to tell the two apart.
	q, getErr := repo.GetQuery(ctx, s.DB, queryID)
	if getErr != nil {
		if errors.Is(getErr, repo.ErrNotFound) {
			return ErrQueryNotFound
		}
		return getErr
	}
	if q.Verified {
		return ErrAlreadyVerified
	}
	return err
}
