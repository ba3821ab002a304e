// Package services – QueryService
//
// This file implements QueryService, the application-level component that
// owns query submission and the listing views. Submission validates the
// question, assembles bounded conversation context, obtains a draft answer
// from the generation service, and persists a new pending query.
//
// A storage fault on the submission path is deliberately non-fatal: the
// patient already has an answer on screen, so the service returns it and
// reports the fault as a warning instead of failing the whole operation.
//
// Observability: public methods are OpenTelemetry-instrumented; spans
// include user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medqa/go-medqa-backend/internal/domain"
	"github.com/medqa/go-medqa-backend/internal/llm"
	"github.com/medqa/go-medqa-backend/internal/repo"
)

// SubmitResult is the outcome of a submission. Answer is always set on
// success; Query is nil and Stored false when the draft could not be
// persisted (the answer must still reach the patient).
type SubmitResult struct {
	Answer string
	Query  *domain.Query
	Stored bool
}

// QueryService coordinates answer generation and query persistence.
type QueryService struct {
	DB  *gorm.DB
	Gen llm.Generator

	// HistoryLimit caps the prior exchanges sent along with a question.
	// Values <= 0 disable conversation context entirely.
	HistoryLimit int
}

// Submit validates the question, gathers conversation context, asks the
// generation service for a draft, and persists a pending query.
//
// Context rules:
//   - An explicitly supplied history wins; it is capped at HistoryLimit
//     (the list arrives most-recent-first, so the cap keeps the head) and
//     replayed to the model oldest first.
//   - With no supplied history and a known user, context is reconstructed
//     from the user's most recent stored queries. Reconstruction is best
//     effort: a read failure degrades to a context-free generation.
//   - Anonymous submissions carry no context.
//
// Generation errors (configuration, upstream auth/throttle/other) fail the
// operation. Persistence errors do not: the answer is returned with
// Stored=false and the fault is logged.
func (s *QueryService) Submit(ctx context.Context, userID *string, question string, history []domain.Exchange) (*SubmitResult, error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("user.id", deref(userID))),
	)
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	history = s.resolveHistory(ctx, userID, history)

	answer, err := s.Gen.Generate(ctx, question, history)
	if err != nil {
		return nil, err
	}

	q, err := repo.CreateQuery(ctx, s.DB, userID, question, answer)
	if err != nil {
		log.Warn().Err(err).Str("user_id", deref(userID)).
			Msg("query answered but could not be saved")
		return &SubmitResult{Answer: answer, Stored: false}, nil
	}
	return &SubmitResult{Answer: answer, Query: q, Stored: true}, nil
}

// resolveHistory applies the context rules documented on Submit.
func (s *QueryService) resolveHistory(ctx context.Context, userID *string, history []domain.Exchange) []domain.Exchange {
	limit := s.HistoryLimit
	if limit <= 0 {
		return nil
	}
	if limit > domain.HistoryLimit {
		limit = domain.HistoryLimit
	}

	if history != nil {
		if len(history) > limit {
			history = history[:limit]
		}
		// Supplied most-recent-first; the model wants oldest first.
		out := make([]domain.Exchange, 0, len(history))
		for i := len(history) - 1; i >= 0; i-- {
			out = append(out, history[i])
		}
		return out
	}

	if userID == nil || *userID == "" {
		return nil
	}
	out, err := repo.RecentExchanges(ctx, s.DB, *userID, limit)
	if err != nil {
		log.Warn().Err(err).Str("user_id", *userID).
			Msg("could not reconstruct conversation context")
		return nil
	}
	return out
}

// ListPending returns a page of unverified queries (newest first) together
// with the total pending count. The view is shared across all clinicians.
func (s *QueryService) ListPending(ctx context.Context, page, pageSize int) ([]domain.Query, int64, error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "ListPending",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountPending(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Query{}, 0, nil
	}

	items, err := repo.ListPendingPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// ListVerifiedBy returns the queries verified by one clinician, newest
// first. Callers re-query after each verification rather than patching a
// local copy, so the view stays consistent under concurrent edits.
func (s *QueryService) ListVerifiedBy(ctx context.Context, clinicianID string) ([]domain.Query, error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "ListVerifiedBy",
		trace.WithAttributes(attribute.String("clinician.id", clinicianID)),
	)
	defer span.End()

	return repo.ListVerifiedBy(ctx, s.DB, clinicianID)
}

// ListForUser returns a patient's own query history, newest first.
func (s *QueryService) ListForUser(ctx context.Context, userID string) ([]domain.Query, error) {
	tr := otel.Tracer("services/QueryService")
	ctx, span := tr.Start(ctx, "ListForUser",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.ListUserQueries(ctx, s.DB, userID)
}

// deref returns the pointed-to string or "" for nil.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
