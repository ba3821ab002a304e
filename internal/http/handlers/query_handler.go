// Query HTTP handlers.
//
// This file exposes REST endpoints for the query lifecycle:
//   - POST /queries          (submit a question, get an AI-drafted answer)
//   - GET  /queries          (the calling patient's history)
//   - GET  /queries/pending  (shared clinician review queue, paginated)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (newline and length constraints)
//   - delegate to application services
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous
// successful submission exists for (user, key), the handler replays the
// recorded query instead of generating a second answer, and sets
// `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/medqa/go-medqa-backend/internal/domain"
	"github.com/medqa/go-medqa-backend/internal/http/middleware"
	"github.com/medqa/go-medqa-backend/internal/llm"
	"github.com/medqa/go-medqa-backend/internal/repo"
	"github.com/medqa/go-medqa-backend/internal/services"
	"github.com/medqa/go-medqa-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// QueryService defines query submission and listing operations consumed by
// HTTP handlers. Implementations must be safe for concurrent use and honor
// the provided context.
type QueryService interface {
	// Submit generates a draft answer and persists a pending query.
	Submit(ctx context.Context, userID *string, question string, history []domain.Exchange) (*services.SubmitResult, error)
	// ListPending returns a page of unverified queries plus the total count.
	ListPending(ctx context.Context, page, pageSize int) ([]domain.Query, int64, error)
	// ListVerifiedBy returns queries verified by one clinician.
	ListVerifiedBy(ctx context.Context, clinicianID string) ([]domain.Query, error)
	// ListForUser returns a patient's own query history.
	ListForUser(ctx context.Context, userID string) ([]domain.Query, error)
}

// VerificationService defines the clinician verification transition.
type VerificationService interface {
	// Verify marks a pending query as verified with clinician attribution.
	Verify(ctx context.Context, queryID, answer, clinicianID, clinicianName string) error
}

// RatingService defines patient feedback and reputation operations.
type RatingService interface {
	// Rate records a one-time binary rating on a verified query.
	Rate(ctx context.Context, queryID string, rating int) error
	// Recompute re-derives and persists a clinician's reputation score.
	Recompute(ctx context.Context, clinicianID string) (float64, error)
}

// ClinicianService defines clinician profile operations.
type ClinicianService interface {
	// Onboard creates a clinician profile with the default reputation.
	Onboard(ctx context.Context, id, fullName, specialization, licenseNumber string) (*domain.ClinicianProfile, error)
	// Profile fetches a clinician profile by user id.
	Profile(ctx context.Context, id string) (*domain.ClinicianProfile, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for queries, verification, ratings,
// and clinician profiles. It depends on abstract service interfaces to
// keep transport concerns separate from business logic.
type Handlers struct {
	querySvc  QueryService
	verifySvc VerificationService
	rateSvc   RatingService
	clinSvc   ClinicianService

	// IdempotencyTTL bounds how long a submission Idempotency-Key stays
	// replayable.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(querySvc QueryService, verifySvc VerificationService, rateSvc RatingService, clinSvc ClinicianService) *Handlers {
	return &Handlers{
		querySvc:       querySvc,
		verifySvc:      verifySvc,
		rateSvc:        rateSvc,
		clinSvc:        clinSvc,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// userID extracts the caller identity from the Gin context (set by
// upstream middleware) with a fallback to the "X-User-ID" header. An empty
// result means the caller is anonymous; queries may be submitted
// anonymously, so no default identity is substituted.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

//
// DTOs
//

// ExchangeDTO is one prior question/answer pair supplied as conversation
// context, most recent first.
type ExchangeDTO struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer" binding:"required"`
}

// SubmitQueryRequest is the JSON payload for submitting a question.
type SubmitQueryRequest struct {
	// Question is the patient's medical question. It must be non-empty.
	Question string `json:"question" binding:"required,min=1" example:"What is a normal resting heart rate?"`
	// History optionally carries up to 5 prior exchanges, most recent
	// first. When omitted the server reconstructs context from the
	// caller's stored history.
	History []ExchangeDTO `json:"history,omitempty"`
}

// SubmitQueryResponse is the JSON envelope for an answered submission.
type SubmitQueryResponse struct {
	// Answer is the AI-drafted reply shown to the patient while a
	// clinician review is pending.
	Answer string `json:"answer"`
	// Query is the persisted record; omitted when storage failed.
	Query *domain.Query `json:"query,omitempty"`
	// StorageWarning is set when the answer could not be saved. The
	// operation still succeeds: the answer must not be lost to a storage
	// fault.
	StorageWarning string `json:"storage_warning,omitempty"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListQueriesResponse contains a page of queries and pagination metadata.
type ListQueriesResponse struct {
	Queries    []domain.Query `json:"queries"`
	Pagination Pagination     `json:"pagination"`
}

// QueriesResponse contains a non-paginated query list.
type QueriesResponse struct {
	Queries []domain.Query `json:"queries"`
}

//
// Helpers
//

// maxQuestionRunes caps submitted questions; overly long input is rejected
// at the edge before any generation cost is incurred.
const maxQuestionRunes = 4000

// clampPagination parses page/page_size from query parameters, applies
// sane defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeText normalizes user text for consistent downstream behavior:
// CRLF/CR to LF, runs of 3+ LFs to exactly two, surrounding whitespace
// trimmed.
func sanitizeText(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// serviceDB exposes the GORM handle of the concrete QueryService for
// ETag and idempotency lookups. Returns nil for stub implementations.
func (h *Handlers) serviceDB() *gorm.DB {
	if svc, ok := h.querySvc.(*services.QueryService); ok {
		return svc.DB
	}
	return nil
}

//
// Handlers
//

// SubmitQuery godoc
// @ID          submitQuery
// @Summary     Submit a medical question
// @Description Generates an AI-drafted answer, persists a pending query for
// @Description clinician review, and returns the answer. Supports
// @Description idempotency via the Idempotency-Key header.
// @Tags        Queries
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "Patient user ID (omit for anonymous)" example(patient123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.SubmitQueryRequest  true  "Question payload"
//
// @Success     200  {object}  handlers.SubmitQueryResponse  "AI-drafted answer"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse        "Configuration or upstream error"
// @Failure     502  {object}  handlers.ErrorResponse        "Generation service failure"
// @Router      /queries [post]
func (h *Handlers) SubmitQuery(c *gin.Context) {
	ctx := c.Request.Context()

	var req SubmitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question required")
		return
	}

	question := sanitizeText(req.Question)
	if question == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question required")
		return
	}
	if utf8.RuneCountInString(question) > maxQuestionRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("question too long: max %d runes", maxQuestionRunes))
		return
	}

	uid := userID(c)
	var uidPtr *string
	if uid != "" {
		uidPtr = &uid
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := getIdempotencyKey(c)
	if idemKey != "" && uid != "" {
		if db := h.serviceDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, uid, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetQuery(ctx, db, rec.QueryID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, SubmitQueryResponse{Answer: prev.Answer, Query: prev})
					return
				}
			}
		}
	}

	var history []domain.Exchange
	if req.History != nil {
		history = make([]domain.Exchange, 0, len(req.History))
		for _, ex := range req.History {
			history = append(history, domain.Exchange{Question: ex.Question, Answer: ex.Answer})
		}
	}

	res, err := h.querySvc.Submit(ctx, uidPtr, question, history)
	if err != nil {
		failSubmit(c, err)
		return
	}

	resp := SubmitQueryResponse{Answer: res.Answer, Query: res.Query}
	if res.Stored {
		middleware.QueriesSubmitted.Inc()
	} else {
		resp.StorageWarning = "Your question was answered, but we couldn't save it. Please try again."
	}

	// Idempotency (store path) – best effort, only for persisted queries.
	if idemKey != "" && uid != "" && res.Stored {
		if db := h.serviceDB(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, uid, idemKey, res.Query.ID, http.StatusOK, h.IdempotencyTTL)
		}
	}

	ok(c, http.StatusOK, resp)
}

// failSubmit translates submission errors into HTTP results, keeping the
// upstream categories distinct so callers can choose a retry strategy.
func failSubmit(c *gin.Context, err error) {
	switch {
	case err == services.ErrEmptyQuestion:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question required")
	case err == llm.ErrNoAPIKey:
		fail(c, http.StatusInternalServerError, ErrCodeConfig, "OpenAI API key is not configured")
	case err == llm.ErrUpstreamAuth:
		fail(c, http.StatusBadGateway, ErrCodeUpstreamAuth,
			"authentication error with the generation service; check the API key")
	case err == llm.ErrUpstreamRateLimited:
		fail(c, http.StatusBadGateway, ErrCodeUpstreamRateLimited,
			"generation service rate limit exceeded; please try again later")
	default:
		fail(c, http.StatusBadGateway, ErrCodeUpstream, err.Error())
	}
}

// ListPending godoc
// @ID          listPending
// @Summary     List queries awaiting verification
// @Description Returns the shared review queue of unverified queries,
// @Description newest first. Visible to all clinicians.
// @Tags        Queries
// @Produce     json
//
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListQueriesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /queries/pending [get]
func (h *Handlers) ListPending(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if db := h.serviceDB(); db != nil {
		count, maxTS, err := repo.PendingStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"pending:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.querySvc.ListPending(ctx, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListQueriesResponse{
		Queries: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// ListMyQueries godoc
// @ID          listMyQueries
// @Summary     List the caller's query history
// @Description Returns the calling patient's queries, newest first,
// @Description including verification state and rating.
// @Tags        Queries
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Patient user ID" example(patient123)
//
// @Success     200  {object} handlers.QueriesResponse
// @Failure     401  {object} handlers.ErrorResponse "Missing identity"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /queries [get]
func (h *Handlers) ListMyQueries(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID required")
		return
	}

	// ETag pre-check (best effort).
	ctx := c.Request.Context()
	if db := h.serviceDB(); db != nil {
		count, maxTS, err := repo.UserQueriesStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"history:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.querySvc.ListForUser(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, QueriesResponse{Queries: items})
}

// getIdempotencyKey reads the key stashed by the idempotency middleware,
// falling back to the raw header when the middleware is absent (tests).
func getIdempotencyKey(c *gin.Context) (string, bool) {
	if key, ok := middleware.GetIdempotencyKey(c); ok {
		return key, true
	}
	if v := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey)); v != "" {
		return v, true
	}
	return "", false
}
