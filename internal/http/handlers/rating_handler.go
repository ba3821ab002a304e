package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medqa/go-medqa-backend/internal/http/middleware"
	"github.com/medqa/go-medqa-backend/internal/services"
)

// RateQueryRequest is the JSON payload for patient feedback on a verified
// answer. Rating is a pointer so that the zero value ("not helpful") still
// satisfies the required binding.
type RateQueryRequest struct {
	// Rating: 1 = helpful, 0 = not helpful.
	Rating *int `json:"rating" binding:"required" example:"1"`
}

// RateQueryResponse confirms the recorded rating.
type RateQueryResponse struct {
	QueryID string `json:"query_id"`
	Rating  int    `json:"rating"`
}

// RecomputeResponse carries a freshly derived reputation score.
type RecomputeResponse struct {
	ClinicianID string  `json:"clinician_id"`
	Rating      float64 `json:"rating"`
}

// RateQuery godoc
// @ID          rateQuery
// @Summary     Rate a verified answer
// @Description Records one-time binary patient feedback (1 = helpful,
// @Description 0 = not helpful) on a verified query and updates the
// @Description verifying clinician's reputation.
// @Tags        Ratings
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Query ID (UUID)"
// @Param       body  body  handlers.RateQueryRequest true "Rating payload"
//
// @Success     200  {object} handlers.RateQueryResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid rating"
// @Failure     404  {object} handlers.ErrorResponse "Query not found"
// @Failure     409  {object} handlers.ErrorResponse "Not verified yet, or already rated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /queries/{id}/rating [post]
func (h *Handlers) RateQuery(c *gin.Context) {
	queryID := c.Param("id")

	var req RateQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Rating == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating required (0 or 1)")
		return
	}

	err := h.rateSvc.Rate(c.Request.Context(), queryID, *req.Rating)
	switch {
	case err == nil:
		outcome := "not_helpful"
		if *req.Rating == services.RatingHelpful {
			outcome = "helpful"
		}
		middleware.RatingsRecorded.WithLabelValues(outcome).Inc()
		ok(c, http.StatusOK, RateQueryResponse{QueryID: queryID, Rating: *req.Rating})
	case err == services.ErrInvalidRating:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating must be 0 or 1")
	case err == services.ErrQueryNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "query not found")
	case err == services.ErrNotVerified:
		fail(c, http.StatusConflict, ErrCodeConflict, "query is not verified yet")
	case err == services.ErrAlreadyRated:
		fail(c, http.StatusConflict, ErrCodeConflict, "query already rated")
	default:
		// The rating itself may have been recorded; surface the recompute
		// failure without claiming the whole operation failed.
		fail(c, http.StatusInternalServerError, ErrCodeStorage, err.Error())
	}
}

// RecomputeReputation godoc
// @ID          recomputeReputation
// @Summary     Recompute a clinician's reputation
// @Description Re-derives the reputation score from the clinician's
// @Description verified queries and persists it. Safe to call at any time;
// @Description the derivation is idempotent.
// @Tags        Ratings
// @Produce     json
//
// @Param       id  path  string  true  "Clinician user ID" example(dr-lee)
//
// @Success     200  {object} handlers.RecomputeResponse
// @Failure     404  {object} handlers.ErrorResponse "Clinician not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /clinicians/{id}/reputation [post]
func (h *Handlers) RecomputeReputation(c *gin.Context) {
	id := c.Param("id")

	score, err := h.rateSvc.Recompute(c.Request.Context(), id)
	switch {
	case err == nil:
		ok(c, http.StatusOK, RecomputeResponse{ClinicianID: id, Rating: score})
	case errors.Is(err, services.ErrClinicianNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "clinician not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
