package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medqa/go-medqa-backend/internal/http/middleware"
	"github.com/medqa/go-medqa-backend/internal/services"
)

// VerifyQueryRequest is the JSON payload for a clinician verification.
type VerifyQueryRequest struct {
	// Answer is the clinician-approved answer text. It may be the AI draft
	// unchanged or a full rewrite; it replaces the stored answer either way.
	Answer string `json:"answer" binding:"required,min=1" example:"A normal resting heart rate for adults is 60 to 100 beats per minute."`
	// ClinicianName is the display name recorded on the verified query.
	// Both the clinician id and the display name are required.
	ClinicianName string `json:"clinician_name" example:"Dr. Maria Lee"`
}

// VerifyQueryResponse confirms the verification transition.
type VerifyQueryResponse struct {
	QueryID  string `json:"query_id"`
	Verified bool   `json:"verified"`
}

// VerifyQuery godoc
// @ID          verifyQuery
// @Summary     Verify a pending query
// @Description Marks a pending query as verified, recording the reviewed
// @Description answer and clinician attribution. Verification is one-shot:
// @Description once a query is verified it cannot be verified again.
// @Tags        Verification
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Clinician user ID" example(dr-lee)
// @Param       id         path    string  true  "Query ID (UUID)"
// @Param       body       body    handlers.VerifyQueryRequest true "Reviewed answer"
//
// @Success     200  {object} handlers.VerifyQueryResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Missing clinician identity"
// @Failure     404  {object} handlers.ErrorResponse "Query not found"
// @Failure     409  {object} handlers.ErrorResponse "Already verified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /queries/{id}/verify [post]
func (h *Handlers) VerifyQuery(c *gin.Context) {
	queryID := c.Param("id")

	clinicianID := userID(c)
	if clinicianID == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "X-User-ID required")
		return
	}

	var req VerifyQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "answer required")
		return
	}

	name := strings.TrimSpace(req.ClinicianName)
	if name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clinician_name required")
		return
	}

	err := h.verifySvc.Verify(c.Request.Context(), queryID, sanitizeText(req.Answer), clinicianID, name)
	switch {
	case err == nil:
		middleware.QueriesVerified.Inc()
		ok(c, http.StatusOK, VerifyQueryResponse{QueryID: queryID, Verified: true})
	case err == services.ErrEmptyAnswer:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "answer required")
	case err == services.ErrMissingClinician:
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "clinician identity required")
	case err == services.ErrQueryNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "query not found")
	case err == services.ErrAlreadyVerified:
		fail(c, http.StatusConflict, ErrCodeConflict, "query already verified")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeStorage, err.Error())
	}
}

// ListClinicianQueries godoc
// @ID          listClinicianQueries
// @Summary     List queries verified by a clinician
// @Description Returns all queries a clinician has verified, newest first.
// @Tags        Verification
// @Produce     json
//
// @Param       id  path  string  true  "Clinician user ID" example(dr-lee)
//
// @Success     200  {object} handlers.QueriesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /clinicians/{id}/queries [get]
func (h *Handlers) ListClinicianQueries(c *gin.Context) {
	items, err := h.querySvc.ListVerifiedBy(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, QueriesResponse{Queries: items})
}
