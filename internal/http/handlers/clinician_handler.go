package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medqa/go-medqa-backend/internal/services"
)

// OnboardClinicianRequest is the JSON payload for clinician onboarding.
type OnboardClinicianRequest struct {
	// ID is the clinician's user id; one profile exists per clinician.
	ID             string `json:"id" binding:"required,min=1" example:"dr-lee"`
	FullName       string `json:"full_name" binding:"required,min=1" example:"Maria Lee"`
	Specialization string `json:"specialization" binding:"required,min=1" example:"cardiology"`
	LicenseNumber  string `json:"license_number,omitempty" example:"GMC-123456"`
}

// OnboardClinician godoc
// @ID          onboardClinician
// @Summary     Onboard a clinician
// @Description Creates a clinician profile with the default reputation and
// @Description zero verified responses. Specialization is title-cased for
// @Description display.
// @Tags        Clinicians
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.OnboardClinicianRequest true "Profile payload"
//
// @Success     201  {object} domain.ClinicianProfile
// @Failure     400  {object} handlers.ErrorResponse "Missing fields"
// @Failure     409  {object} handlers.ErrorResponse "Profile already exists"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /clinicians [post]
func (h *Handlers) OnboardClinician(c *gin.Context) {
	var req OnboardClinicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id, full_name and specialization are required")
		return
	}

	p, err := h.clinSvc.Onboard(c.Request.Context(), req.ID, req.FullName, req.Specialization, req.LicenseNumber)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, p)
	case errors.Is(err, services.ErrMissingProfileFields):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id, full_name and specialization are required")
	case errors.Is(err, services.ErrProfileExists):
		fail(c, http.StatusConflict, ErrCodeConflict, "clinician profile already exists")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// GetClinician godoc
// @ID          getClinician
// @Summary     Get a clinician profile
// @Description Returns the clinician's profile including the current
// @Description reputation score and verified-response count.
// @Tags        Clinicians
// @Produce     json
//
// @Param       id  path  string  true  "Clinician user ID" example(dr-lee)
//
// @Success     200  {object} domain.ClinicianProfile
// @Failure     404  {object} handlers.ErrorResponse "Clinician not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /clinicians/{id} [get]
func (h *Handlers) GetClinician(c *gin.Context) {
	p, err := h.clinSvc.Profile(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		ok(c, http.StatusOK, p)
	case errors.Is(err, services.ErrClinicianNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "clinician not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
