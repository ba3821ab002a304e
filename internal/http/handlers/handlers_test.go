package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/medqa/go-medqa-backend/internal/domain"
	"github.com/medqa/go-medqa-backend/internal/services"
)

//
// Stub services
//

type stubQuerySvc struct {
	submitRes   *services.SubmitResult
	submitErr   error
	gotUserID   *string
	gotQuestion string
	gotHistory  []domain.Exchange

	pending      []domain.Query
	pendingTotal int64
	pendingErr   error
	gotPage      int
	gotPageSize  int

	verifiedBy    []domain.Query
	verifiedByErr error

	forUser    []domain.Query
	forUserErr error
	gotForUser string
}

func (s *stubQuerySvc) Submit(_ context.Context, userID *string, question string, history []domain.Exchange) (*services.SubmitResult, error) {
	s.gotUserID = userID
	s.gotQuestion = question
	s.gotHistory = history
	return s.submitRes, s.submitErr
}

func (s *stubQuerySvc) ListPending(_ context.Context, page, pageSize int) ([]domain.Query, int64, error) {
	s.gotPage, s.gotPageSize = page, pageSize
	return s.pending, s.pendingTotal, s.pendingErr
}

func (s *stubQuerySvc) ListVerifiedBy(_ context.Context, _ string) ([]domain.Query, error) {
	return s.verifiedBy, s.verifiedByErr
}

func (s *stubQuerySvc) ListForUser(_ context.Context, userID string) ([]domain.Query, error) {
	s.gotForUser = userID
	return s.forUser, s.forUserErr
}

type stubVerifySvc struct {
	err        error
	gotQueryID string
	gotAnswer  string
	gotClinID  string
	gotName    string
}

func (s *stubVerifySvc) Verify(_ context.Context, queryID, answer, clinicianID, clinicianName string) error {
	s.gotQueryID, s.gotAnswer = queryID, answer
	s.gotClinID, s.gotName = clinicianID, clinicianName
	return s.err
}

type stubRateSvc struct {
	rateErr   error
	gotRating int

	recomputeScore float64
	recomputeErr   error
}

func (s *stubRateSvc) Rate(_ context.Context, _ string, rating int) error {
	s.gotRating = rating
	return s.rateErr
}

func (s *stubRateSvc) Recompute(_ context.Context, _ string) (float64, error) {
	return s.recomputeScore, s.recomputeErr
}

type stubClinSvc struct {
	profile    *domain.ClinicianProfile
	onboardErr error
	profileErr error

	gotID, gotName, gotSpec, gotLicense string
}

func (s *stubClinSvc) Onboard(_ context.Context, id, fullName, specialization, licenseNumber string) (*domain.ClinicianProfile, error) {
	s.gotID, s.gotName, s.gotSpec, s.gotLicense = id, fullName, specialization, licenseNumber
	if s.onboardErr != nil {
		return nil, s.onboardErr
	}
	return s.profile, nil
}

func (s *stubClinSvc) Profile(_ context.Context, _ string) (*domain.ClinicianProfile, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

//
// Test harness
//

// newTestRouter wires the handlers onto the production route table so path
// parameters bind the same way they do in the real server.
func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/queries", h.SubmitQuery)
	r.GET("/queries", h.ListMyQueries)
	r.GET("/queries/pending", h.ListPending)
	r.POST("/queries/:id/verify", h.VerifyQuery)
	r.POST("/queries/:id/rating", h.RateQuery)
	r.POST("/clinicians", h.OnboardClinician)
	r.GET("/clinicians/:id", h.GetClinician)
	r.GET("/clinicians/:id/queries", h.ListClinicianQueries)
	r.POST("/clinicians/:id/reputation", h.RecomputeReputation)
	return r
}

// doJSON performs a request with an optional JSON body and headers.
func doJSON(r *gin.Engine, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decode unmarshals a recorded JSON body into out, failing the test on error.
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

// wantError asserts the standard error envelope with a given status and code.
func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d; want %d (body: %s)", w.Code, status, w.Body.String())
	}
	var e ErrorResponse
	decode(t, w, &e)
	if e.Code != code {
		t.Fatalf("error code = %q; want %q", e.Code, code)
	}
}
