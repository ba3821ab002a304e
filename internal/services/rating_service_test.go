package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/medqa/go-medqa-backend/internal/domain"
	"github.com/medqa/go-medqa-backend/internal/repo"
)

func newRatingSvcDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("rating_svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Query{}, &domain.ClinicianProfile{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedClinician(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	p := domain.ClinicianProfile{ID: id, FullName: "Dr " + id, Specialization: "GP", Rating: DefaultReputation}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed clinician: %v", err)
	}
}

func seedVerified(t *testing.T, db *gorm.DB, id, clinicianID string, rating *int) {
	t.Helper()
	q := domain.Query{
		ID:          id,
		Question:    "q",
		Answer:      "a",
		Verified:    true,
		ClinicianID: &clinicianID,
		Rating:      rating,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed verified: %v", err)
	}
}

func intptr(v int) *int { return &v }

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRate_InvalidValue(t *testing.T) {
	svc := &RatingService{DB: newRatingSvcDB(t)}
	for _, v := range []int{-1, 2, 5} {
		if err := svc.Rate(context.Background(), "q1", v); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("Rate(%d): expected ErrInvalidRating, got %v", v, err)
		}
	}
}

func TestRate_QueryNotFound(t *testing.T) {
	svc := &RatingService{DB: newRatingSvcDB(t)}
	if err := svc.Rate(context.Background(), "missing", RatingHelpful); !errors.Is(err, ErrQueryNotFound) {
		t.Fatalf("expected ErrQueryNotFound, got %v", err)
	}
}

func TestRate_NotVerifiedYet(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}

	q := domain.Query{ID: "q1", Question: "q", Answer: "a", CreatedAt: time.Now().UTC()}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.Rate(context.Background(), "q1", RatingHelpful); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
}

func TestRate_AlreadyRated(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}
	seedClinician(t, db, "dr1")
	seedVerified(t, db, "q1", "dr1", intptr(RatingHelpful))

	if err := svc.Rate(context.Background(), "q1", RatingNotHelpful); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("expected ErrAlreadyRated, got %v", err)
	}
	got, _ := repo.GetQuery(context.Background(), db, "q1")
	if *got.Rating != RatingHelpful {
		t.Fatalf("second rating overwrote the first: %v", *got.Rating)
	}
}

func TestRate_ZeroIsAValidRating(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}
	seedClinician(t, db, "dr1")
	seedVerified(t, db, "q1", "dr1", nil)

	if err := svc.Rate(context.Background(), "q1", RatingNotHelpful); err != nil {
		t.Fatalf("Rate(0): %v", err)
	}
	got, _ := repo.GetQuery(context.Background(), db, "q1")
	if got.Rating == nil || *got.Rating != RatingNotHelpful {
		t.Fatalf("rating 0 did not persist: %+v", got.Rating)
	}
}

func TestRate_UpdatesClinicianReputation(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}
	ctx := context.Background()
	seedClinician(t, db, "dr1")

	// Three already-rated verified queries: 2 helpful, 1 not.
	seedVerified(t, db, "q1", "dr1", intptr(1))
	seedVerified(t, db, "q2", "dr1", intptr(1))
	seedVerified(t, db, "q3", "dr1", intptr(0))
	// The one being rated now.
	seedVerified(t, db, "q4", "dr1", nil)

	if err := svc.Rate(ctx, "q4", RatingHelpful); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	// 3 of 4 helpful -> 1.0 + 0.75*4.0 = 4.0.
	p, err := repo.GetProfile(ctx, db, "dr1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if !almostEqual(p.Rating, 4.0) {
		t.Fatalf("reputation = %v; want 4.0", p.Rating)
	}
	if p.VerifiedResponses != 4 {
		t.Fatalf("verified responses = %d; want 4", p.VerifiedResponses)
	}
}

func TestRate_NoClinicianOnQuery_SkipsRecompute(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}

	// Verified but without clinician attribution (legacy/imported row).
	q := domain.Query{ID: "q1", Question: "q", Answer: "a", Verified: true, CreatedAt: time.Now().UTC()}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.Rate(context.Background(), "q1", RatingHelpful); err != nil {
		t.Fatalf("rating without clinician should still succeed: %v", err)
	}
}

func TestRate_RecomputeFailure_KeepsRating(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}
	ctx := context.Background()

	// Verified by a clinician who has no profile row: the recompute's
	// reputation write fails, the rating must survive.
	seedVerified(t, db, "q1", "ghost", nil)

	err := svc.Rate(ctx, "q1", RatingHelpful)
	if err == nil || !errors.Is(err, ErrClinicianNotFound) {
		t.Fatalf("expected wrapped ErrClinicianNotFound, got %v", err)
	}
	got, _ := repo.GetQuery(ctx, db, "q1")
	if got.Rating == nil || *got.Rating != RatingHelpful {
		t.Fatalf("rating rolled back on recompute failure: %+v", got.Rating)
	}
}

func TestRecompute_NoRatedQueries_DefaultScore(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}
	ctx := context.Background()
	seedClinician(t, db, "dr1")
	seedVerified(t, db, "q1", "dr1", nil)
	seedVerified(t, db, "q2", "dr1", nil)

	score, err := svc.Recompute(ctx, "dr1")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if !almostEqual(score, DefaultReputation) {
		t.Fatalf("score = %v; want default %v", score, DefaultReputation)
	}
	p, _ := repo.GetProfile(ctx, db, "dr1")
	if p.VerifiedResponses != 2 {
		t.Fatalf("verified responses = %d; want 2", p.VerifiedResponses)
	}
}

func TestRecompute_Bounds(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}
	ctx := context.Background()

	// All helpful -> 5.0.
	seedClinician(t, db, "dr-up")
	seedVerified(t, db, "u1", "dr-up", intptr(1))
	seedVerified(t, db, "u2", "dr-up", intptr(1))
	score, err := svc.Recompute(ctx, "dr-up")
	if err != nil || !almostEqual(score, 5.0) {
		t.Fatalf("all-helpful score = %v err = %v; want 5.0", score, err)
	}

	// None helpful -> 1.0.
	seedClinician(t, db, "dr-down")
	seedVerified(t, db, "d1", "dr-down", intptr(0))
	score, err = svc.Recompute(ctx, "dr-down")
	if err != nil || !almostEqual(score, 1.0) {
		t.Fatalf("none-helpful score = %v err = %v; want 1.0", score, err)
	}
}

func TestRecompute_IsIdempotent(t *testing.T) {
	db := newRatingSvcDB(t)
	svc := &RatingService{DB: db}
	ctx := context.Background()
	seedClinician(t, db, "dr1")
	seedVerified(t, db, "q1", "dr1", intptr(1))
	seedVerified(t, db, "q2", "dr1", intptr(0))

	first, err := svc.Recompute(ctx, "dr1")
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	second, err := svc.Recompute(ctx, "dr1")
	if err != nil {
		t.Fatalf("Recompute (again): %v", err)
	}
	if !almostEqual(first, second) || !almostEqual(first, 3.0) {
		t.Fatalf("recompute not stable: first=%v second=%v; want 3.0", first, second)
	}
}

func TestRecompute_MissingClinician(t *testing.T) {
	svc := &RatingService{DB: newRatingSvcDB(t)}
	if _, err := svc.Recompute(context.Background(), "nobody"); !errors.Is(err, ErrClinicianNotFound) {
		t.Fatalf("expected ErrClinicianNotFound, got %v", err)
	}
}

// Full lifecycle: verify four queries, rate three of them helpful and one
// not, and check the derived score after each step.
func TestReputationLifecycle(t *testing.T) {
	db := newRatingSvcDB(t)
	verify := &VerificationService{DB: db}
	rate := &RatingService{DB: db}
	ctx := context.Background()
	seedClinician(t, db, "dr-lee")

	for i := 0; i < 4; i++ {
		q := domain.Query{ID: fmt.Sprintf("q%d", i), Question: "q", Answer: "draft", CreatedAt: time.Now().UTC()}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := verify.Verify(ctx, q.ID, "reviewed", "dr-lee", "Dr. Lee"); err != nil {
			t.Fatalf("Verify(%s): %v", q.ID, err)
		}
	}

	// Before any rating the score stays at the default.
	if score, _ := rate.Recompute(ctx, "dr-lee"); !almostEqual(score, DefaultReputation) {
		t.Fatalf("pre-rating score = %v; want %v", score, DefaultReputation)
	}

	for _, id := range []string{"q0", "q1", "q2"} {
		if err := rate.Rate(ctx, id, RatingHelpful); err != nil {
			t.Fatalf("Rate(%s): %v", id, err)
		}
	}
	if err := rate.Rate(ctx, "q3", RatingNotHelpful); err != nil {
		t.Fatalf("Rate(q3): %v", err)
	}

	p, err := repo.GetProfile(ctx, db, "dr-lee")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	// 3 of 4 helpful -> 4.0.
	if !almostEqual(p.Rating, 4.0) {
		t.Fatalf("final reputation = %v; want 4.0", p.Rating)
	}
	if p.VerifiedResponses != 4 {
		t.Fatalf("verified responses = %d; want 4", p.VerifiedResponses)
	}
}
