package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/medqa/go-medqa-backend/internal/domain"
	"github.com/medqa/go-medqa-backend/internal/repo"
)

func newVerifySvcDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("verify_svc_test_%d.db", time.Now().UnixNano()))
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
	if err := db.AutoMigrate(&domain.Query{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedPending(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	q := domain.Query{ID: id, Question: "q", Answer: "ai draft", CreatedAt: time.Now().UTC()}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("seed pending: %v", err)
	}
}

func TestVerify_MissingClinician(t *testing.T) {
	svc := &VerificationService{DB: newVerifySvcDB(t)}
	ctx := context.Background()

	if err := svc.Verify(ctx, "q1", "answer", "", "Dr. Lee"); !errors.Is(err, ErrMissingClinician) {
		t.Fatalf("expected ErrMissingClinician for empty id, got %v", err)
	}
	if err := svc.Verify(ctx, "q1", "answer", "dr1", "  "); !errors.Is(err, ErrMissingClinician) {
		t.Fatalf("expected ErrMissingClinician for empty name, got %v", err)
	}
}

func TestVerify_EmptyAnswer(t *testing.T) {
	svc := &VerificationService{DB: newVerifySvcDB(t)}
	if err := svc.Verify(context.Background(), "q1", "   ", "dr1", "Dr. Lee"); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestVerify_QueryNotFound(t *testing.T) {
	svc := &VerificationService{DB: newVerifySvcDB(t)}
	if err := svc.Verify(context.Background(), "missing", "answer", "dr1", "Dr. Lee"); !errors.Is(err, ErrQueryNotFound) {
		t.Fatalf("expected ErrQueryNotFound, got %v", err)
	}
}

func TestVerify_Success_ReplacesAnswerAndAttributes(t *testing.T) {
	db := newVerifySvcDB(t)
	svc := &VerificationService{DB: db}
	ctx := context.Background()
	seedPending(t, db, "q1")

	before := time.Now().UTC().Add(-time.Second)
	if err := svc.Verify(ctx, "q1", "clinician-approved answer", "dr1", "Dr. Lee"); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	got, err := repo.GetQuery(ctx, db, "q1")
	if err != nil {
		t.Fatalf("GetQuery: %v", err)
	}
	if !got.Verified || got.Answer != "clinician-approved answer" {
		t.Fatalf("verification incomplete: %+v", got)
	}
	if got.ClinicianID == nil || *got.ClinicianID != "dr1" ||
		got.ClinicianName == nil || *got.ClinicianName != "Dr. Lee" {
		t.Fatalf("attribution missing: %+v", got)
	}
	if got.VerifiedAt == nil || got.VerifiedAt.Before(before) {
		t.Fatalf("VerifiedAt not stamped: %v", got.VerifiedAt)
	}
}

func TestVerify_AlreadyVerified_FirstWriterWins(t *testing.T) {
	db := newVerifySvcDB(t)
	svc := &VerificationService{DB: db}
	ctx := context.Background()
	seedPending(t, db, "q1")

	if err := svc.Verify(ctx, "q1", "first answer", "dr1", "Dr. One"); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if err := svc.Verify(ctx, "q1", "second answer", "dr2", "Dr. Two"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}

	got, _ := repo.GetQuery(ctx, db, "q1")
	if got.Answer != "first answer" || *got.ClinicianID != "dr1" {
		t.Fatalf("second verifier overwrote the first: %+v", got)
	}
}
