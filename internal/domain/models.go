// Package domain defines the persistence models for patient queries and
// clinician profiles. These types are mapped with GORM and form the core
// data layer of the medical Q&A application.
package domain

import (
	"time"
)

// Query is the central entity: one patient question together with its
// current answer (AI-drafted, possibly clinician-edited) and the
// verification/rating state.
//
// Lifecycle: created pending (Verified=false) by the submission path,
// transitioned exactly once to verified by a clinician, rated at most once
// by the patient afterwards. Queries are never deleted.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the asking patient; nil for anonymous queries.
//   - Question: patient-authored question text (immutable once verified).
//   - Answer: AI-generated text, replaced by the clinician's edit on verify.
//   - Verified: whether a clinician has approved the answer.
//   - ClinicianID / ClinicianName: set at verification time; the name is a
//     denormalized snapshot and is intentionally not refreshed when a
//     clinician later renames their profile.
//   - Rating: nil until the patient leaves feedback; 1 = helpful, 0 = not.
//   - VerifiedAt: verification instant, nil while pending.
type Query struct {
	ID            string     `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID        *string    `json:"user_id,omitempty" gorm:"type:varchar(64);index:idx_user_queries"`
	Question      string     `json:"question"       gorm:"type:text;not null"`
	Answer        string     `json:"answer"         gorm:"type:text;not null"`
	Verified      bool       `json:"verified"       gorm:"not null;default:false;index:idx_pending,priority:1"`
	ClinicianID   *string    `json:"clinician_id,omitempty"   gorm:"type:varchar(64);index:idx_clinician_queries"`
	ClinicianName *string    `json:"clinician_name,omitempty" gorm:"type:varchar(255)"`
	Rating        *int       `json:"rating,omitempty" gorm:"check:rating IN (0,1)"`
	CreatedAt     time.Time  `json:"created_at"     gorm:"index:idx_pending,priority:2"`
	UpdatedAt     time.Time  `json:"updated_at"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}

// TableName returns the database table name for Query.
func (Query) TableName() string { return "queries" }

// Pending reports whether the query is still awaiting clinician review.
func (q *Query) Pending() bool { return !q.Verified }

// Rated reports whether the patient has already left feedback.
func (q *Query) Rated() bool { return q.Rating != nil }

// ClinicianProfile holds one clinician's identity and reputation record,
// keyed by the clinician's user id (one profile per clinician, created at
// onboarding, never deleted).
//
// Rating is a materialized cache: it is always recomputed in full from the
// set of verified queries attributed to this clinician, never patched
// incrementally. VerifiedResponses counts all verified queries, rated or
// not.
type ClinicianProfile struct {
	ID                string    `json:"id"                 gorm:"type:varchar(64);primaryKey"`
	FullName          string    `json:"full_name"          gorm:"type:varchar(255);not null"`
	Specialization    string    `json:"specialization"     gorm:"type:varchar(255);not null"`
	LicenseNumber     string    `json:"license_number"     gorm:"type:varchar(64)"`
	Rating            float64   `json:"rating"             gorm:"not null;default:5.0"`
	VerifiedResponses int64     `json:"verified_responses" gorm:"not null;default:0"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for ClinicianProfile.
func (ClinicianProfile) TableName() string { return "clinician_details" }

// Exchange is one prior (question, answer) pair used to give the
// generation service bounded conversation context. It is ephemeral:
// reconstructed on demand from the query history, never persisted on its
// own.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HistoryLimit caps how many prior exchanges accompany a new question.
const HistoryLimit = 5
