// Package services defines the business logic for query submission,
// clinician verification, patient ratings, and clinician profiles. This
// file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Query lifecycle errors.
var (
	// ErrEmptyQuestion is returned when a submission contains no question
	// text after trimming.
	ErrEmptyQuestion = errors.New("question is required")

	// ErrQueryNotFound indicates that the targeted query does not exist.
	ErrQueryNotFound = errors.New("query not found")

	// ErrMissingClinician is returned when a verification request lacks the
	// clinician identifier or display name. Nothing is updated in that case.
	ErrMissingClinician = errors.New("clinician information is missing")

	// ErrEmptyAnswer is returned when a verification request carries an
	// empty final answer.
	ErrEmptyAnswer = errors.New("answer is required")

	// ErrAlreadyVerified is returned when the targeted query was verified
	// by another clinician between read and write. The earlier verification
	// stands; the later one is rejected.
	ErrAlreadyVerified = errors.New("query already verified")
)

// Rating errors.
var (
	// ErrInvalidRating is returned when a rating value is outside the
	// allowed set (1 = helpful, 0 = not helpful).
	ErrInvalidRating = errors.New("rating must be 0 or 1")

	// ErrNotVerified is returned when a patient tries to rate a query that
	// has not been verified yet.
	ErrNotVerified = errors.New("query is not verified yet")

	// ErrAlreadyRated is returned on a second rating attempt; rating is a
	// one-time transition.
	ErrAlreadyRated = errors.New("query already rated")
)

// Clinician profile errors.
var (
	// ErrClinicianNotFound indicates that no profile exists for the given
	// clinician id.
	ErrClinicianNotFound = errors.New("clinician not found")

	// ErrProfileExists is returned when onboarding is attempted twice for
	// the same clinician id.
	ErrProfileExists = errors.New("clinician profile already exists")

	// ErrMissingProfileFields is returned when onboarding lacks a required
	// field.
	ErrMissingProfileFields = errors.New("full name and specialization are required")
)
