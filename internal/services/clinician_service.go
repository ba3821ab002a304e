// Package services – ClinicianService
//
// This file implements clinician onboarding and profile reads. Onboarding
// happens once per clinician; the profile starts at the default reputation
// and is afterwards only touched by the rating recomputation.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/medqa/go-medqa-backend/internal/domain"
	"github.com/medqa/go-medqa-backend/internal/repo"
)

// ClinicianService manages clinician profiles.
type ClinicianService struct {
	DB *gorm.DB
}

// Onboard creates the profile for a newly registered clinician. The id is
// the clinician's user id (one profile per clinician). Specialization is
// normalized to title case for display. New profiles start with the
// default reputation and zero verified responses.
func (s *ClinicianService) Onboard(ctx context.Context, id, fullName, specialization, licenseNumber string) (*domain.ClinicianProfile, error) {
	id = strings.TrimSpace(id)
	fullName = strings.TrimSpace(fullName)
	specialization = strings.TrimSpace(specialization)
	if id == "" || fullName == "" || specialization == "" {
		return nil, ErrMissingProfileFields
	}

	p := &domain.ClinicianProfile{
		ID:                id,
		FullName:          fullName,
		Specialization:    cases.Title(language.English).String(specialization),
		LicenseNumber:     strings.TrimSpace(licenseNumber),
		Rating:            DefaultReputation,
		VerifiedResponses: 0,
	}
	if err := repo.CreateProfile(ctx, s.DB, p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrProfileExists
		}
		return nil, err
	}
	return p, nil
}

// Profile returns the clinician's profile, or ErrClinicianNotFound.
func (s *ClinicianService) Profile(ctx context.Context, id string) (*domain.ClinicianProfile, error) {
	p, err := repo.GetProfile(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrClinicianNotFound
		}
		return nil, err
	}
	return p, nil
}
