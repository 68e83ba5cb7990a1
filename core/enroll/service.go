// Package enroll owns the course enrollment ledger and the progress
// mutator. A membership and its progress record are one atomic fact:
// they are created together, removed together, and never observable
// independently.
package enroll

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
)

var (
	// errors
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrNotEnrolled     = errors.New("not enrolled in this course")
)

type (
	// Repository persists membership/progress pairs. Implementations
	// must guarantee that for a single (courseID, userID) key the
	// read-modify-write of each method is atomic: concurrent calls do
	// not interleave partially.
	Repository interface {
		// CreateEnrollment writes the membership and its zeroed
		// progress record as one unit; ErrAlreadyEnrolled if the pair
		// already exists.
		CreateEnrollment(ctx context.Context, mb Membership, pg Progress) error
		// DeleteEnrollment removes membership and progress together;
		// ErrNotEnrolled if absent.
		DeleteEnrollment(ctx context.Context, courseID, userID string) error
		GetProgress(ctx context.Context, courseID, userID string) (Progress, error)
		// ReplaceProgress overwrites the stored record in full (last
		// write wins); ErrNotEnrolled if the pair does not exist.
		ReplaceProgress(ctx context.Context, pg Progress) (Progress, error)
	}

	// ContentService supplies the canonical unit count per course; it is
	// the external course-content collaborator.
	ContentService interface {
		TotalUnits(ctx context.Context, courseID string) (int, error)
	}

	Service struct {
		repo    Repository
		content ContentService
		timeout time.Duration
	}
)

func NewService(repo Repository, content ContentService, timeout time.Duration) *Service {
	return &Service{
		repo:    repo,
		content: content,
		timeout: timeout,
	}
}

// ComputePercent derives the completion percentage from the completed
// set and the course's total unit count.
func ComputePercent(completedUnits, totalUnits int) int {
	if totalUnits <= 0 {
		return 0
	}
	return int(math.Round(float64(completedUnits) / float64(totalUnits) * 100))
}

// Enroll adds the user to the course and creates the zeroed progress
// record atomically. A second call for the same pair observes
// ErrAlreadyEnrolled; the course collaborator's not-found error passes
// through when the course does not exist.
func (svc *Service) Enroll(ctx context.Context, courseID, userID string) (Membership, Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	if _, err := svc.content.TotalUnits(ctx, courseID); err != nil {
		return Membership{}, Progress{}, err
	}

	now := time.Now().UTC()
	mb := Membership{CourseID: courseID, UserID: userID, EnrolledAt: now}
	pg := Progress{
		CourseID:        courseID,
		UserID:          userID,
		CompletedUnits:  []int{},
		LastViewedIndex: 0,
		PercentComplete: 0,
		UpdatedAt:       now,
	}
	if err := svc.repo.CreateEnrollment(ctx, mb, pg); err != nil {
		return Membership{}, Progress{}, err
	}
	return mb, pg, nil
}

// Unenroll removes the membership and its progress record together.
func (svc *Service) Unenroll(ctx context.Context, courseID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()
	return svc.repo.DeleteEnrollment(ctx, courseID, userID)
}

// UpdateProgress replaces the completed set and last-viewed index with
// the supplied values, then recomputes the percentage from canonical
// data. ErrNotEnrolled if the pair does not exist; no record is ever
// created here as a side effect.
func (svc *Service) UpdateProgress(ctx context.Context, courseID, userID string, pu ProgressUpdate) (Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	total, err := svc.content.TotalUnits(ctx, courseID)
	if err != nil {
		return Progress{}, err
	}
	// the completed units are a set; normalize here so every caller,
	// not just the HTTP layer, gets set semantics and a sound percent
	completed := normalizeIndices(pu.CompletedUnitIndices)
	for _, idx := range completed {
		if idx < 0 || idx >= total {
			return Progress{}, core.NewValidationError(nil, core.FieldError{
				Field: "completed_unit_indices",
				Error: "unit index out of range",
			})
		}
	}

	pg := Progress{
		CourseID:        courseID,
		UserID:          userID,
		CompletedUnits:  completed,
		LastViewedIndex: pu.LastViewedIndex,
		PercentComplete: ComputePercent(len(completed), total),
		UpdatedAt:       time.Now().UTC(),
	}
	return svc.repo.ReplaceProgress(ctx, pg)
}

// GetProgress returns the stored record, or the zero state when the
// user has none for this course.
func (svc *Service) GetProgress(ctx context.Context, courseID, userID string) (Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	pg, err := svc.repo.GetProgress(ctx, courseID, userID)
	if err != nil {
		if errors.Cause(err) == ErrNotEnrolled {
			return Progress{
				CourseID:       courseID,
				UserID:         userID,
				CompletedUnits: []int{},
			}, nil
		}
		return Progress{}, err
	}
	return pg, nil
}
