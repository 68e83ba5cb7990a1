package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
)

var (
	// errors
	ErrNotFound   = errors.New("course not found")
	ErrSlugExists = errors.New("a course with this slug already exists")
)

type (
	Repository interface {
		CheckSlugUniqueness(ctx context.Context, slug string) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseBySlug(ctx context.Context, slug string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkSlugUniqueness(slug string) error {
	if err := svc.repo.CheckSlugUniqueness(context.Background(), slug); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCourse, createdBy string) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		ID:          uuid.NewString(),
		Title:       nc.Title,
		Slug:        nc.Slug,
		Description: nc.Description,
		Units:       unitsFromTitles(nc.UnitTitles),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourseBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	crs.Title = uc.Title
	crs.Description = uc.Description
	if uc.UnitTitles != nil {
		crs.Units = unitsFromTitles(uc.UnitTitles)
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

// TotalUnits supplies the unit count for a course, as consumed by the
// progress computation.
func (svc *Service) TotalUnits(ctx context.Context, courseID string) (int, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return crs.TotalUnits(), nil
}

func unitsFromTitles(titles []string) []Unit {
	units := make([]Unit, 0, len(titles))
	for i, title := range titles {
		units = append(units, Unit{Index: i, Title: core.CleanString(title)})
	}
	return units
}
