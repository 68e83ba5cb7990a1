package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dkamau/elimu/core"
)

// Unit is one teachable unit of a course, addressed by its zero-based index.
type Unit struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Units       []Unit    `json:"units"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// TotalUnits is the denominator of every progress computation.
func (c *Course) TotalUnits() int { return len(c.Units) }

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string   `json:"title" validate:"required"`
	Slug        string   `json:"slug" validate:"required,slug"`
	Description string   `json:"description"`
	UnitTitles  []string `json:"unit_titles" validate:"required,min=1,dive,required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate, svc *Service) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.checkSlugUniqueness(nc.Slug)
}

// UpdateCourse defines what information may be provided to modify an
// existing Course.
type UpdateCourse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	UnitTitles  []string `json:"unit_titles" validate:"omitempty,min=1,dive,required"`
}

// Validate falls back to the stored value for any omitted field, so a
// partial update never clears what it does not mention.
func (uc *UpdateCourse) Validate(origCrs Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = origCrs.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = origCrs.Description
	}
	return validate.Struct(uc)
}
