package enroll

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// Membership records that a user is enrolled in a course. It exists in
// 1:1 correspondence with exactly one Progress record for the same
// (course, user) pair; the pairing is the core invariant of the ledger.
type Membership struct {
	CourseID   string    `json:"course_id"`
	UserID     string    `json:"user_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// Progress is the per-user, per-course completion state.
// PercentComplete is derived from CompletedUnits and the course's total
// unit count; it is never an independently stored source of truth.
type Progress struct {
	CourseID        string    `json:"course_id"`
	UserID          string    `json:"user_id"`
	CompletedUnits  []int     `json:"completed_unit_indices"`
	LastViewedIndex int       `json:"last_viewed_index"`
	PercentComplete int       `json:"percent_complete"`
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// State machine over a Progress record, entered only via UpdateProgress.
const (
	StateEnrolled   = "enrolled"    // 0%
	StateInProgress = "in_progress" // 1..99%
	StateCompleted  = "completed"   // 100%
)

func (p *Progress) State() string {
	switch {
	case p.PercentComplete == 0:
		return StateEnrolled
	case p.PercentComplete == 100:
		return StateCompleted
	default:
		return StateInProgress
	}
}

// ProgressUpdate is the only way completion state moves. It deliberately
// carries no percent field: percent is output-only and recomputed, so a
// caller-submitted value has nowhere to land.
type ProgressUpdate struct {
	CompletedUnitIndices []int `json:"completed_unit_indices" validate:"required,dive,gte=0"`
	LastViewedIndex      int   `json:"last_viewed_index" validate:"gte=0"`
}

func (pu *ProgressUpdate) Validate(validate *validator.Validate) error {
	pu.CompletedUnitIndices = normalizeIndices(pu.CompletedUnitIndices)
	return validate.Struct(pu)
}

// normalizeIndices sorts and de-duplicates, treating the input as a set.
func normalizeIndices(indices []int) []int {
	if indices == nil {
		return []int{}
	}
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
