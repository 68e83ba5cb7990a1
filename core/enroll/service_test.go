package enroll

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core"
)

type fakeKey struct{ courseID, userID string }

// fakeRepo pairs memberships and progress under one map guard, like the
// real repositories do.
type fakeRepo struct {
	memberships map[fakeKey]Membership
	progress    map[fakeKey]Progress
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		memberships: make(map[fakeKey]Membership),
		progress:    make(map[fakeKey]Progress),
	}
}

func (r *fakeRepo) CreateEnrollment(ctx context.Context, mb Membership, pg Progress) error {
	key := fakeKey{mb.CourseID, mb.UserID}
	if _, ok := r.memberships[key]; ok {
		return ErrAlreadyEnrolled
	}
	r.memberships[key] = mb
	r.progress[key] = pg
	return nil
}

func (r *fakeRepo) DeleteEnrollment(ctx context.Context, courseID, userID string) error {
	key := fakeKey{courseID, userID}
	if _, ok := r.memberships[key]; !ok {
		return ErrNotEnrolled
	}
	delete(r.memberships, key)
	delete(r.progress, key)
	return nil
}

func (r *fakeRepo) GetProgress(ctx context.Context, courseID, userID string) (Progress, error) {
	pg, ok := r.progress[fakeKey{courseID, userID}]
	if !ok {
		return Progress{}, ErrNotEnrolled
	}
	return pg, nil
}

func (r *fakeRepo) ReplaceProgress(ctx context.Context, pg Progress) (Progress, error) {
	key := fakeKey{pg.CourseID, pg.UserID}
	if _, ok := r.progress[key]; !ok {
		return Progress{}, ErrNotEnrolled
	}
	r.progress[key] = pg
	return pg, nil
}

// paired reports whether membership and progress agree for the key.
func (r *fakeRepo) paired(courseID, userID string) bool {
	key := fakeKey{courseID, userID}
	_, hasMb := r.memberships[key]
	_, hasPg := r.progress[key]
	return hasMb == hasPg
}

var errUnknownCourse = errors.New("course not found")

type fakeContent struct {
	units map[string]int
}

func (c *fakeContent) TotalUnits(ctx context.Context, courseID string) (int, error) {
	n, ok := c.units[courseID]
	if !ok {
		return 0, errUnknownCourse
	}
	return n, nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	content := &fakeContent{units: map[string]int{"c-10": 10, "c-3": 3, "c-0": 0}}
	return NewService(repo, content, time.Second), repo
}

func TestComputePercent(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{completed: 0, total: 10, want: 0},
		{completed: 3, total: 10, want: 30},
		{completed: 10, total: 10, want: 100},
		{completed: 1, total: 3, want: 33},
		{completed: 2, total: 3, want: 67}, // rounds, never truncates
		{completed: 0, total: 0, want: 0},
		{completed: 5, total: 0, want: 0},
	}
	for _, tt := range tests {
		if got := ComputePercent(tt.completed, tt.total); got != tt.want {
			t.Errorf("ComputePercent(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestService_Enroll(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	mb, pg, err := svc.Enroll(ctx, "c-10", "u-1")
	if err != nil {
		t.Fatalf("Enroll() unexpected error = %v", err)
	}
	if mb.CourseID != "c-10" || mb.UserID != "u-1" {
		t.Errorf("membership = %+v", mb)
	}
	if pg.PercentComplete != 0 || len(pg.CompletedUnits) != 0 || pg.LastViewedIndex != 0 {
		t.Errorf("progress must start zeroed, got %+v", pg)
	}
	if !repo.paired("c-10", "u-1") {
		t.Error("membership and progress must exist together")
	}

	// double enrollment
	if _, _, err := svc.Enroll(ctx, "c-10", "u-1"); errors.Cause(err) != ErrAlreadyEnrolled {
		t.Errorf("Enroll() twice error = %v, want ErrAlreadyEnrolled", err)
	}

	// unknown course, nothing written
	if _, _, err := svc.Enroll(ctx, "c-404", "u-2"); errors.Cause(err) != errUnknownCourse {
		t.Errorf("Enroll() unknown course error = %v, want errUnknownCourse", err)
	}
	if len(repo.memberships) != 1 {
		t.Errorf("memberships = %d, want 1", len(repo.memberships))
	}
}

func TestService_Unenroll(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Enroll(ctx, "c-10", "u-1"); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}

	if err := svc.Unenroll(ctx, "c-10", "u-1"); err != nil {
		t.Fatalf("Unenroll() unexpected error = %v", err)
	}
	if len(repo.memberships) != 0 || len(repo.progress) != 0 {
		t.Error("unenroll must remove membership and progress together")
	}

	if err := svc.Unenroll(ctx, "c-10", "u-1"); errors.Cause(err) != ErrNotEnrolled {
		t.Errorf("Unenroll() twice error = %v, want ErrNotEnrolled", err)
	}
}

func TestService_UpdateProgress(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Enroll(ctx, "c-10", "u-1"); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}

	tests := []struct {
		name        string
		update      ProgressUpdate
		wantPercent int
		wantState   string
		wantUnits   []int
		wantErr     bool
	}{
		{name: "three of ten", update: ProgressUpdate{CompletedUnitIndices: []int{0, 1, 2}, LastViewedIndex: 3}, wantPercent: 30, wantState: StateInProgress},
		{name: "duplicates collapse to the set", update: ProgressUpdate{CompletedUnitIndices: []int{3, 3, 3, 3, 3, 3}}, wantPercent: 10, wantState: StateInProgress, wantUnits: []int{3}},
		{name: "unsorted with repeats", update: ProgressUpdate{CompletedUnitIndices: []int{9, 0, 9, 4, 0}}, wantPercent: 30, wantState: StateInProgress, wantUnits: []int{0, 4, 9}},
		{name: "all ten", update: ProgressUpdate{CompletedUnitIndices: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}}, wantPercent: 100, wantState: StateCompleted},
		{name: "shrink back", update: ProgressUpdate{CompletedUnitIndices: []int{}}, wantPercent: 0, wantState: StateEnrolled},
		{name: "out of range", update: ProgressUpdate{CompletedUnitIndices: []int{0, 10}}, wantErr: true},
		{name: "negative index", update: ProgressUpdate{CompletedUnitIndices: []int{-1, 0}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg, err := svc.UpdateProgress(ctx, "c-10", "u-1", tt.update)
			if tt.wantErr {
				var vErr *core.ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("UpdateProgress() error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateProgress() unexpected error = %v", err)
			}
			if pg.PercentComplete != tt.wantPercent {
				t.Errorf("percent = %d, want %d", pg.PercentComplete, tt.wantPercent)
			}
			if pg.State() != tt.wantState {
				t.Errorf("state = %s, want %s", pg.State(), tt.wantState)
			}
			if tt.wantUnits != nil {
				stored := repo.progress[fakeKey{"c-10", "u-1"}]
				if !reflect.DeepEqual(stored.CompletedUnits, tt.wantUnits) {
					t.Errorf("stored units = %v, want %v", stored.CompletedUnits, tt.wantUnits)
				}
			}
		})
	}

	t.Run("not enrolled leaves no trace", func(t *testing.T) {
		_, err := svc.UpdateProgress(ctx, "c-3", "u-1", ProgressUpdate{CompletedUnitIndices: []int{0}})
		if errors.Cause(err) != ErrNotEnrolled {
			t.Fatalf("UpdateProgress() error = %v, want ErrNotEnrolled", err)
		}
		if !repo.paired("c-3", "u-1") {
			t.Error("failed update must not create a record")
		}
		if _, ok := repo.progress[fakeKey{"c-3", "u-1"}]; ok {
			t.Error("failed update must not create a progress record")
		}
	})
}

func TestService_GetProgress(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// zero state for a non-enrolled pair
	pg, err := svc.GetProgress(ctx, "c-10", "u-1")
	if err != nil {
		t.Fatalf("GetProgress() unexpected error = %v", err)
	}
	if pg.PercentComplete != 0 || len(pg.CompletedUnits) != 0 {
		t.Errorf("want zero state, got %+v", pg)
	}

	if _, _, err := svc.Enroll(ctx, "c-10", "u-1"); err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	if _, err := svc.UpdateProgress(ctx, "c-10", "u-1", ProgressUpdate{CompletedUnitIndices: []int{0, 1}}); err != nil {
		t.Fatalf("UpdateProgress() failed: %v", err)
	}

	pg, err = svc.GetProgress(ctx, "c-10", "u-1")
	if err != nil {
		t.Fatalf("GetProgress() unexpected error = %v", err)
	}
	if pg.PercentComplete != 20 {
		t.Errorf("percent = %d, want 20", pg.PercentComplete)
	}
}
