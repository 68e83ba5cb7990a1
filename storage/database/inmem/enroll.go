package inmem

import (
	"context"
	"sync"

	"github.com/dkamau/elimu/core/enroll"
)

type enrollKey struct {
	courseID string
	userID   string
}

type enrollRepository struct {
	mu          sync.Mutex
	memberships map[enrollKey]enroll.Membership
	progress    map[enrollKey]enroll.Progress
}

var _ enroll.Repository = (*enrollRepository)(nil)

func NewEnrollRepository() *enrollRepository {
	return &enrollRepository{
		memberships: make(map[enrollKey]enroll.Membership),
		progress:    make(map[enrollKey]enroll.Progress),
	}
}

// The single mutex makes each method a critical section: a membership
// and its progress record are only ever observed together, and
// writes for one (course, user) key never interleave partially.

func (repo *enrollRepository) CreateEnrollment(ctx context.Context, mb enroll.Membership, pg enroll.Progress) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := enrollKey{mb.CourseID, mb.UserID}
	if _, ok := repo.memberships[key]; ok {
		return enroll.ErrAlreadyEnrolled
	}
	repo.memberships[key] = mb
	repo.progress[key] = pg
	return nil
}

func (repo *enrollRepository) DeleteEnrollment(ctx context.Context, courseID, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := enrollKey{courseID, userID}
	if _, ok := repo.memberships[key]; !ok {
		return enroll.ErrNotEnrolled
	}
	delete(repo.memberships, key)
	delete(repo.progress, key)
	return nil
}

func (repo *enrollRepository) GetProgress(ctx context.Context, courseID, userID string) (enroll.Progress, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	pg, ok := repo.progress[enrollKey{courseID, userID}]
	if !ok {
		return enroll.Progress{}, enroll.ErrNotEnrolled
	}
	return pg, nil
}

func (repo *enrollRepository) ReplaceProgress(ctx context.Context, pg enroll.Progress) (enroll.Progress, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := enrollKey{pg.CourseID, pg.UserID}
	if _, ok := repo.progress[key]; !ok {
		return enroll.Progress{}, enroll.ErrNotEnrolled
	}
	repo.progress[key] = pg
	return pg, nil
}
