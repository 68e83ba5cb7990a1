package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/dkamau/elimu/core/course"
)

type courseRepository struct {
	mu      sync.RWMutex
	courses map[string]course.Course // by ID
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository() *courseRepository {
	return &courseRepository{courses: make(map[string]course.Course)}
}

func (repo *courseRepository) CheckSlugUniqueness(ctx context.Context, slug string) error {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, crs := range repo.courses {
		if crs.Slug == slug {
			return course.ErrSlugExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.courses[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.courses))
	for _, crs := range repo.courses {
		courses = append(courses, crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	crs, ok := repo.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, crs := range repo.courses {
		if crs.Slug == slug {
			return crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.courses[crs.ID] = crs
	return crs, nil
}
