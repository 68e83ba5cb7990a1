package pgxrepos

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core/course"
)

const courseColumns = `id, title, slug, description, units, created_by, created_at, updated_at`

type courseRepository struct {
	pool *pgxpool.Pool
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(pool *pgxpool.Pool) *courseRepository {
	return &courseRepository{pool: pool}
}

func (repo *courseRepository) CheckSlugUniqueness(ctx context.Context, slug string) error {
	var exists bool
	err := repo.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM courses WHERE slug = $1)`, slug,
	).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if exists {
		return course.ErrSlugExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	units, err := json.Marshal(crs.Units)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "marshalling units")
	}
	_, err = repo.pool.Exec(ctx,
		`INSERT INTO courses (`+courseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		crs.ID, crs.Title, crs.Slug, crs.Description, units, crs.CreatedBy, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	rows, err := repo.pool.Query(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	defer rows.Close()

	var courses []course.Course
	for rows.Next() {
		crs, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, errors.Wrap(rows.Err(), "querying courses")
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return repo.getCourse(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
}

func (repo *courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	return repo.getCourse(ctx, `SELECT `+courseColumns+` FROM courses WHERE slug = $1`, slug)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	units, err := json.Marshal(crs.Units)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "marshalling units")
	}
	tag, err := repo.pool.Exec(ctx,
		`UPDATE courses
		 SET title = $2, description = $3, units = $4, updated_at = $5
		 WHERE id = $1`,
		crs.ID, crs.Title, crs.Description, units, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if tag.RowsAffected() == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo *courseRepository) getCourse(ctx context.Context, query string, args ...interface{}) (course.Course, error) {
	crs, err := scanCourse(repo.pool.QueryRow(ctx, query, args...))
	if errors.Cause(err) == pgx.ErrNoRows {
		return course.Course{}, course.ErrNotFound
	}
	return crs, err
}

func scanCourse(row pgx.Row) (course.Course, error) {
	var crs course.Course
	var units []byte
	err := row.Scan(
		&crs.ID, &crs.Title, &crs.Slug, &crs.Description, &units,
		&crs.CreatedBy, &crs.CreatedAt, &crs.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return course.Course{}, errors.WithStack(pgx.ErrNoRows)
		}
		return course.Course{}, errors.Wrap(err, "scanning course")
	}
	if err := json.Unmarshal(units, &crs.Units); err != nil {
		return course.Course{}, errors.Wrap(err, "unmarshalling units")
	}
	return crs, nil
}
