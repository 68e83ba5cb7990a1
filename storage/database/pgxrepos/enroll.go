package pgxrepos

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core/enroll"
)

type enrollRepository struct {
	pool *pgxpool.Pool
}

var _ enroll.Repository = (*enrollRepository)(nil)

func NewEnrollRepository(pool *pgxpool.Pool) *enrollRepository {
	return &enrollRepository{pool: pool}
}

// CreateEnrollment inserts the membership and its progress row in one
// transaction. ON CONFLICT DO NOTHING makes the membership insert the
// linearization point: of two concurrent calls for the same pair exactly
// one inserts a row, the other observes ErrAlreadyEnrolled.
func (repo *enrollRepository) CreateEnrollment(ctx context.Context, mb enroll.Membership, pg enroll.Progress) error {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO enrollments (course_id, user_id, enrolled_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (course_id, user_id) DO NOTHING`,
		mb.CourseID, mb.UserID, mb.EnrolledAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting enrollment")
	}
	if tag.RowsAffected() == 0 {
		return enroll.ErrAlreadyEnrolled
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO progress (course_id, user_id, completed_units, last_viewed_index, percent_complete, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		pg.CourseID, pg.UserID, intsToInt32s(pg.CompletedUnits), pg.LastViewedIndex, pg.PercentComplete, pg.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "inserting progress")
	}
	return errors.Wrap(tx.Commit(ctx), "committing enrollment")
}

// DeleteEnrollment removes the pair in one transaction; the progress row
// goes first, the membership delete decides ErrNotEnrolled.
func (repo *enrollRepository) DeleteEnrollment(ctx context.Context, courseID, userID string) error {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM progress WHERE course_id = $1 AND user_id = $2`, courseID, userID,
	); err != nil {
		return errors.Wrap(err, "deleting progress")
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM enrollments WHERE course_id = $1 AND user_id = $2`, courseID, userID,
	)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if tag.RowsAffected() == 0 {
		return enroll.ErrNotEnrolled
	}
	return errors.Wrap(tx.Commit(ctx), "committing unenrollment")
}

func (repo *enrollRepository) GetProgress(ctx context.Context, courseID, userID string) (enroll.Progress, error) {
	var pg enroll.Progress
	var completed []int32
	err := repo.pool.QueryRow(ctx,
		`SELECT course_id, user_id, completed_units, last_viewed_index, percent_complete, updated_at
		 FROM progress WHERE course_id = $1 AND user_id = $2`,
		courseID, userID,
	).Scan(&pg.CourseID, &pg.UserID, &completed, &pg.LastViewedIndex, &pg.PercentComplete, &pg.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return enroll.Progress{}, enroll.ErrNotEnrolled
		}
		return enroll.Progress{}, errors.Wrap(err, "getting progress")
	}
	pg.CompletedUnits = int32sToInts(completed)
	return pg, nil
}

// ReplaceProgress overwrites the row with a single UPDATE; the statement
// is the atomic read-modify-write for the (course, user) key, so two
// concurrent writers never interleave partially.
func (repo *enrollRepository) ReplaceProgress(ctx context.Context, pg enroll.Progress) (enroll.Progress, error) {
	tag, err := repo.pool.Exec(ctx,
		`UPDATE progress
		 SET completed_units = $3, last_viewed_index = $4, percent_complete = $5, updated_at = $6
		 WHERE course_id = $1 AND user_id = $2`,
		pg.CourseID, pg.UserID, intsToInt32s(pg.CompletedUnits), pg.LastViewedIndex, pg.PercentComplete, pg.UpdatedAt,
	)
	if err != nil {
		return enroll.Progress{}, errors.Wrap(err, "replacing progress")
	}
	if tag.RowsAffected() == 0 {
		return enroll.Progress{}, enroll.ErrNotEnrolled
	}
	return pg, nil
}

func intsToInt32s(in []int) []int32 {
	out := make([]int32, 0, len(in))
	for _, v := range in {
		out = append(out, int32(v))
	}
	return out
}

func int32sToInts(in []int32) []int {
	out := make([]int, 0, len(in))
	for _, v := range in {
		out = append(out, int(v))
	}
	return out
}
