package pgxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dkamau/elimu/core/user"
)

const userColumns = `id, name, email, role, email_verified, is_active, password_hash, created_at, updated_at, last_login`

type userRepository struct {
	pool *pgxpool.Pool
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(pool *pgxpool.Pool) *userRepository {
	return &userRepository{pool: pool}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	excludedIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excludedIDs = append(excludedIDs, usr.ID)
	}

	var exists bool
	err := repo.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND NOT (id = ANY($2)))`,
		email, excludedIDs,
	).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	_, err := repo.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		usr.ID, usr.Name, usr.Email, usr.Role, usr.EmailVerified, usr.IsActive,
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, nullTime(usr.LastLogin),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	rows, err := repo.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		usr, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, errors.Wrap(rows.Err(), "querying users")
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	tag, err := repo.pool.Exec(ctx,
		`UPDATE users
		 SET name = $2, email = $3, role = $4, email_verified = $5, is_active = $6,
		     password_hash = $7, updated_at = $8, last_login = $9
		 WHERE id = $1`,
		usr.ID, usr.Name, usr.Email, usr.Role, usr.EmailVerified, usr.IsActive,
		usr.PasswordHash, usr.UpdatedAt, nullTime(usr.LastLogin),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if tag.RowsAffected() == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	usr, err := scanUser(repo.pool.QueryRow(ctx, query, args...))
	if errors.Cause(err) == pgx.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	return usr, err
}

func scanUser(row pgx.Row) (user.User, error) {
	var usr user.User
	var lastLogin sql.NullTime
	err := row.Scan(
		&usr.ID, &usr.Name, &usr.Email, &usr.Role, &usr.EmailVerified, &usr.IsActive,
		&usr.PasswordHash, &usr.CreatedAt, &usr.UpdatedAt, &lastLogin,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return user.User{}, errors.WithStack(pgx.ErrNoRows)
		}
		return user.User{}, errors.Wrap(err, "scanning user")
	}
	if lastLogin.Valid {
		usr.LastLogin = lastLogin.Time
	}
	return usr, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
