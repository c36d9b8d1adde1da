package authinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/iam/auth"
	"github.com/Abraxas-365/escolar/pkg/kernel"
)

// PostgresUserRepository es la implementación en PostgreSQL de auth.UserRepository.
type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, email, username, password_hash, role, is_active, created_at, last_login_at`

// FindByEmail busca un usuario por email normalizado.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	var user auth.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &user, query, auth.NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound().WithDetail("email", email)
		}
		return nil, errx.Wrap(err, "failed to find user by email", errx.TypeInternal)
	}
	return &user, nil
}

// FindByID busca un usuario por su ID.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id kernel.UserID) (*auth.User, error) {
	var user auth.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &user, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound().WithDetail("user_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find user by ID", errx.TypeInternal)
	}
	return &user, nil
}

// Save inserta un usuario nuevo.
func (r *PostgresUserRepository) Save(ctx context.Context, user auth.User) error {
	query := `
		INSERT INTO users (
			id, email, username, password_hash, role, is_active, created_at, last_login_at
		) VALUES (
			:id, :email, :username, :password_hash, :role, :is_active, :created_at, :last_login_at
		)`

	user.Email = auth.NormalizeEmail(user.Email)
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return errx.New("user already exists", errx.TypeConflict).WithDetail("email", user.Email)
		}
		return errx.Wrap(err, "failed to create user", errx.TypeInternal).
			WithDetail("user_id", user.ID.String())
	}
	return nil
}

// UpdateLastLogin registra el último inicio de sesión.
func (r *PostgresUserRepository) UpdateLastLogin(ctx context.Context, id kernel.UserID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to update last login", errx.TypeInternal)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected on update", errx.TypeInternal)
	}
	if rows == 0 {
		return auth.ErrUserNotFound().WithDetail("user_id", id.String())
	}
	return nil
}
