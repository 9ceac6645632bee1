package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doce-emergencia/storefront/internal/domain/auth"
)

const (
	insertUserSQL = `INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`

	insertProfileSQL = `INSERT INTO profiles (user_id, display_name) VALUES ($1, $2)`

	insertRoleSQL = `INSERT INTO user_roles (user_id, role) VALUES ($1, $2::app_role)
		ON CONFLICT DO NOTHING`

	getUserByEmailSQL = `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`

	insertSessionSQL = `INSERT INTO auth_sessions (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`

	getSessionSQL = `SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = $1`

	deleteSessionSQL = `DELETE FROM auth_sessions WHERE id = $1`

	deleteExpiredSessionsSQL = `DELETE FROM auth_sessions WHERE expires_at <= now()`

	hasRoleSQL = `SELECT has_role($1, $2::app_role)`
)

var _ auth.Repository = (*AuthRepository)(nil)

// AuthRepository implements auth.Repository backed by PostgreSQL.
type AuthRepository struct {
	pool *pgxpool.Pool
}

// NewAuthRepository returns an AuthRepository that uses the given pool.
func NewAuthRepository(pool *pgxpool.Pool) *AuthRepository {
	return &AuthRepository{pool: pool}
}

// CreateUser inserts the user, its profile and the user role in one
// transaction.
func (r *AuthRepository) CreateUser(ctx context.Context, u *auth.User, displayName string) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertUserSQL, u.ID, u.Email, u.PasswordHash, u.CreatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertProfileSQL, u.ID, displayName); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insertRoleSQL, u.ID, string(auth.RoleUser))
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}

// GrantRole gives role to userID. Granting a held role is a no-op.
func (r *AuthRepository) GrantRole(ctx context.Context, userID uuid.UUID, role auth.Role) error {
	if _, err := r.pool.Exec(ctx, insertRoleSQL, userID, string(role)); err != nil {
		if isForeignKeyViolation(err) {
			return auth.ErrUserNotFound
		}
		return fmt.Errorf("granting %s to %s: %w", role, userID, err)
	}
	return nil
}

// GetUserByEmail looks a user up by normalized email.
func (r *AuthRepository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	rows, err := r.pool.Query(ctx, getUserByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", email, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.User, error) {
		var u auth.User
		err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", email, err)
	}
	return &u, nil
}

// CreateSession stores a session row.
func (r *AuthRepository) CreateSession(ctx context.Context, s *auth.SessionRecord) error {
	if _, err := r.pool.Exec(ctx, insertSessionSQL, s.ID, s.UserID, s.CreatedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// GetSession returns the session row with id.
func (r *AuthRepository) GetSession(ctx context.Context, id uuid.UUID) (*auth.SessionRecord, error) {
	rows, err := r.pool.Query(ctx, getSessionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.SessionRecord, error) {
		var s auth.SessionRecord
		err := row.Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
		return s, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &s, nil
}

// DeleteSession removes the session row with id.
func (r *AuthRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return execOne(ctx, r.pool, auth.ErrSessionNotFound, deleteSessionSQL, id)
}

// DeleteExpiredSessions purges sessions past their expiry and returns how
// many were removed.
func (r *AuthRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, deleteExpiredSessionsSQL)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// HasRole calls the has_role database function.
func (r *AuthRepository) HasRole(ctx context.Context, userID uuid.UUID, role auth.Role) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, hasRoleSQL, userID, string(role)).Scan(&ok); err != nil {
		return false, fmt.Errorf("calling has_role: %w", err)
	}
	return ok, nil
}
