package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/StackForge/internal/domain/user"
)

const userColumns = `id, username, email, display_name, password_hash, remote_account_id, remote_username, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Username, u.Email, u.DisplayName, u.PasswordHash,
		nullIfZero(u.RemoteAccountID), nullIfEmpty(u.RemoteUsername), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return uniqueWrap(err, "create user %s", u.Username)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	return &u, nil
}

// GetUserByLogin matches the username exactly or the email case-insensitively.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (*user.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR lower(email) = lower($1) LIMIT 1`, login)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFoundWrap(err, "get user by login %s", login)
	}
	return &u, nil
}

func (s *Store) UserTaken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE username = $1),
			EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($2))`,
		username, email,
	).Scan(&usernameTaken, &emailTaken)
	if err != nil {
		return false, false, fmt.Errorf("user taken: %w", err)
	}
	return usernameTaken, emailTaken, nil
}

// UpdateUser persists profile, password and remote link changes.
func (s *Store) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, display_name = $3, password_hash = $4, remote_account_id = $5, remote_username = $6, updated_at = $7
		WHERE id = $1`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, nullIfZero(u.RemoteAccountID), nullIfEmpty(u.RemoteUsername), u.UpdatedAt,
	)
	if err != nil {
		return uniqueWrap(err, "update user %s", u.ID)
	}
	return execExpectOne(tag, nil, "update user %s", u.ID)
}

func scanUser(row scannable) (user.User, error) {
	var (
		u              user.User
		remoteID       *int64
		remoteUsername *string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash,
		&remoteID, &remoteUsername, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	u.RemoteAccountID = derefInt64(remoteID)
	u.RemoteUsername = derefString(remoteUsername)
	return u, nil
}
