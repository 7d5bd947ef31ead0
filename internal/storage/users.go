package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

// CreateUser stores a new user and returns it with id and creation time filled in
func (s *Store) CreateUser(ctx context.Context, displayName, email, passwordHash string) (User, error) {
	s.logger.Debugf("Creating user (%s)", email)

	u := User{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	sql := "insert into users (id, display_name, email, password_hash, created_at) values ($1, $2, $3, $4, $5)"
	_, err := s.db.Exec(ctx, sql, u.ID, u.DisplayName, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserExists
		}
		return User{}, err
	}

	s.logger.Debugf("Created user (%s) with id %s", email, u.ID)

	return u, nil
}

// UserByEmail looks a user up by login email
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.user(ctx, "select id, display_name, email, password_hash, created_at from users where email = $1", email)
}

// UserByID looks a user up by id
func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return s.user(ctx, "select id, display_name, email, password_hash, created_at from users where id = $1", id)
}

func (s *Store) user(ctx context.Context, sql string, arg string) (User, error) {
	var u User
	err := s.db.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.DisplayName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}
	return u, nil
}
