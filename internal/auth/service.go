// Package auth implements sign-up, sign-in and sign-out over the users table,
// issuing HS256 session tokens that sign-out revokes.
package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"map-chat/internal/storage"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSignedOut          = errors.New("session was signed out")
)

// Preference keys written by the auth service
const (
	KeyEmail = "email"
	KeyEpoch = "sessionEpoch"
)

// Principal is an authenticated user identity
type Principal struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// UserStorage defines user persistence operations used by the Service
type UserStorage interface {
	CreateUser(ctx context.Context, displayName, email, passwordHash string) (storage.User, error)
	UserByEmail(ctx context.Context, email string) (storage.User, error)
}

// KeyValue is durable per-user storage
type KeyValue interface {
	Get(userID, key string) (string, bool, error)
	Set(userID, key, value string) error
	Remove(userID, key string) error
}

// Service is the auth provider
type Service struct {
	logger *zap.SugaredLogger
	users  UserStorage
	prefs  KeyValue
	tokens *TokenManager
}

func NewService(logger *zap.SugaredLogger, users UserStorage, prefs KeyValue, tokens *TokenManager) *Service {
	return &Service{
		logger: logger,
		users:  users,
		prefs:  prefs,
		tokens: tokens,
	}
}

// SignUp registers a new user and signs it in
func (s *Service) SignUp(ctx context.Context, name, email, password string) (Principal, string, error) {
	req := signUpRequest{Name: strings.TrimSpace(name), Email: normalizeEmail(email), Password: password}
	if err := validate.Struct(req); err != nil {
		return Principal{}, "", validationError(err)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return Principal{}, "", err
	}

	u, err := s.users.CreateUser(ctx, req.Name, req.Email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			return Principal{}, "", ErrEmailExists
		}
		return Principal{}, "", err
	}

	s.logger.Infof("User %s signed up", u.ID)

	return s.startSession(toPrincipal(u))
}

// SignIn verifies credentials and issues a token
func (s *Service) SignIn(ctx context.Context, email, password string) (Principal, string, error) {
	req := signInRequest{Email: normalizeEmail(email), Password: password}
	if err := validate.Struct(req); err != nil {
		return Principal{}, "", validationError(err)
	}

	u, err := s.users.UserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotExist) {
			return Principal{}, "", ErrInvalidCredentials
		}
		return Principal{}, "", err
	}

	if !checkPassword(u.PasswordHash, req.Password) {
		return Principal{}, "", ErrInvalidCredentials
	}

	s.logger.Infof("User %s signed in", u.ID)

	return s.startSession(toPrincipal(u))
}

// SignOut forgets the remembered email and revokes every token issued so far
func (s *Service) SignOut(_ context.Context, userID string) error {
	epoch, err := s.epoch(userID)
	if err != nil {
		return err
	}

	if err := s.prefs.Set(userID, KeyEpoch, strconv.FormatInt(epoch+1, 10)); err != nil {
		return err
	}

	if err := s.prefs.Remove(userID, KeyEmail); err != nil {
		s.logger.Warnf("Cannot forget email of user %s: %v", userID, err)
	}

	s.logger.Infof("User %s signed out", userID)

	return nil
}

// Verify resolves a token into the principal it was issued for
func (s *Service) Verify(_ context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return Principal{}, err
	}

	epoch, err := s.epoch(claims.UserID)
	if err != nil {
		return Principal{}, err
	}
	if claims.Epoch != epoch {
		return Principal{}, ErrSignedOut
	}

	return Principal{UID: claims.UserID, DisplayName: claims.DisplayName, Email: claims.Email}, nil
}

// RememberedEmail returns the email of the last sign-in, used to prefill the form
func (s *Service) RememberedEmail(userID string) (string, bool, error) {
	return s.prefs.Get(userID, KeyEmail)
}

func (s *Service) startSession(p Principal) (Principal, string, error) {
	epoch, err := s.epoch(p.UID)
	if err != nil {
		return Principal{}, "", err
	}

	token, err := s.tokens.Generate(p, epoch)
	if err != nil {
		return Principal{}, "", err
	}

	if err := s.prefs.Set(p.UID, KeyEmail, p.Email); err != nil {
		s.logger.Warnf("Cannot remember email of user %s: %v", p.UID, err)
	}

	return p, token, nil
}

func (s *Service) epoch(userID string) (int64, error) {
	v, ok, err := s.prefs.Get(userID, KeyEpoch)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func toPrincipal(u storage.User) Principal {
	return Principal{UID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
