package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"notify-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("token missing")
	ErrInvalidToken = errors.New("invalid token")
	ErrUserNotFound = errors.New("user not found")
	ErrUserInactive = errors.New("user inactive")
)

// Identity is the verified owner of a credential.
type Identity struct {
	UserID      uint
	Username    string
	DisplayName string
}

// Authenticator resolves a bearer credential to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// UserLookup reads users by key. A nil user with a nil error means no such user.
type UserLookup interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Claims accepts both token shapes in circulation: "user_id" as a number, or the
// username in "sub".
type Claims struct {
	UserID   uint   `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users     UserLookup
	jwtSecret []byte
}

func NewAuthService(users UserLookup, secret string) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(secret),
	}
}

// Authenticate verifies an HS256 token and checks that its user exists and is active.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	user, err := s.lookup(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return &Identity{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName(),
	}, nil
}

func (s *AuthService) lookup(ctx context.Context, claims *Claims) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case claims.UserID != 0:
		user, err = s.users.FindByID(ctx, claims.UserID)
	case claims.Subject != "":
		user, err = s.users.FindByUsername(ctx, claims.Subject)
	default:
		return nil, fmt.Errorf("%w: no user_id or sub claim", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
