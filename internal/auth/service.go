package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
)

// ErrUnknownRole is returned for a role other than Admin or Manager.
var ErrUnknownRole = errors.New("auth: unknown role")

// Upstream is the part of the backend client used for sign-in.
type Upstream interface {
	Login(ctx context.Context, path string, creds greenlife.Credentials) (greenlife.LoginResult, error)
}

// Service wraps the sign-in rules.
type Service struct {
	upstream Upstream
	repo     Repository
}

// NewService constructs a new Service. repo may be nil when no database is
// configured; session auditing is then skipped.
func NewService(upstream Upstream, repo Repository) *Service {
	return &Service{upstream: upstream, repo: repo}
}

// LoginPath returns the backend login endpoint for role.
func LoginPath(role string) (string, error) {
	switch role {
	case shared.RoleAdmin:
		return greenlife.AdminLoginPath, nil
	case shared.RoleManager:
		return greenlife.ManagerLoginPath, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

// Authenticate signs in against the backend and returns the principal to
// store in the session.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (shared.Principal, error) {
	path, err := LoginPath(in.Role)
	if err != nil {
		return shared.Principal{}, err
	}
	result, err := s.upstream.Login(ctx, path, greenlife.Credentials{
		Username: strings.TrimSpace(in.Username),
		Password: in.Password,
	})
	if err != nil {
		if greenlife.IsUnauthorized(err) {
			return shared.Principal{}, shared.ErrInvalidCredentials
		}
		return shared.Principal{}, err
	}
	user := result.Name
	if user == "" {
		user = strings.TrimSpace(in.Username)
	}
	return shared.Principal{
		User:        user,
		Role:        in.Role,
		Group:       result.GroupName,
		Token:       result.Token,
		Permissions: result.Permissions,
		ExpiresAt:   TokenExpiry(result.Token),
	}, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying it. The backend
// verifies tokens; the dashboard only uses exp to avoid a doomed round trip.
// A token that is not a JWT, or has no exp, yields the zero time.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// RegisterSession records the sign-in.
func (s *Service) RegisterSession(ctx context.Context, rec LoginSession) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.CreateSession(ctx, rec)
}

// RemoveSession deletes the sign-in record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.DeleteSession(ctx, id)
}
