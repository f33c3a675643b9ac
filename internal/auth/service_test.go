package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlife/greenlife-admin/internal/auth"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
)

func TestLoginPath(t *testing.T) {
	path, err := auth.LoginPath(shared.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, greenlife.AdminLoginPath, path)

	path, err = auth.LoginPath(shared.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, greenlife.ManagerLoginPath, path)

	_, err = auth.LoginPath("Guest")
	assert.ErrorIs(t, err, auth.ErrUnknownRole)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "amina",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)

	assert.True(t, exp.Equal(auth.TokenExpiry(signed)))
	assert.True(t, auth.TokenExpiry("opaque-token").IsZero())

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "amina"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.True(t, auth.TokenExpiry(noExp).IsZero())
}

func TestAuthenticatePassesThroughFailures(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	svc := auth.NewService(&stubUpstream{err: boom}, nil)
	_, err := svc.Authenticate(context.Background(), auth.LoginInput{Username: "a", Password: "b", Role: shared.RoleAdmin})
	assert.ErrorIs(t, err, boom)

	_, err = svc.Authenticate(context.Background(), auth.LoginInput{Username: "a", Password: "b", Role: "Guest"})
	assert.ErrorIs(t, err, auth.ErrUnknownRole)
}

func TestSessionAuditWithoutRepository(t *testing.T) {
	svc := auth.NewService(&stubUpstream{}, nil)
	assert.NoError(t, svc.RegisterSession(context.Background(), auth.LoginSession{ID: "s"}))
	assert.NoError(t, svc.RemoveSession(context.Background(), "s"))
}
