package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sungminna/options-sandbox/internal/domain/apperr"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/infrastructure/memory"
	jwtpkg "github.com/sungminna/options-sandbox/pkg/jwt"
)

func newTestService(t *testing.T) (*Service, *jwtpkg.Manager) {
	t.Helper()
	manager := jwtpkg.NewManager("secret", time.Hour, "test")
	svc := NewService(memory.NewStore().Users(), manager, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, manager
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc, manager := newTestService(t)

	admin, err := svc.EnsureUser(ctx, "admin@example.com", "hunter2", model.RoleAdmin, decimal.NewFromInt(1000))
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, resp.User.ID)

	claims, err := manager.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)
	assert.Equal(t, string(model.RoleAdmin), claims.Role)

	_, err = svc.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "hunter2"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestService_EnsureUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.EnsureUser(ctx, "demo@example.com", "pw", model.RoleUser, decimal.NewFromInt(500))
	require.NoError(t, err)
	second, err := svc.EnsureUser(ctx, "demo@example.com", "other", model.RoleAdmin, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.RoleUser, second.Role)
}

func TestService_Me(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	user, err := svc.EnsureUser(ctx, "demo@example.com", "pw", model.RoleUser, decimal.NewFromInt(500))
	require.NoError(t, err)

	profile, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "demo@example.com", profile.Email)
	assert.True(t, profile.Balance.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, model.RoleUser, profile.Role)

	_, err = svc.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
