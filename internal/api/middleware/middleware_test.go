package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sungminna/options-sandbox/internal/domain/model"
	"github.com/sungminna/options-sandbox/internal/domain/repository"
	"github.com/sungminna/options-sandbox/internal/infrastructure/memory"
	jwtpkg "github.com/sungminna/options-sandbox/pkg/jwt"
	"github.com/sungminna/options-sandbox/pkg/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(manager *jwtpkg.Manager, users repository.UserRepository) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(manager, "token"))
	r.GET("/me", func(c *gin.Context) {
		userID, err := GetUserID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, userID.String())
	})
	r.GET("/admin", RequireAdmin(users), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	manager := jwtpkg.NewManager("secret", time.Hour, "test")
	userID := uuid.New()
	token, err := manager.Generate(userID, string(model.RoleUser))
	require.NoError(t, err)
	r := newAuthRouter(manager, memory.NewStore().Users())

	tests := []struct {
		name       string
		prepare    func(req *http.Request)
		wantStatus int
	}{
		{
			name:       "bearer header",
			prepare:    func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "cookie",
			prepare:    func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "token", Value: token}) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing",
			prepare:    func(req *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			prepare:    func(req *http.Request) { req.Header.Set("Authorization", token) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "forged",
			prepare:    func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token+"x") },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ctx := context.Background()
	manager := jwtpkg.NewManager("secret", time.Hour, "test")
	store := memory.NewStore()
	r := newAuthRouter(manager, store.Users())

	admin := model.NewUser("admin@example.com", "h", model.RoleAdmin, decimal.Zero)
	user := model.NewUser("user@example.com", "h", model.RoleUser, decimal.Zero)
	// issued while still an admin, role revoked since
	demoted := model.NewUser("former@example.com", "h", model.RoleUser, decimal.Zero)
	for _, u := range []*model.User{admin, user, demoted} {
		require.NoError(t, store.Users().Create(ctx, u))
	}

	tests := []struct {
		name   string
		userID uuid.UUID
		role   model.Role
		want   int
	}{
		{"admin", admin.ID, model.RoleAdmin, http.StatusNoContent},
		{"user", user.ID, model.RoleUser, http.StatusForbidden},
		{"user claiming admin", user.ID, model.RoleAdmin, http.StatusForbidden},
		{"demoted admin", demoted.ID, model.RoleAdmin, http.StatusForbidden},
		{"deleted account", uuid.New(), model.RoleAdmin, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := manager.Generate(tt.userID, string(tt.role))
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	assert.NoError(t, err)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(ratelimit.NewKeyedRateLimiter(1, 2, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
