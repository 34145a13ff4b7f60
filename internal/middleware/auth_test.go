package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/modules/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuthenticator map[string]auth.Principal

func (s stubAuthenticator) Authenticate(_ context.Context, bearer string) (*auth.Principal, error) {
	if bearer == "broken" {
		return nil, errors.New("db down")
	}
	p, ok := s[bearer]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return &p, nil
}

var testUsers = stubAuthenticator{
	"user-token":  {UserID: 42, Role: domain.RoleUser},
	"admin-token": {UserID: 1, Role: domain.RoleAdmin},
}

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuth(testUsers))
	router.Use(extra...)
	router.GET("/protected", func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		role, _ := c.Get("role")
		c.JSON(http.StatusOK, gin.H{
			"user_id": userID,
			"role":    role,
		})
	})
	return router
}

func serve(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_ValidToken(t *testing.T) {
	w := serve(protectedRouter(), "Bearer user-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
	assert.Contains(t, w.Body.String(), "user")
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	w := serve(protectedRouter(), "Bearer invalid-jwt-here")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestJWTAuth_NoToken(t *testing.T) {
	w := serve(protectedRouter(), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header is required")
}

func TestJWTAuth_WrongFormat(t *testing.T) {
	w := serve(protectedRouter(), "Basic dGVzdA==")

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "Authorization header must be 'Bearer <token>'", body.Error.Message)
}

func TestJWTAuth_BackendError(t *testing.T) {
	w := serve(protectedRouter(), "Bearer broken")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminOnly(t *testing.T) {
	router := protectedRouter(AdminOnly())

	w := serve(router, "Bearer user-token")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	w = serve(router, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQueryTokenAuth(t *testing.T) {
	router := gin.New()
	router.GET("/feed", QueryTokenAuth(testUsers), AdminOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feed?token=admin-token", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feed", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiter(t *testing.T) {
	router := gin.New()
	router.Use(NewRateLimiter(2).Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterDropsIdleClients(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60)
	rl.now = func() time.Time { return now }
	rl.lastSweep = now

	for i := 0; i < 50; i++ {
		rl.limiter(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, 50, rl.size())

	now = now.Add(limiterIdleTTL / 2)
	rl.limiter("10.0.0.1")

	now = now.Add(limiterIdleTTL/2 + time.Second)
	rl.limiter("192.168.1.1")

	// 10.0.0.1 was seen within the idle window; the rest were not.
	assert.Equal(t, 2, rl.size())
}

func TestErrorLoggerRecoversPanics(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(zap.NewNop()), ErrorLogger(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
