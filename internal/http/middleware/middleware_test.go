package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/http/middleware"
	"github.com/ignatzorin/collab-backend/internal/logger"
)

func init() {
	logger.Silence()
	gin.SetMode(gin.TestMode)
}

type staticTokens struct {
	p entity.Principal
}

func (s staticTokens) ParseAccess(raw string) (entity.Principal, error) {
	if raw != "ok" {
		return entity.Principal{}, assert.AnError
	}
	return s.p, nil
}

func serve(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware_HeaderAndQuery(t *testing.T) {
	p := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware(staticTokens{p: p}), func(c *gin.Context) {
		got, _ := middleware.Principal(c)
		c.String(http.StatusOK, got.ProfileID.String())
	})

	rec := serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer ok"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ProfileID.String(), rec.Body.String())

	rec = serve(r, http.MethodGet, "/me?token=ok", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Basic ok"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer stale"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	p := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
	r := gin.New()
	r.Use(middleware.AuthMiddleware(staticTokens{p: p}))
	r.GET("/brand", middleware.RequireRole(valueobject.RoleBrand), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/any", middleware.RequireRole(valueobject.RoleBrand, valueobject.RoleCreator), func(c *gin.Context) { c.Status(http.StatusOK) })

	auth := map[string]string{"Authorization": "Bearer ok"}
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/brand", auth).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/any", auth).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/act", middleware.RateLimitMiddleware(2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/act", nil).Code)
	rec := serve(r, http.MethodPost, "/act", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(r, http.MethodPost, "/act", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(r, http.MethodOptions, "/x", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, logger.RequestID(c.Request.Context())) })

	id := uuid.NewString()
	rec := serve(r, http.MethodGet, "/x", map[string]string{middleware.RequestIDHeader: id})
	assert.Equal(t, id, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, id, rec.Body.String())

	rec = serve(r, http.MethodGet, "/x", map[string]string{middleware.RequestIDHeader: "<script>"})
	_, err := uuid.Parse(rec.Header().Get(middleware.RequestIDHeader))
	assert.NoError(t, err)
}
