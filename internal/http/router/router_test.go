package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/http/middleware"
	"github.com/ignatzorin/collab-backend/internal/http/router"
	"github.com/ignatzorin/collab-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/collab-backend/internal/interface/http/handler"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/service"
	"github.com/ignatzorin/collab-backend/internal/usecase/booking"
	"github.com/ignatzorin/collab-backend/internal/usecase/conversation"
	"github.com/ignatzorin/collab-backend/internal/usecase/dispute"
	"github.com/ignatzorin/collab-backend/internal/usecase/escrow"
	"github.com/ignatzorin/collab-backend/internal/usecase/library"
	"github.com/ignatzorin/collab-backend/internal/usecase/notification"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
	"github.com/ignatzorin/collab-backend/internal/ws"
)

func init() {
	logger.Silence()
	gin.SetMode(gin.TestMode)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, ...entity.NotificationIntent) {}

type brokenTx struct{}

func (brokenTx) WithinTx(context.Context, func(ctx context.Context, tx repository.Tx) error) error {
	return errors.New("pq: connection reset by peer")
}

type env struct {
	engine *gin.Engine
	tokens *service.TokenManager
}

func newEnv(t *testing.T, tx repository.Transactor) *env {
	t.Helper()
	ledger := escrow.NewLedger(valueobject.FeeSchedule{BPS: valueobject.DefaultPlatformFeeBPS})
	tokens := service.NewTokenManager("router-test-secret-0123456789abcdef", time.Hour)

	h := router.Handlers{
		Health:        handler.NewHealthHandler(map[string]handler.HealthCheck{"store": func(context.Context) error { return nil }}),
		Bookings:      handler.NewBookingHandler(booking.Deps{Tx: tx, Ledger: ledger, Notifier: nopNotifier{}}),
		Disputes:      handler.NewDisputeHandler(dispute.Deps{Tx: tx, Ledger: ledger, Notifier: nopNotifier{}}),
		Subscriptions: handler.NewSubscriptionHandler(subscription.Deps{Tx: tx}),
		Conversations: handler.NewConversationHandler(conversation.Deps{Tx: tx, Notifier: nopNotifier{}}),
		Library:       handler.NewLibraryHandler(library.Deps{Tx: tx}, 1<<20),
		Notifications: handler.NewNotificationHandler(notification.NewInboxUseCase(memory.NewNotificationRepository())),
		WS:            handler.NewWSHandler(ws.NewHub(), nil),
	}
	engine := router.SetupRouter(router.Options{RateLimitLimit: 1000, RateLimitPeriod: time.Minute}, h, tokens)
	return &env{engine: engine, tokens: tokens}
}

func (e *env) token(t *testing.T, p entity.Principal) string {
	t.Helper()
	raw, _, err := e.tokens.GenerateAccess(p)
	require.NoError(t, err)
	return raw
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code          string         `json:"code"`
		Details       map[string]any `json:"details"`
		CorrelationID string         `json:"correlation_id"`
	} `json:"error"`
}

func (e *env) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)

	var out envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func brand() entity.Principal {
	return entity.Principal{UserID: uuid.New(), Role: valueobject.RoleBrand, ProfileID: uuid.New()}
}

func creator() entity.Principal {
	return entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
}

func TestHealth(t *testing.T) {
	e := newEnv(t, memory.NewStore())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t, memory.NewStore())

	rec, out := e.do(t, http.MethodGet, "/api/v1/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, out.Error)
	assert.Equal(t, "UNAUTHORIZED", out.Error.Code)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/bookings", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBooking_RequiresPaidPlan(t *testing.T) {
	e := newEnv(t, memory.NewStore())
	b := brand()

	rec, out := e.do(t, http.MethodPost, "/api/v1/bookings", e.token(t, b), map[string]any{
		"creator_id":     uuid.NewString(),
		"package_type":   "unboxing_review",
		"total_price":    5000,
		"deposit_amount": 1000,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, out.Error)
	assert.Equal(t, "ENTITLEMENT_DENIED", out.Error.Code)
}

func TestCreateBooking_Validation(t *testing.T) {
	e := newEnv(t, memory.NewStore())

	rec, out := e.do(t, http.MethodPost, "/api/v1/bookings", e.token(t, brand()), map[string]any{
		"creator_id":     "not-a-uuid",
		"package_type":   "dance_battle",
		"total_price":    1000,
		"deposit_amount": 5000,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, out.Error)
	assert.Equal(t, "VALIDATION_ERROR", out.Error.Code)

	fields, ok := out.Error.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "creator_id")
	assert.Contains(t, fields, "package_type")
	assert.Contains(t, fields, "deposit_amount")
}

func TestBookingFlowOverHTTP(t *testing.T) {
	e := newEnv(t, memory.NewStore())
	b, c := brand(), creator()
	brandToken, creatorToken := e.token(t, b), e.token(t, c)

	rec, _ := e.do(t, http.MethodPost, "/api/v1/subscriptions/upgrade", brandToken, map[string]any{"plan": "basic"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, out := e.do(t, http.MethodPost, "/api/v1/bookings", brandToken, map[string]any{
		"creator_id":     c.ProfileID.String(),
		"package_type":   "social_boost",
		"total_price":    10000,
		"deposit_amount": 2500,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID          uuid.UUID `json:"id"`
		Status      string    `json:"status"`
		PlatformFee int64     `json:"platform_fee"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Equal(t, int64(1000), created.PlatformFee)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/bookings/"+created.ID.String(), creatorToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out = e.do(t, http.MethodGet, "/api/v1/bookings/"+created.ID.String(), e.token(t, creator()), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, out.Error)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/bookings/"+created.ID.String()+"/ledger", brandToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out = e.do(t, http.MethodGet, "/api/v1/quota", brandToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)
}

func TestBadPathID(t *testing.T) {
	e := newEnv(t, memory.NewStore())

	rec, out := e.do(t, http.MethodPost, "/api/v1/bookings/42/accept", e.token(t, creator()), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, out.Error)
	assert.Equal(t, "id", out.Error.Details["param"])
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(t, memory.NewStore())

	rec, out := e.do(t, http.MethodGet, "/api/v1/admin/disputes", e.token(t, brand()), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, out.Error)
	assert.Equal(t, "FORBIDDEN", out.Error.Code)

	admin := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleAdmin}
	rec, _ = e.do(t, http.MethodGet, "/api/v1/admin/disputes", e.token(t, admin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBrandOnlyRoutes(t *testing.T) {
	e := newEnv(t, memory.NewStore())

	rec, _ := e.do(t, http.MethodPost, "/api/v1/subscriptions/upgrade", e.token(t, creator()), map[string]any{"plan": "pro"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInternalErrorsAreMasked(t *testing.T) {
	e := newEnv(t, brokenTx{})

	rec, out := e.do(t, http.MethodGet, "/api/v1/subscriptions/current", e.token(t, brand()), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, out.Error)
	assert.Equal(t, "INTERNAL_ERROR", out.Error.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Equal(t, rec.Header().Get(middleware.RequestIDHeader), out.Error.CorrelationID)
}

func TestNotificationsInbox(t *testing.T) {
	e := newEnv(t, memory.NewStore())
	token := e.token(t, creator())

	rec, out := e.do(t, http.MethodGet, "/api/v1/notifications", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)

	rec, out = e.do(t, http.MethodPost, "/api/v1/notifications/"+uuid.NewString()+"/read", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, out.Error)
}
