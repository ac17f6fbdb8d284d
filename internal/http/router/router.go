package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/http/middleware"
	"github.com/ignatzorin/collab-backend/internal/interface/http/handler"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/validation"
)

type Options struct {
	Production      bool
	AllowedOrigins  []string
	RateLimitLimit  int64
	RateLimitPeriod time.Duration
}

type Handlers struct {
	Health        *handler.HealthHandler
	Bookings      *handler.BookingHandler
	Disputes      *handler.DisputeHandler
	Subscriptions *handler.SubscriptionHandler
	Conversations *handler.ConversationHandler
	Library       *handler.LibraryHandler
	Notifications *handler.NotificationHandler
	WS            *handler.WSHandler
}

func SetupRouter(opts Options, h Handlers, tokens middleware.AccessTokenParser) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := validation.Register(v); err != nil {
			logger.Log.WithError(err).Fatal("router: не удалось зарегистрировать правила валидации")
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(opts.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthMiddleware(tokens)
	limit := middleware.RateLimitMiddleware(opts.RateLimitLimit, opts.RateLimitPeriod)
	id := middleware.UUIDValidator("id")
	brand := middleware.RequireRole(valueobject.RoleBrand)
	admin := middleware.RequireRole(valueobject.RoleAdmin)

	r.GET("/api/ws", auth, h.WS.Handle)

	v1 := r.Group("/api/v1")
	v1.Use(auth)
	{
		v1.GET("/entitlements", h.Subscriptions.Entitlements)
		v1.GET("/subscriptions/current", brand, h.Subscriptions.Current)
		v1.POST("/subscriptions/upgrade", brand, limit, h.Subscriptions.Upgrade)
		v1.POST("/subscriptions/cancel", brand, limit, h.Subscriptions.Cancel)
		v1.GET("/quota", brand, h.Subscriptions.Usage)
	}

	bookings := v1.Group("/bookings")
	{
		bookings.POST("", brand, limit, h.Bookings.Create)
		bookings.GET("", h.Bookings.List)
		bookings.GET("/:id", id, h.Bookings.Get)
		bookings.GET("/:id/ledger", id, h.Bookings.Ledger)
		bookings.POST("/:id/deposit", id, limit, h.Bookings.PayDeposit)
		bookings.POST("/:id/accept", id, limit, h.Bookings.Accept)
		bookings.POST("/:id/decline", id, limit, h.Bookings.Decline)
		bookings.POST("/:id/start", id, limit, h.Bookings.Start)
		bookings.POST("/:id/deliver", id, limit, h.Bookings.Deliver)
		bookings.POST("/:id/revision", id, limit, h.Bookings.Revision)
		bookings.POST("/:id/confirm", id, limit, h.Bookings.Confirm)
		bookings.POST("/:id/cancel", id, limit, h.Bookings.Cancel)
		bookings.POST("/:id/disputes", id, limit, h.Disputes.Open)
	}

	v1.POST("/disputes/:id/respond", id, limit, h.Disputes.Respond)

	adminGroup := v1.Group("/admin", admin)
	{
		adminGroup.GET("/disputes", h.Disputes.Queue)
		adminGroup.POST("/disputes/:id/resolve", id, h.Disputes.Resolve)
	}

	{
		v1.POST("/conversations", brand, limit, h.Conversations.Start)
		v1.GET("/conversations/:id/messages", id, h.Conversations.Messages)
		v1.POST("/conversations/:id/messages", id, limit, h.Conversations.Send)
		v1.POST("/messages/mass", brand, limit, h.Conversations.Mass)
	}

	{
		v1.POST("/library", brand, limit, h.Library.Upload)
		v1.GET("/library", brand, h.Library.List)
	}

	{
		v1.GET("/notifications", h.Notifications.List)
		v1.POST("/notifications/read-all", h.Notifications.MarkAllRead)
		v1.POST("/notifications/:id/read", id, h.Notifications.MarkRead)
	}

	return r
}
