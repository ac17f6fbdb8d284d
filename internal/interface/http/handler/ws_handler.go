package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/ws"
)

// WSHandler открывает websocket для уведомлений профиля.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=... Токен проверяет AuthMiddleware.
func (h *WSHandler) Handle(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	if actor.IsAdmin() {
		fail(c, apperror.New(apperror.ErrCodeForbidden, "уведомления доступны брендам и креаторам"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		logger.FromContext(c.Request.Context()).WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := ws.NewClient(conn, h.hub, actor.ProfileID)
	h.hub.Register(client)
	client.Run(c.Request.Context())
}
