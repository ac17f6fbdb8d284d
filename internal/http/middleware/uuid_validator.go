package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

// UUIDValidator отсекает запросы, где параметр пути не UUID.
// Использование: bookings.POST("/:id/accept", UUIDValidator("id"), h.Accept)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(paramName)); err != nil {
			response.Abort(c, apperror.New(apperror.ErrCodeValidation, "параметр "+paramName+" должен быть валидным UUID").
				WithDetail("param", paramName))
			return
		}
		c.Next()
	}
}
