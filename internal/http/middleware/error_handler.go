package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

// ErrorHandler отвечает на ошибки, добавленные обработчиками через c.Error.
// Внутренние ошибки логируются целиком, клиент получает общий текст и correlation_id.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || appErr.Internal() {
			logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"code":   apperror.CodeOf(err),
			}).WithError(err).Error("request failed")
		}
		response.Error(c, err)
	}
}
