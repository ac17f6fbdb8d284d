package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/http/middleware"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/validation"
)

// principal достаёт проверенного пользователя. Без него отвечает 401 и возвращает false.
func principal(c *gin.Context) (entity.Principal, bool) {
	p, ok := middleware.Principal(c)
	if !ok {
		fail(c, apperror.ErrUnauthorized)
	}
	return p, ok
}

// fail передаёт ошибку в middleware.ErrorHandler.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, validation.FromError(err))
		return false
	}
	return true
}

// uuidParam читает параметр пути, уже проверенный middleware.UUIDValidator.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, apperror.New(apperror.ErrCodeValidation, "параметр "+name+" должен быть валидным UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func parseBoolQuery(c *gin.Context, key string) bool {
	value, _ := strconv.ParseBool(c.Query(key))
	return value
}
