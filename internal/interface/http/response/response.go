package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

type PaginatedResponse struct {
	Success    bool       `json:"success"`
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Paginated(c *gin.Context, data any, total, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

// Error пишет ошибку в едином формате. Внутренние ошибки маскируются.
func Error(c *gin.Context, err error) {
	status, info := describe(c, err)
	c.JSON(status, Response{Success: false, Error: info})
}

// Abort пишет ошибку и прерывает цепочку обработчиков.
func Abort(c *gin.Context, err error) {
	status, info := describe(c, err)
	c.AbortWithStatusJSON(status, Response{Success: false, Error: info})
}

func describe(c *gin.Context, err error) (int, *ErrorInfo) {
	info := &ErrorInfo{CorrelationID: logger.RequestID(c.Request.Context())}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Internal() {
		info.Code = string(apperror.ErrCodeInternal)
		info.Message = "внутренняя ошибка сервера"
		return http.StatusInternalServerError, info
	}

	info.Code = string(appErr.Code)
	info.Message = appErr.Message
	info.Details = appErr.Details
	return appErr.HTTPStatus, info
}
