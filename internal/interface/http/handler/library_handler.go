package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/interface/http/dto"
	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/library"
)

type LibraryHandler struct {
	upload         *library.UploadUseCase
	list           *library.ListUseCase
	maxUploadBytes int64
}

func NewLibraryHandler(deps library.Deps, maxUploadBytes int64) *LibraryHandler {
	return &LibraryHandler{
		upload:         library.NewUploadUseCase(deps),
		list:           library.NewListUseCase(deps),
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload обрабатывает POST /library (multipart: file, booking_id).
func (h *LibraryHandler) Upload(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		fail(c, apperror.New(apperror.ErrCodeValidation, "файл обязателен"))
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		fail(c, apperror.New(apperror.ErrCodeValidation, "файл превышает допустимый размер загрузки").
			WithDetail("max_bytes", h.maxUploadBytes))
		return
	}

	input := library.UploadInput{FileName: header.Filename, Size: header.Size}
	if raw := c.PostForm("booking_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, apperror.New(apperror.ErrCodeValidation, "booking_id должен быть валидным UUID"))
			return
		}
		input.BookingID = &id
	}

	file, err := header.Open()
	if err != nil {
		fail(c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось открыть файл"))
		return
	}
	defer file.Close()
	input.Content = file

	item, err := h.upload.Execute(c.Request.Context(), actor, input)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.ToLibraryItemResponse(item))
}

func (h *LibraryHandler) List(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	listing, err := h.list.Execute(c.Request.Context(), actor, parseIntQuery(c, "limit", 20), parseIntQuery(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToLibraryResponse(listing))
}
