package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/interface/http/dto"
	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/booking"
)

type BookingHandler struct {
	create   *booking.CreateBookingUseCase
	get      *booking.GetBookingUseCase
	list     *booking.ListBookingsUseCase
	ledger   *booking.GetLedgerUseCase
	pay      *booking.PayDepositUseCase
	accept   *booking.AcceptBookingUseCase
	decline  *booking.DeclineBookingUseCase
	start    *booking.StartWorkUseCase
	deliver  *booking.SubmitDeliveryUseCase
	revision *booking.RequestRevisionUseCase
	confirm  *booking.ConfirmDeliveryUseCase
	cancelUC *booking.CancelBookingUseCase
}

func NewBookingHandler(deps booking.Deps) *BookingHandler {
	return &BookingHandler{
		create:   booking.NewCreateBookingUseCase(deps),
		get:      booking.NewGetBookingUseCase(deps),
		list:     booking.NewListBookingsUseCase(deps),
		ledger:   booking.NewGetLedgerUseCase(deps),
		pay:      booking.NewPayDepositUseCase(deps),
		accept:   booking.NewAcceptBookingUseCase(deps),
		decline:  booking.NewDeclineBookingUseCase(deps),
		start:    booking.NewStartWorkUseCase(deps),
		deliver:  booking.NewSubmitDeliveryUseCase(deps),
		revision: booking.NewRequestRevisionUseCase(deps),
		confirm:  booking.NewConfirmDeliveryUseCase(deps),
		cancelUC: booking.NewCancelBookingUseCase(deps),
	}
}

// Create обрабатывает POST /bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.CreateBookingRequest
	if !bind(c, &req) {
		return
	}

	b, err := h.create.Execute(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.ToBookingResponse(b))
}

// List обрабатывает GET /bookings?status=&limit=&offset=.
func (h *BookingHandler) List(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	input := booking.ListBookingsInput{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status := valueobject.BookingStatus(raw)
		if !status.IsValid() {
			fail(c, apperror.New(apperror.ErrCodeValidation, "неизвестный статус бронирования"))
			return
		}
		input.Status = &status
	}

	items, total, err := h.list.Execute(c.Request.Context(), actor, input)
	if err != nil {
		fail(c, err)
		return
	}
	response.Paginated(c, dto.ToBookingResponses(items), total, input.Limit, input.Offset)
}

func (h *BookingHandler) Get(c *gin.Context) {
	h.transition(c, h.get.Execute)
}

func (h *BookingHandler) Ledger(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	view, err := h.ledger.Execute(c.Request.Context(), id, actor)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToLedgerResponse(view))
}

func (h *BookingHandler) PayDeposit(c *gin.Context) { h.transition(c, h.pay.Execute) }
func (h *BookingHandler) Accept(c *gin.Context)     { h.transition(c, h.accept.Execute) }
func (h *BookingHandler) Decline(c *gin.Context)    { h.transition(c, h.decline.Execute) }
func (h *BookingHandler) Start(c *gin.Context)      { h.transition(c, h.start.Execute) }
func (h *BookingHandler) Deliver(c *gin.Context)    { h.transition(c, h.deliver.Execute) }
func (h *BookingHandler) Confirm(c *gin.Context)    { h.transition(c, h.confirm.Execute) }
func (h *BookingHandler) Cancel(c *gin.Context)     { h.transition(c, h.cancelUC.Execute) }

// Revision обрабатывает POST /bookings/:id/revision с необязательным комментарием.
func (h *BookingHandler) Revision(c *gin.Context) {
	var req dto.RevisionRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	h.transition(c, func(ctx context.Context, id uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
		return h.revision.Execute(ctx, id, actor, req.Comment)
	})
}

type bookingAction func(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error)

func (h *BookingHandler) transition(c *gin.Context, action bookingAction) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	b, err := action(c.Request.Context(), id, actor)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToBookingResponse(b))
}
