package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/interface/http/dto"
	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/usecase/dispute"
)

type DisputeHandler struct {
	open    *dispute.OpenDisputeUseCase
	respond *dispute.RespondDisputeUseCase
	resolve *dispute.ResolveDisputeUseCase
	queue   *dispute.ListOpenDisputesUseCase
}

func NewDisputeHandler(deps dispute.Deps) *DisputeHandler {
	return &DisputeHandler{
		open:    dispute.NewOpenDisputeUseCase(deps),
		respond: dispute.NewRespondDisputeUseCase(deps),
		resolve: dispute.NewResolveDisputeUseCase(deps),
		queue:   dispute.NewListOpenDisputesUseCase(deps),
	}
}

// Open обрабатывает POST /bookings/:id/disputes.
func (h *DisputeHandler) Open(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	bookingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.OpenDisputeRequest
	if !bind(c, &req) {
		return
	}

	d, err := h.open.Execute(c.Request.Context(), actor, dispute.OpenDisputeInput{
		BookingID: bookingID,
		Reason:    req.Reason,
		Evidence:  req.Evidence,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.ToDisputeResponse(d))
}

// Respond обрабатывает POST /disputes/:id/respond.
func (h *DisputeHandler) Respond(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.RespondDisputeRequest
	if !bind(c, &req) {
		return
	}

	d, err := h.respond.Execute(c.Request.Context(), id, actor, req.Response)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToDisputeResponse(d))
}

// Resolve обрабатывает POST /admin/disputes/:id/resolve.
func (h *DisputeHandler) Resolve(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ResolveDisputeRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.resolve.Execute(c.Request.Context(), actor, dispute.ResolveDisputeInput{
		DisputeID: id,
		Decision:  valueobject.DisputeResolution(req.Decision),
		Note:      req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToResolveDisputeResponse(result))
}

// Queue обрабатывает GET /admin/disputes.
func (h *DisputeHandler) Queue(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	items, err := h.queue.Execute(c.Request.Context(), actor, parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToDisputeQueue(items))
}
