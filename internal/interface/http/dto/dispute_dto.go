package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/usecase/dispute"
)

type OpenDisputeRequest struct {
	Reason   string `json:"reason" binding:"required,max=5000"`
	Evidence string `json:"evidence" binding:"max=5000"`
}

type RespondDisputeRequest struct {
	Response string `json:"response" binding:"required,max=5000"`
}

type ResolveDisputeRequest struct {
	Decision string `json:"decision" binding:"required,dispute_decision"`
	Note     string `json:"note" binding:"max=5000"`
}

type DisputeResponse struct {
	ID                  uuid.UUID  `json:"id"`
	BookingID           uuid.UUID  `json:"booking_id"`
	OpenedByUserID      uuid.UUID  `json:"opened_by_user_id"`
	OpenedByRole        string     `json:"opened_by_role"`
	Reason              string     `json:"reason"`
	Evidence            *string    `json:"evidence,omitempty"`
	Status              string     `json:"status"`
	ResponseText        *string    `json:"response_text,omitempty"`
	ResponseSubmittedAt *time.Time `json:"response_submitted_at,omitempty"`
	ResponseDeadline    time.Time  `json:"response_deadline"`
	ResolutionDeadline  time.Time  `json:"resolution_deadline"`
	Resolution          *string    `json:"resolution,omitempty"`
	ResolutionNote      *string    `json:"resolution_note,omitempty"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

func ToDisputeResponse(d *entity.Dispute) DisputeResponse {
	resp := DisputeResponse{
		ID:                  d.ID,
		BookingID:           d.BookingID,
		OpenedByUserID:      d.OpenedByUserID,
		OpenedByRole:        string(d.OpenedByRole),
		Reason:              d.Reason,
		Evidence:            d.Evidence,
		Status:              string(d.Status),
		ResponseText:        d.ResponseText,
		ResponseSubmittedAt: d.ResponseSubmittedAt,
		ResponseDeadline:    d.ResponseDeadline,
		ResolutionDeadline:  d.ResolutionDeadline,
		ResolutionNote:      d.ResolutionNote,
		ResolvedAt:          d.ResolvedAt,
		CreatedAt:           d.CreatedAt,
	}
	if d.Resolution != nil {
		r := string(*d.Resolution)
		resp.Resolution = &r
	}
	return resp
}

type ResolveDisputeResponse struct {
	Dispute DisputeResponse `json:"dispute"`
	Booking BookingResponse `json:"booking"`
	Amount  int64           `json:"amount"`
}

func ToResolveDisputeResponse(r *dispute.ResolveDisputeResult) ResolveDisputeResponse {
	return ResolveDisputeResponse{
		Dispute: ToDisputeResponse(r.Dispute),
		Booking: ToBookingResponse(r.Booking),
		Amount:  r.Amount.Int64(),
	}
}

type DisputeQueueItem struct {
	DisputeResponse
	ResponseOverdue   bool `json:"response_overdue"`
	ResolutionOverdue bool `json:"resolution_overdue"`
}

func ToDisputeQueue(items []dispute.QueueItem) []DisputeQueueItem {
	out := make([]DisputeQueueItem, 0, len(items))
	for _, it := range items {
		out = append(out, DisputeQueueItem{
			DisputeResponse:   ToDisputeResponse(it.Dispute),
			ResponseOverdue:   it.ResponseOverdue,
			ResolutionOverdue: it.ResolutionOverdue,
		})
	}
	return out
}
