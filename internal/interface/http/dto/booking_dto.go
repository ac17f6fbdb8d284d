package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/usecase/booking"
)

type CreateBookingRequest struct {
	CreatorID     string     `json:"creator_id" binding:"required,uuid"`
	PackageType   string     `json:"package_type" binding:"required,package_type"`
	TotalPrice    int64      `json:"total_price" binding:"required,gt=0"`
	DepositAmount int64      `json:"deposit_amount" binding:"required,gt=0,ltefield=TotalPrice"`
	EventDate     *time.Time `json:"event_date"`
	Notes         string     `json:"notes" binding:"max=2000"`
}

func (r CreateBookingRequest) ToInput() booking.CreateBookingInput {
	return booking.CreateBookingInput{
		CreatorID:     uuid.MustParse(r.CreatorID),
		PackageType:   valueobject.PackageType(r.PackageType),
		TotalPrice:    valueobject.Money(r.TotalPrice),
		DepositAmount: valueobject.Money(r.DepositAmount),
		EventDate:     r.EventDate,
		Notes:         r.Notes,
	}
}

type RevisionRequest struct {
	Comment string `json:"comment" binding:"max=2000"`
}

type BookingResponse struct {
	ID             uuid.UUID  `json:"id"`
	BrandID        uuid.UUID  `json:"brand_id"`
	CreatorID      uuid.UUID  `json:"creator_id"`
	PackageType    string     `json:"package_type"`
	TotalPrice     int64      `json:"total_price"`
	DepositAmount  int64      `json:"deposit_amount"`
	PlatformFee    int64      `json:"platform_fee"`
	Status         string     `json:"status"`
	DeliveryStatus string     `json:"delivery_status"`
	EscrowStatus   string     `json:"escrow_status"`
	PaymentStatus  string     `json:"payment_status"`
	EventDate      *time.Time `json:"event_date,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
}

func ToBookingResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		BrandID:        b.BrandID,
		CreatorID:      b.CreatorID,
		PackageType:    string(b.PackageType),
		TotalPrice:     b.TotalPrice.Int64(),
		DepositAmount:  b.DepositAmount.Int64(),
		PlatformFee:    b.PlatformFee.Int64(),
		Status:         string(b.Status),
		DeliveryStatus: string(b.DeliveryStatus),
		EscrowStatus:   string(b.EscrowStatus),
		PaymentStatus:  string(b.PaymentStatus),
		EventDate:      b.EventDate,
		Notes:          b.Notes,
		Version:        b.Version,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		ConfirmedAt:    b.ConfirmedAt,
	}
}

func ToBookingResponses(items []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(items))
	for _, b := range items {
		out = append(out, ToBookingResponse(b))
	}
	return out
}

type LedgerEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Amount      int64      `json:"amount"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type LedgerResponse struct {
	Summary entity.LedgerSummary  `json:"summary"`
	Entries []LedgerEntryResponse `json:"entries"`
}

func ToLedgerResponse(v *booking.LedgerView) LedgerResponse {
	entries := make([]LedgerEntryResponse, 0, len(v.Entries))
	for _, e := range v.Entries {
		entries = append(entries, LedgerEntryResponse{
			ID:          e.ID,
			Type:        string(e.Type),
			Status:      string(e.Status),
			Amount:      e.Amount.Int64(),
			ProcessedAt: e.ProcessedAt,
			CreatedAt:   e.CreatedAt,
		})
	}
	return LedgerResponse{Summary: v.Summary, Entries: entries}
}
