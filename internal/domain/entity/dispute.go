package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

const (
	DisputeResponseWindow   = 3 * 24 * time.Hour
	DisputeResolutionWindow = 7 * 24 * time.Hour
	DisputeReasonMinLength  = 20
)

type Dispute struct {
	ID                  uuid.UUID
	BookingID           uuid.UUID
	OpenedByUserID      uuid.UUID
	OpenedByRole        valueobject.Role
	Reason              string
	Evidence            *string
	Status              valueobject.DisputeStatus
	ResponseText        *string
	ResponseSubmittedAt *time.Time
	ResponseDeadline    time.Time
	ResolutionDeadline  time.Time
	Resolution          *valueobject.DisputeResolution
	ResolvedByUserID    *uuid.UUID
	ResolutionNote      *string
	ResolvedAt          *time.Time
	CreatedAt           time.Time
}

// NewDispute открывает спор. Сроки вычисляются один раз и дальше не меняются.
func NewDispute(b *Booking, actor Principal, reason, evidence string, now time.Time) (*Dispute, error) {
	if actor.Role != valueobject.RoleBrand && actor.Role != valueobject.RoleCreator {
		return nil, apperror.InvalidTransition("открыть спор может только участник бронирования")
	}
	if !b.isPartyAs(actor) {
		return nil, apperror.ErrNotParticipant
	}
	if b.Status.IsTerminal() {
		return nil, apperror.InvalidTransition("спор можно открыть только по активному бронированию")
	}
	if b.UnderDispute() {
		return nil, apperror.ErrDisputeActive
	}

	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < DisputeReasonMinLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина спора должна содержать не менее 20 символов")
	}

	d := &Dispute{
		ID:                 uuid.New(),
		BookingID:          b.ID,
		OpenedByUserID:     actor.UserID,
		OpenedByRole:       actor.Role,
		Reason:             reason,
		Status:             valueobject.DisputeStatusPendingResponse,
		ResponseDeadline:   now.Add(DisputeResponseWindow),
		ResolutionDeadline: now.Add(DisputeResolutionWindow),
		CreatedAt:          now,
	}
	if ev := strings.TrimSpace(evidence); ev != "" {
		d.Evidence = &ev
	}
	return d, nil
}

func (d *Dispute) IsOpen() bool {
	return d.Status.IsOpen()
}

// Respond - ответ второй стороны. Открывший спор ответить не может.
func (d *Dispute) Respond(b *Booking, actor Principal, text string, now time.Time) error {
	if actor.Role == d.OpenedByRole || !b.isPartyAs(actor) {
		return apperror.New(apperror.ErrCodeForbidden, "ответить на спор может только другая сторона")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apperror.New(apperror.ErrCodeValidation, "текст ответа обязателен")
	}
	if d.Status != valueobject.DisputeStatusPendingResponse {
		return apperror.InvalidTransition("ответ на спор уже получен или спор закрыт")
	}

	d.Status = valueobject.DisputeStatusPendingAdminReview
	d.ResponseText = &text
	d.ResponseSubmittedAt = &now
	return nil
}

func (d *Dispute) Resolve(actor Principal, decision valueobject.DisputeResolution, note string, now time.Time) error {
	if !actor.IsAdmin() {
		return apperror.New(apperror.ErrCodeForbidden, "разрешить спор может только администратор")
	}
	if !d.Status.CanTransitionTo(valueobject.DisputeStatusResolved) {
		return apperror.InvalidTransition("спор уже разрешён")
	}

	d.Status = valueobject.DisputeStatusResolved
	d.Resolution = &decision
	userID := actor.UserID
	d.ResolvedByUserID = &userID
	if note = strings.TrimSpace(note); note != "" {
		d.ResolutionNote = &note
	}
	d.ResolvedAt = &now
	return nil
}

// Просрочка носит справочный характер: статус спора от неё не меняется.
func (d *Dispute) IsResponseOverdue(now time.Time) bool {
	return d.Status == valueobject.DisputeStatusPendingResponse && now.After(d.ResponseDeadline)
}

func (d *Dispute) IsResolutionOverdue(now time.Time) bool {
	return d.IsOpen() && now.After(d.ResolutionDeadline)
}
