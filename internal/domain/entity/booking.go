package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

type Booking struct {
	ID             uuid.UUID
	BrandID        uuid.UUID
	CreatorID      uuid.UUID
	PackageType    valueobject.PackageType
	TotalPrice     valueobject.Money
	DepositAmount  valueobject.Money
	PlatformFee    valueobject.Money
	Status         valueobject.BookingStatus
	DeliveryStatus valueobject.DeliveryStatus
	EscrowStatus   valueobject.EscrowStatus
	PaymentStatus  valueobject.PaymentStatus
	EventDate      *time.Time
	Notes          string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ConfirmedAt    *time.Time
}

type NewBookingParams struct {
	BrandID       uuid.UUID
	CreatorID     uuid.UUID
	PackageType   valueobject.PackageType
	TotalPrice    valueobject.Money
	DepositAmount valueobject.Money
	EventDate     *time.Time
	Notes         string
}

func NewBooking(p NewBookingParams, fees valueobject.FeeSchedule, now time.Time) (*Booking, error) {
	if p.BrandID == uuid.Nil || p.CreatorID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "бренд и креатор обязательны")
	}
	if p.BrandID == p.CreatorID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя забронировать самого себя")
	}
	if p.TotalPrice <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "стоимость должна быть больше нуля")
	}
	if p.DepositAmount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "депозит должен быть больше нуля")
	}
	if p.DepositAmount > p.TotalPrice {
		return nil, apperror.New(apperror.ErrCodeValidation, "депозит не может превышать стоимость")
	}

	return &Booking{
		ID:             uuid.New(),
		BrandID:        p.BrandID,
		CreatorID:      p.CreatorID,
		PackageType:    p.PackageType,
		TotalPrice:     p.TotalPrice,
		DepositAmount:  p.DepositAmount,
		PlatformFee:    fees.PlatformFee(p.TotalPrice),
		Status:         valueobject.BookingStatusPending,
		DeliveryStatus: valueobject.DeliveryStatusPending,
		EscrowStatus:   valueobject.EscrowStatusPendingDeposit,
		PaymentStatus:  valueobject.PaymentStatusUnpaid,
		EventDate:      p.EventDate,
		Notes:          p.Notes,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RemainingBalance - сумма, которая выплачивается креатору при подтверждении.
func (b *Booking) RemainingBalance() valueobject.Money {
	return b.TotalPrice - b.DepositAmount
}

func (b *Booking) IsParticipant(profileID uuid.UUID) bool {
	return profileID != uuid.Nil && (profileID == b.BrandID || profileID == b.CreatorID)
}

// CanView - участники и администраторы.
func (b *Booking) CanView(actor Principal) bool {
	return actor.IsAdmin() || b.IsParticipant(actor.ProfileID)
}

// Counterparty возвращает профиль второй стороны.
func (b *Booking) Counterparty(profileID uuid.UUID) uuid.UUID {
	if profileID == b.BrandID {
		return b.CreatorID
	}
	return b.BrandID
}

func (b *Booking) UnderDispute() bool {
	return b.EscrowStatus == valueobject.EscrowStatusDisputed
}

func (b *Booking) Accept(actor Principal, now time.Time) error {
	if err := b.guard(actor, valueobject.RoleCreator, "принять бронирование может только креатор"); err != nil {
		return err
	}
	return b.moveStatus(valueobject.BookingStatusAccepted, "бронирование можно принять только в статусе pending", now)
}

func (b *Booking) Decline(actor Principal, now time.Time) error {
	if err := b.guard(actor, valueobject.RoleCreator, "отклонить бронирование может только креатор"); err != nil {
		return err
	}
	return b.moveStatus(valueobject.BookingStatusDeclined, "бронирование можно отклонить только в статусе pending", now)
}

func (b *Booking) StartWork(actor Principal, now time.Time) error {
	if err := b.guard(actor, valueobject.RoleCreator, "начать работу может только креатор"); err != nil {
		return err
	}
	if b.Status != valueobject.BookingStatusAccepted {
		return apperror.InvalidTransition("работа начинается только после принятия бронирования")
	}
	return b.moveDelivery(valueobject.DeliveryStatusInProgress, now)
}

func (b *Booking) SubmitDelivery(actor Principal, now time.Time) error {
	if err := b.guard(actor, valueobject.RoleCreator, "сдать работу может только креатор"); err != nil {
		return err
	}
	if b.Status != valueobject.BookingStatusAccepted {
		return apperror.InvalidTransition("сдать работу можно только по принятому бронированию")
	}
	return b.moveDelivery(valueobject.DeliveryStatusDelivered, now)
}

func (b *Booking) RequestRevision(actor Principal, now time.Time) error {
	if err := b.guard(actor, valueobject.RoleBrand, "запросить правки может только бренд"); err != nil {
		return err
	}
	if b.Status != valueobject.BookingStatusAccepted || b.DeliveryStatus != valueobject.DeliveryStatusDelivered {
		return apperror.InvalidTransition("правки можно запросить только после сдачи работы")
	}
	return b.moveDelivery(valueobject.DeliveryStatusRevisionRequested, now)
}

// ConfirmDelivery меняет только статусы бронирования. Выплату и проекцию эскроу
// вызывающий код записывает через леджер в той же транзакции.
func (b *Booking) ConfirmDelivery(actor Principal, now time.Time) error {
	if err := b.guard(actor, valueobject.RoleBrand, "подтвердить сдачу может только бренд"); err != nil {
		return err
	}
	if b.DeliveryStatus != valueobject.DeliveryStatusDelivered {
		return apperror.InvalidTransition("подтвердить можно только сданную работу")
	}
	return b.complete(now)
}

func (b *Booking) Cancel(actor Principal, now time.Time) error {
	if !b.isPartyAs(actor) {
		return apperror.ErrNotParticipant
	}
	if b.UnderDispute() {
		return apperror.ErrDisputeActive
	}
	return b.moveStatus(valueobject.BookingStatusCancelled, "отменить можно только ожидающее или принятое бронирование", now)
}

// CompleteByResolution завершает бронирование решением администратора в пользу креатора.
// Непринятое креатором бронирование так завершить нельзя, для него доступен только возврат.
func (b *Booking) CompleteByResolution(now time.Time) error {
	if b.Status == valueobject.BookingStatusPending {
		return apperror.InvalidTransition("креатор не принял бронирование, спор можно решить только возвратом бренду")
	}
	return b.complete(now)
}

// CancelByResolution отменяет бронирование решением администратора в пользу бренда.
func (b *Booking) CancelByResolution(now time.Time) error {
	return b.moveStatus(valueobject.BookingStatusCancelled, "отменить можно только ожидающее или принятое бронирование", now)
}

func (b *Booking) complete(now time.Time) error {
	if !b.Status.CanTransitionTo(valueobject.BookingStatusCompleted) {
		return apperror.InvalidTransition("завершить можно только принятое бронирование")
	}
	b.DeliveryStatus = valueobject.DeliveryStatusConfirmed
	b.Status = valueobject.BookingStatusCompleted
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	return nil
}

// guard проверяет роль, участие и отсутствие открытого спора.
func (b *Booking) guard(actor Principal, role valueobject.Role, roleMessage string) error {
	if actor.Role != role {
		return apperror.InvalidTransition(roleMessage)
	}
	if !b.isPartyAs(actor) {
		return apperror.ErrNotParticipant
	}

	if b.UnderDispute() {
		return apperror.ErrDisputeActive
	}
	return nil
}

// isPartyAs проверяет, что профиль совпадает со стороной бронирования для заявленной роли.
func (b *Booking) isPartyAs(actor Principal) bool {
	switch actor.Role {
	case valueobject.RoleBrand:
		return actor.ProfileID == b.BrandID
	case valueobject.RoleCreator:
		return actor.ProfileID == b.CreatorID
	}
	return false
}

func (b *Booking) moveStatus(to valueobject.BookingStatus, message string, now time.Time) error {
	if !b.Status.CanTransitionTo(to) {
		return apperror.InvalidTransition(message).WithDetail("status", string(b.Status))
	}
	b.Status = to
	b.UpdatedAt = now
	return nil
}

func (b *Booking) moveDelivery(to valueobject.DeliveryStatus, now time.Time) error {
	if !b.DeliveryStatus.CanTransitionTo(to) {
		return apperror.InvalidTransition("недопустимый переход статуса сдачи работы").
			WithDetail("delivery_status", string(b.DeliveryStatus))
	}
	b.DeliveryStatus = to
	b.UpdatedAt = now
	return nil
}
