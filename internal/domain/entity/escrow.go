package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

// EscrowTransaction - неизменяемая запись леджера. После processed/failed меняться не может.
type EscrowTransaction struct {
	ID          uuid.UUID
	BookingID   uuid.UUID
	Amount      valueobject.Money
	Type        valueobject.TransactionType
	Status      valueobject.TransactionStatus
	ProcessedAt *time.Time
	CreatedAt   time.Time
}

func NewEscrowTransaction(bookingID uuid.UUID, t valueobject.TransactionType, amount valueobject.Money, status valueobject.TransactionStatus, now time.Time) (*EscrowTransaction, error) {
	if amount < 0 {
		return nil, apperror.LedgerInvariant("сумма транзакции не может быть отрицательной")
	}
	if !t.IsValid() {
		return nil, apperror.LedgerInvariant("неизвестный тип транзакции")
	}

	tx := &EscrowTransaction{
		ID:        uuid.New(),
		BookingID: bookingID,
		Amount:    amount,
		Type:      t,
		Status:    valueobject.TransactionStatusPending,
		CreatedAt: now,
	}
	if status != valueobject.TransactionStatusPending {
		if err := tx.Settle(status, now); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

func (t *EscrowTransaction) Settle(status valueobject.TransactionStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(status) {
		return apperror.LedgerInvariant("транзакция уже проведена и не может быть изменена")
	}
	t.Status = status
	if status == valueobject.TransactionStatusProcessed {
		t.ProcessedAt = &now
	}
	return nil
}

// LedgerTotals - свёртка проведённых записей одного бронирования.
type LedgerTotals struct {
	Deposited      valueobject.Money
	PendingDeposit valueobject.Money
	Released       valueobject.Money
	Refunded       valueobject.Money
	HasRelease     bool
}

func FoldLedger(entries []EscrowTransaction) LedgerTotals {
	var t LedgerTotals
	for _, e := range entries {
		switch e.Status {
		case valueobject.TransactionStatusPending:
			if e.Type == valueobject.TransactionTypeDeposit {
				t.PendingDeposit += e.Amount
			}
		case valueobject.TransactionStatusProcessed:
			switch e.Type {
			case valueobject.TransactionTypeDeposit:
				t.Deposited += e.Amount
			case valueobject.TransactionTypeRelease:
				t.Released += e.Amount
				t.HasRelease = true
			case valueobject.TransactionTypeRefund:
				t.Refunded += e.Amount
			}
		}
	}
	return t
}

// TotalPaid = deposit + release - refund.
func (t LedgerTotals) TotalPaid() valueobject.Money {
	return t.Deposited + t.Released - t.Refunded
}

// RefundableDeposit - сколько из внесённого депозита ещё можно вернуть.
func (t LedgerTotals) RefundableDeposit() valueobject.Money {
	return t.Deposited - t.Refunded
}

func (t LedgerTotals) DepositCovered(b *Booking) bool {
	return t.Deposited >= b.DepositAmount
}

func (t LedgerTotals) CheckDeposit(b *Booking, amount valueobject.Money) error {
	if amount <= 0 {
		return apperror.LedgerInvariant("депозит должен быть больше нуля")
	}
	if t.Deposited+t.PendingDeposit+amount > b.DepositAmount {
		return apperror.LedgerInvariant("сумма депозитов превышает депозит бронирования")
	}
	return nil
}

// CheckRelease: выплата только после внесённого депозита, одна на бронирование
// и не больше остатка стоимости.
func (t LedgerTotals) CheckRelease(b *Booking, amount valueobject.Money) error {
	if amount < 0 {
		return apperror.LedgerInvariant("сумма выплаты не может быть отрицательной")
	}
	if !t.DepositCovered(b) {
		return apperror.LedgerInvariant("выплата невозможна без внесённого депозита")
	}
	if t.HasRelease {
		return apperror.LedgerInvariant("выплата по бронированию уже проведена")
	}
	if t.Refunded > 0 {
		return apperror.LedgerInvariant("выплата невозможна после возврата")
	}
	if amount > b.RemainingBalance() {
		return apperror.LedgerInvariant("выплата превышает остаток стоимости")
	}
	return nil
}

// CheckRefund: вернуть можно не больше внесённого депозита, и не после выплаты.
func (t LedgerTotals) CheckRefund(amount valueobject.Money) error {
	if amount < 0 {
		return apperror.LedgerInvariant("сумма возврата не может быть отрицательной")
	}
	if t.HasRelease {
		return apperror.LedgerInvariant("возврат невозможен после выплаты")
	}
	if t.Refunded+amount > t.Deposited {
		return apperror.LedgerInvariant("возврат превышает внесённый депозит")
	}
	if t.TotalPaid()-amount < 0 {
		return apperror.LedgerInvariant("итоговая оплата не может стать отрицательной")
	}
	return nil
}

// Project пересчитывает escrow_status и payment_status из леджера.
// Других путей записи этих полей нет.
func (b *Booking) Project(t LedgerTotals, disputeOpen bool) {
	switch {
	case disputeOpen:
		b.EscrowStatus = valueobject.EscrowStatusDisputed
		b.PaymentStatus = valueobject.PaymentStatusDisputed
	case t.HasRelease:
		b.EscrowStatus = valueobject.EscrowStatusCompleted
		b.PaymentStatus = valueobject.PaymentStatusPaid
	case t.Refunded > 0 || b.Status == valueobject.BookingStatusCancelled || b.Status == valueobject.BookingStatusDeclined:
		b.EscrowStatus = valueobject.EscrowStatusRefunded
		b.PaymentStatus = valueobject.PaymentStatusRefunded
	case t.Deposited > 0 && t.DepositCovered(b):
		b.EscrowStatus = valueobject.EscrowStatusDepositPaid
		b.PaymentStatus = valueobject.PaymentStatusPartial
	default:
		b.EscrowStatus = valueobject.EscrowStatusPendingDeposit
		b.PaymentStatus = valueobject.PaymentStatusUnpaid
	}
}

// LedgerSummary - итог по бронированию для клиента.
type LedgerSummary struct {
	BookingID       uuid.UUID         `json:"booking_id"`
	DepositAmount   valueobject.Money `json:"deposit_amount"`
	ReleaseAmount   valueobject.Money `json:"release_amount"`
	RefundAmount    valueobject.Money `json:"refund_amount"`
	TotalPaid       valueobject.Money `json:"total_paid"`
	PlatformFee     valueobject.Money `json:"platform_fee"`
	CreatorEarnings valueobject.Money `json:"creator_earnings"`
}

func Summarize(b *Booking, entries []EscrowTransaction, fees valueobject.FeeSchedule) LedgerSummary {
	t := FoldLedger(entries)
	return LedgerSummary{
		BookingID:       b.ID,
		DepositAmount:   t.Deposited,
		ReleaseAmount:   t.Released,
		RefundAmount:    t.Refunded,
		TotalPaid:       t.TotalPaid(),
		PlatformFee:     fees.PlatformFee(b.TotalPrice),
		CreatorEarnings: fees.CreatorEarnings(b.TotalPrice),
	}
}
