// Package escrow ведёт леджер эскроу бронирований. Все записи делаются внутри
// транзакции вызывающего кода, после каждой записи статусы бронирования
// пересчитываются из леджера.
package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

type Ledger struct {
	fees valueobject.FeeSchedule
}

func NewLedger(fees valueobject.FeeSchedule) *Ledger {
	return &Ledger{fees: fees}
}

func (l *Ledger) Fees() valueobject.FeeSchedule {
	return l.fees
}

// RecordDeposit добавляет депозит. Pending-запись проводится позже через Settle.
func (l *Ledger) RecordDeposit(ctx context.Context, tx repository.Tx, b *entity.Booking, amount valueobject.Money, status valueobject.TransactionStatus, now time.Time) (*entity.EscrowTransaction, error) {
	return l.record(ctx, tx, b, valueobject.TransactionTypeDeposit, amount, status, now, func(t entity.LedgerTotals) error {
		return t.CheckDeposit(b, amount)
	})
}

// RecordRelease выплачивает креатору остаток стоимости.
func (l *Ledger) RecordRelease(ctx context.Context, tx repository.Tx, b *entity.Booking, amount valueobject.Money, now time.Time) (*entity.EscrowTransaction, error) {
	return l.record(ctx, tx, b, valueobject.TransactionTypeRelease, amount, valueobject.TransactionStatusProcessed, now, func(t entity.LedgerTotals) error {
		return t.CheckRelease(b, amount)
	})
}

// RecordRefund возвращает бренду часть внесённого депозита.
func (l *Ledger) RecordRefund(ctx context.Context, tx repository.Tx, b *entity.Booking, amount valueobject.Money, now time.Time) (*entity.EscrowTransaction, error) {
	return l.record(ctx, tx, b, valueobject.TransactionTypeRefund, amount, valueobject.TransactionStatusProcessed, now, func(t entity.LedgerTotals) error {
		return t.CheckRefund(amount)
	})
}

// RefundDeposit возвращает весь ещё не возвращённый депозит. Если возвращать нечего, ничего не пишет.
func (l *Ledger) RefundDeposit(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) (valueobject.Money, error) {
	entries, err := tx.Ledger().ListByBooking(ctx, b.ID)
	if err != nil {
		return 0, err
	}
	amount := entity.FoldLedger(entries).RefundableDeposit()
	if amount <= 0 {
		return 0, nil
	}
	if _, err := l.RecordRefund(ctx, tx, b, amount, now); err != nil {
		return 0, err
	}
	return amount, nil
}

// ReleaseBalance выплачивает остаток стоимости. Нулевой остаток тоже фиксируется записью.
func (l *Ledger) ReleaseBalance(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) (valueobject.Money, error) {
	amount := b.RemainingBalance()
	if _, err := l.RecordRelease(ctx, tx, b, amount, now); err != nil {
		return 0, err
	}
	return amount, nil
}

// Settle переводит pending-запись в processed или failed.
func (l *Ledger) Settle(ctx context.Context, tx repository.Tx, b *entity.Booking, entryID uuid.UUID, status valueobject.TransactionStatus, now time.Time) error {
	entries, err := tx.Ledger().ListByBooking(ctx, b.ID)
	if err != nil {
		return err
	}

	var entry *entity.EscrowTransaction
	for i := range entries {
		if entries[i].ID == entryID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		return apperror.New(apperror.ErrCodeNotFound, "транзакция эскроу не найдена")
	}
	if err := entry.Settle(status, now); err != nil {
		l.violation(ctx, b, entry.Type, err)
		return err
	}
	if err := tx.Ledger().UpdateStatus(ctx, entry); err != nil {
		return err
	}
	metrics.RecordLedgerEntry(string(entry.Type), string(status))
	return l.Sync(ctx, tx, b)
}

// FailPendingDeposits закрывает все непроведённые депозиты статусом failed.
func (l *Ledger) FailPendingDeposits(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) error {
	entries, err := tx.Ledger().ListByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	for i := range entries {
		e := &entries[i]
		if e.Type != valueobject.TransactionTypeDeposit || e.Status != valueobject.TransactionStatusPending {
			continue
		}
		if err := e.Settle(valueobject.TransactionStatusFailed, now); err != nil {
			return err
		}
		if err := tx.Ledger().UpdateStatus(ctx, e); err != nil {
			return err
		}
		metrics.RecordLedgerEntry(string(e.Type), string(e.Status))
	}
	return l.Sync(ctx, tx, b)
}

// PendingDeposit возвращает первую непроведённую запись депозита или nil.
func (l *Ledger) PendingDeposit(ctx context.Context, tx repository.Tx, bookingID uuid.UUID) (*entity.EscrowTransaction, error) {
	entries, err := tx.Ledger().ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Type == valueobject.TransactionTypeDeposit && entries[i].Status == valueobject.TransactionStatusPending {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// Totals сворачивает леджер бронирования.
func (l *Ledger) Totals(ctx context.Context, tx repository.Tx, bookingID uuid.UUID) (entity.LedgerTotals, error) {
	entries, err := tx.Ledger().ListByBooking(ctx, bookingID)
	if err != nil {
		return entity.LedgerTotals{}, err
	}
	return entity.FoldLedger(entries), nil
}

// Sync пересчитывает escrow_status и payment_status бронирования. Сохраняет вызывающий код.
func (l *Ledger) Sync(ctx context.Context, tx repository.Tx, b *entity.Booking) error {
	entries, err := tx.Ledger().ListByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	open, err := tx.Disputes().FindOpenByBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	b.Project(entity.FoldLedger(entries), open != nil)
	return nil
}

func (l *Ledger) Summary(ctx context.Context, tx repository.Tx, b *entity.Booking) (entity.LedgerSummary, []entity.EscrowTransaction, error) {
	entries, err := tx.Ledger().ListByBooking(ctx, b.ID)
	if err != nil {
		return entity.LedgerSummary{}, nil, err
	}
	return entity.Summarize(b, entries, l.fees), entries, nil
}

func (l *Ledger) record(ctx context.Context, tx repository.Tx, b *entity.Booking, t valueobject.TransactionType, amount valueobject.Money, status valueobject.TransactionStatus, now time.Time, check func(entity.LedgerTotals) error) (*entity.EscrowTransaction, error) {
	// при открытом споре выплаты и возвраты пишет только решение по спору,
	// которое закрывает спор раньше записи в леджер
	if t == valueobject.TransactionTypeRelease || t == valueobject.TransactionTypeRefund {
		open, err := tx.Disputes().FindOpenByBooking(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if open != nil {
			l.violation(ctx, b, t, apperror.ErrDisputeActive)
			return nil, apperror.ErrDisputeActive
		}
	}

	entries, err := tx.Ledger().ListByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if err := check(entity.FoldLedger(entries)); err != nil {
		l.violation(ctx, b, t, err)
		return nil, err
	}

	entry, err := entity.NewEscrowTransaction(b.ID, t, amount, status, now)
	if err != nil {
		l.violation(ctx, b, t, err)
		return nil, err
	}
	if err := tx.Ledger().Append(ctx, entry); err != nil {
		return nil, err
	}
	metrics.RecordLedgerEntry(string(t), string(entry.Status))

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id": b.ID,
		"type":       t,
		"amount":     amount.Int64(),
		"status":     entry.Status,
	}).Info("escrow entry recorded")

	return entry, l.Sync(ctx, tx, b)
}

func (l *Ledger) violation(ctx context.Context, b *entity.Booking, t valueobject.TransactionType, err error) {
	metrics.RecordLedgerViolation(string(t))
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id": b.ID,
		"type":       t,
	}).WithError(err).Warn("escrow write rejected")
}
