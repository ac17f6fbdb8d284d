package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
)

// LedgerRepository - append-only таблица escrow_transactions.
type LedgerRepository struct {
	q sqlx.ExtContext
}

func (r *LedgerRepository) Append(ctx context.Context, tx *entity.EscrowTransaction) error {
	query := `INSERT INTO escrow_transactions (id, booking_id, amount, type, status, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.ExecContext(ctx, query,
		tx.ID, tx.BookingID, tx.Amount.Int64(), string(tx.Type), string(tx.Status), tx.ProcessedAt, tx.CreatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось записать транзакцию эскроу")
	}
	return nil
}

// UpdateStatus проводит только записи в статусе pending.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, tx *entity.EscrowTransaction) error {
	query := `UPDATE escrow_transactions SET status = $2, processed_at = $3
		WHERE id = $1 AND status = 'pending'`
	res, err := r.q.ExecContext(ctx, query, tx.ID, string(tx.Status), tx.ProcessedAt)
	if err != nil {
		return dbError(err, "не удалось провести транзакцию эскроу")
	}
	return checkAffected(res, "не удалось провести транзакцию эскроу")
}

func (r *LedgerRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]entity.EscrowTransaction, error) {
	var rows []ledgerRow
	query := `SELECT id, booking_id, amount, type, status, processed_at, created_at
		FROM escrow_transactions WHERE booking_id = $1 ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, bookingID); err != nil {
		return nil, dbError(err, "не удалось получить леджер бронирования")
	}
	result := make([]entity.EscrowTransaction, len(rows))
	for i, row := range rows {
		result[i] = entity.EscrowTransaction{
			ID:          row.ID,
			BookingID:   row.BookingID,
			Amount:      valueobject.Money(row.Amount),
			Type:        valueobject.TransactionType(row.Type),
			Status:      valueobject.TransactionStatus(row.Status),
			ProcessedAt: row.ProcessedAt,
			CreatedAt:   row.CreatedAt,
		}
	}
	return result, nil
}

type ledgerRow struct {
	ID          uuid.UUID  `db:"id"`
	BookingID   uuid.UUID  `db:"booking_id"`
	Amount      int64      `db:"amount"`
	Type        string     `db:"type"`
	Status      string     `db:"status"`
	ProcessedAt *time.Time `db:"processed_at"`
	CreatedAt   time.Time  `db:"created_at"`
}
