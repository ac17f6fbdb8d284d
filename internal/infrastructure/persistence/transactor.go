package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

const pqUniqueViolation = "23505"

// Transactor открывает транзакцию Postgres и отдаёт репозитории, привязанные к ней.
type Transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx выполняет fn внутри транзакции с откатом при ошибке или панике.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать транзакцию")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &sqlTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зафиксировать транзакцию")
	}
	return nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (s *sqlTx) Bookings() repository.BookingRepository {
	return &BookingRepository{q: s.tx}
}

func (s *sqlTx) Ledger() repository.LedgerRepository {
	return &LedgerRepository{q: s.tx}
}

func (s *sqlTx) Disputes() repository.DisputeRepository {
	return &DisputeRepository{q: s.tx}
}

func (s *sqlTx) Subscriptions() repository.SubscriptionRepository {
	return &SubscriptionRepository{q: s.tx}
}

func (s *sqlTx) Usage() repository.UsageRepository {
	return &UsageRepository{q: s.tx}
}

func (s *sqlTx) Conversations() repository.ConversationRepository {
	return &ConversationRepository{q: s.tx}
}

func (s *sqlTx) Library() repository.LibraryRepository {
	return &LibraryRepository{q: s.tx}
}

// dbError переводит ошибки драйвера в ошибки портов хранилища.
func dbError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return repository.ErrDuplicate
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}

// checkAffected возвращает ErrStaleVersion, если условие UPDATE не совпало ни с одной строкой.
func checkAffected(res sql.Result, message string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
	}
	if n == 0 {
		return repository.ErrStaleVersion
	}
	return nil
}
