package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
)

const bookingColumns = `id, brand_id, creator_id, package_type, total_price, deposit_amount, platform_fee,
	status, delivery_status, escrow_status, payment_status, event_date, notes, version,
	created_at, updated_at, confirmed_at`

type BookingRepository struct {
	q sqlx.ExtContext
}

func (r *BookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.ExecContext(ctx, query,
		b.ID, b.BrandID, b.CreatorID, string(b.PackageType),
		b.TotalPrice.Int64(), b.DepositAmount.Int64(), b.PlatformFee.Int64(),
		string(b.Status), string(b.DeliveryStatus), string(b.EscrowStatus), string(b.PaymentStatus),
		b.EventDate, b.Notes, b.Version, b.CreatedAt, b.UpdatedAt, b.ConfirmedAt,
	)
	if err != nil {
		return dbError(err, "не удалось создать бронирование")
	}
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.find(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.find(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) find(ctx context.Context, query string, id uuid.UUID) (*entity.Booking, error) {
	var row bookingRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, id); err != nil {
		return nil, dbError(err, "не удалось получить бронирование")
	}
	return row.toEntity(), nil
}

// Update пишет только изменяемые поля и проверяет версию строки.
func (r *BookingRepository) Update(ctx context.Context, b *entity.Booking) error {
	query := `UPDATE bookings SET
		status = $3, delivery_status = $4, escrow_status = $5, payment_status = $6,
		updated_at = $7, confirmed_at = $8, version = version + 1
		WHERE id = $1 AND version = $2`
	res, err := r.q.ExecContext(ctx, query,
		b.ID, b.Version,
		string(b.Status), string(b.DeliveryStatus), string(b.EscrowStatus), string(b.PaymentStatus),
		b.UpdatedAt, b.ConfirmedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить бронирование")
	}
	if err := checkAffected(res, "не удалось обновить бронирование"); err != nil {
		return err
	}
	b.Version++
	return nil
}

func (r *BookingRepository) List(ctx context.Context, f repository.BookingFilter) ([]*entity.Booking, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	switch f.Role {
	case valueobject.RoleBrand:
		where += fmt.Sprintf(" AND brand_id = $%d", argIndex)
		args = append(args, f.ProfileID)
		argIndex++
	case valueobject.RoleCreator:
		where += fmt.Sprintf(" AND creator_id = $%d", argIndex)
		args = append(args, f.ProfileID)
		argIndex++
	}
	if f.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(*f.Status))
		argIndex++
	}

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return nil, 0, dbError(err, "не удалось посчитать бронирования")
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, f.Limit)
		argIndex++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, f.Offset)
	}

	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, 0, dbError(err, "не удалось получить бронирования")
	}
	result := make([]*entity.Booking, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, total, nil
}

func (r *BookingRepository) HasCompletedBetween(ctx context.Context, brandID, creatorID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bookings WHERE brand_id = $1 AND creator_id = $2 AND status = 'completed')`
	if err := sqlx.GetContext(ctx, r.q, &exists, query, brandID, creatorID); err != nil {
		return false, dbError(err, "не удалось проверить завершённые бронирования")
	}
	return exists, nil
}

type bookingRow struct {
	ID             uuid.UUID  `db:"id"`
	BrandID        uuid.UUID  `db:"brand_id"`
	CreatorID      uuid.UUID  `db:"creator_id"`
	PackageType    string     `db:"package_type"`
	TotalPrice     int64      `db:"total_price"`
	DepositAmount  int64      `db:"deposit_amount"`
	PlatformFee    int64      `db:"platform_fee"`
	Status         string     `db:"status"`
	DeliveryStatus string     `db:"delivery_status"`
	EscrowStatus   string     `db:"escrow_status"`
	PaymentStatus  string     `db:"payment_status"`
	EventDate      *time.Time `db:"event_date"`
	Notes          string     `db:"notes"`
	Version        int64      `db:"version"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	ConfirmedAt    *time.Time `db:"confirmed_at"`
}

func (r *bookingRow) toEntity() *entity.Booking {
	return &entity.Booking{
		ID:             r.ID,
		BrandID:        r.BrandID,
		CreatorID:      r.CreatorID,
		PackageType:    valueobject.PackageType(r.PackageType),
		TotalPrice:     valueobject.Money(r.TotalPrice),
		DepositAmount:  valueobject.Money(r.DepositAmount),
		PlatformFee:    valueobject.Money(r.PlatformFee),
		Status:         valueobject.BookingStatus(r.Status),
		DeliveryStatus: valueobject.DeliveryStatus(r.DeliveryStatus),
		EscrowStatus:   valueobject.EscrowStatus(r.EscrowStatus),
		PaymentStatus:  valueobject.PaymentStatus(r.PaymentStatus),
		EventDate:      r.EventDate,
		Notes:          r.Notes,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		ConfirmedAt:    r.ConfirmedAt,
	}
}
