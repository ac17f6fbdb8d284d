package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
)

const disputeColumns = `id, booking_id, opened_by_user_id, opened_by_role, reason, evidence, status,
	response_text, response_submitted_at, response_deadline, resolution_deadline,
	resolution, resolved_by_user_id, resolution_note, resolved_at, created_at`

// DisputeRepository. Второй открытый спор по бронированию отсекает частичный уникальный индекс.
type DisputeRepository struct {
	q sqlx.ExtContext
}

func (r *DisputeRepository) Create(ctx context.Context, d *entity.Dispute) error {
	query := `INSERT INTO disputes (` + disputeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.ExecContext(ctx, query, disputeArgs(d)...)
	if err != nil {
		return dbError(err, "не удалось создать спор")
	}
	return nil
}

func (r *DisputeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	var row disputeRow
	query := `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.q, &row, query, id); err != nil {
		return nil, dbError(err, "не удалось получить спор")
	}
	return row.toEntity(), nil
}

// FindOpenByBooking читает без блокировки: сериализацию даёт блокировка строки бронирования.
func (r *DisputeRepository) FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error) {
	var row disputeRow
	query := `SELECT ` + disputeColumns + ` FROM disputes
		WHERE booking_id = $1 AND status <> 'resolved'`
	if err := sqlx.GetContext(ctx, r.q, &row, query, bookingID); err != nil {
		err = dbError(err, "не удалось получить спор")
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toEntity(), nil
}

func (r *DisputeRepository) Update(ctx context.Context, d *entity.Dispute) error {
	query := `UPDATE disputes SET status = $2, response_text = $3, response_submitted_at = $4,
		resolution = $5, resolved_by_user_id = $6, resolution_note = $7, resolved_at = $8
		WHERE id = $1`
	res, err := r.q.ExecContext(ctx, query,
		d.ID, string(d.Status), d.ResponseText, d.ResponseSubmittedAt,
		resolutionArg(d.Resolution), d.ResolvedByUserID, d.ResolutionNote, d.ResolvedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить спор")
	}
	err = checkAffected(res, "не удалось обновить спор")
	if errors.Is(err, repository.ErrStaleVersion) {
		return repository.ErrNotFound
	}
	return err
}

func (r *DisputeRepository) ListOpen(ctx context.Context, limit, offset int) ([]*entity.Dispute, error) {
	var rows []disputeRow
	query := `SELECT ` + disputeColumns + ` FROM disputes
		WHERE status <> 'resolved' ORDER BY created_at LIMIT $1 OFFSET $2`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, limit, offset); err != nil {
		return nil, dbError(err, "не удалось получить споры")
	}
	result := make([]*entity.Dispute, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func disputeArgs(d *entity.Dispute) []interface{} {
	return []interface{}{
		d.ID, d.BookingID, d.OpenedByUserID, string(d.OpenedByRole), d.Reason, d.Evidence, string(d.Status),
		d.ResponseText, d.ResponseSubmittedAt, d.ResponseDeadline, d.ResolutionDeadline,
		resolutionArg(d.Resolution), d.ResolvedByUserID, d.ResolutionNote, d.ResolvedAt, d.CreatedAt,
	}
}

func resolutionArg(r *valueobject.DisputeResolution) *string {
	if r == nil {
		return nil
	}
	s := string(*r)
	return &s
}

type disputeRow struct {
	ID                  uuid.UUID  `db:"id"`
	BookingID           uuid.UUID  `db:"booking_id"`
	OpenedByUserID      uuid.UUID  `db:"opened_by_user_id"`
	OpenedByRole        string     `db:"opened_by_role"`
	Reason              string     `db:"reason"`
	Evidence            *string    `db:"evidence"`
	Status              string     `db:"status"`
	ResponseText        *string    `db:"response_text"`
	ResponseSubmittedAt *time.Time `db:"response_submitted_at"`
	ResponseDeadline    time.Time  `db:"response_deadline"`
	ResolutionDeadline  time.Time  `db:"resolution_deadline"`
	Resolution          *string    `db:"resolution"`
	ResolvedByUserID    *uuid.UUID `db:"resolved_by_user_id"`
	ResolutionNote      *string    `db:"resolution_note"`
	ResolvedAt          *time.Time `db:"resolved_at"`
	CreatedAt           time.Time  `db:"created_at"`
}

func (r *disputeRow) toEntity() *entity.Dispute {
	d := &entity.Dispute{
		ID:                  r.ID,
		BookingID:           r.BookingID,
		OpenedByUserID:      r.OpenedByUserID,
		OpenedByRole:        valueobject.Role(r.OpenedByRole),
		Reason:              r.Reason,
		Evidence:            r.Evidence,
		Status:              valueobject.DisputeStatus(r.Status),
		ResponseText:        r.ResponseText,
		ResponseSubmittedAt: r.ResponseSubmittedAt,
		ResponseDeadline:    r.ResponseDeadline,
		ResolutionDeadline:  r.ResolutionDeadline,
		ResolvedByUserID:    r.ResolvedByUserID,
		ResolutionNote:      r.ResolutionNote,
		ResolvedAt:          r.ResolvedAt,
		CreatedAt:           r.CreatedAt,
	}
	if r.Resolution != nil {
		res := valueobject.DisputeResolution(*r.Resolution)
		d.Resolution = &res
	}
	return d
}
