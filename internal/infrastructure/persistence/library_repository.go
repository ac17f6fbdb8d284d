package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
)

type LibraryRepository struct {
	q sqlx.ExtContext
}

func (r *LibraryRepository) Create(ctx context.Context, item *entity.LibraryItem) error {
	query := `INSERT INTO library_items (id, brand_profile_id, booking_id, file_name, mime_type, size_bytes, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.BrandProfileID, item.BookingID, item.FileName, item.MimeType, item.SizeBytes, item.StoragePath, item.CreatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось сохранить файл библиотеки")
	}
	return nil
}

func (r *LibraryRepository) UsedBytes(ctx context.Context, brandID uuid.UUID) (int64, error) {
	var used int64
	query := `SELECT COALESCE(SUM(size_bytes), 0) FROM library_items WHERE brand_profile_id = $1`
	if err := sqlx.GetContext(ctx, r.q, &used, query, brandID); err != nil {
		return 0, dbError(err, "не удалось посчитать объём библиотеки")
	}
	return used, nil
}

func (r *LibraryRepository) List(ctx context.Context, brandID uuid.UUID, limit, offset int) ([]*entity.LibraryItem, error) {
	var rows []libraryRow
	query := `SELECT id, brand_profile_id, booking_id, file_name, mime_type, size_bytes, storage_path, created_at
		FROM library_items WHERE brand_profile_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, brandID, limit, offset); err != nil {
		return nil, dbError(err, "не удалось получить библиотеку")
	}
	result := make([]*entity.LibraryItem, len(rows))
	for i, row := range rows {
		result[i] = &entity.LibraryItem{
			ID:             row.ID,
			BrandProfileID: row.BrandProfileID,
			BookingID:      row.BookingID,
			FileName:       row.FileName,
			MimeType:       row.MimeType,
			SizeBytes:      row.SizeBytes,
			StoragePath:    row.StoragePath,
			CreatedAt:      row.CreatedAt,
		}
	}
	return result, nil
}

type libraryRow struct {
	ID             uuid.UUID  `db:"id"`
	BrandProfileID uuid.UUID  `db:"brand_profile_id"`
	BookingID      *uuid.UUID `db:"booking_id"`
	FileName       string     `db:"file_name"`
	MimeType       string     `db:"mime_type"`
	SizeBytes      int64      `db:"size_bytes"`
	StoragePath    string     `db:"storage_path"`
	CreatedAt      time.Time  `db:"created_at"`
}
