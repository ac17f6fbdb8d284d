package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
)

const usageColumns = `brand_profile_id, creators_messaged_this_month, messages_reset_at,
	mass_messages_today, mass_reset_at, version`

type UsageRepository struct {
	q sqlx.ExtContext
}

// GetForUpdate создаёт строку счётчика при первом обращении и блокирует её до конца транзакции.
func (r *UsageRepository) GetForUpdate(ctx context.Context, brandID uuid.UUID, now time.Time) (*entity.UsageCounter, error) {
	fresh := entity.NewUsageCounter(brandID, now)
	_, err := r.q.ExecContext(ctx, `INSERT INTO usage_counters (`+usageColumns+`)
		VALUES ($1, 0, $2, 0, $3, 0) ON CONFLICT (brand_profile_id) DO NOTHING`,
		brandID, fresh.MessagesResetAt, fresh.MassResetAt,
	)
	if err != nil {
		return nil, dbError(err, "не удалось создать счётчик использования")
	}
	return r.get(ctx, `SELECT `+usageColumns+` FROM usage_counters WHERE brand_profile_id = $1 FOR UPDATE`, brandID)
}

func (r *UsageRepository) Get(ctx context.Context, brandID uuid.UUID) (*entity.UsageCounter, error) {
	return r.get(ctx, `SELECT `+usageColumns+` FROM usage_counters WHERE brand_profile_id = $1`, brandID)
}

func (r *UsageRepository) get(ctx context.Context, query string, brandID uuid.UUID) (*entity.UsageCounter, error) {
	var row usageRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, brandID); err != nil {
		return nil, dbError(err, "не удалось получить счётчик использования")
	}
	return &entity.UsageCounter{
		BrandProfileID:            row.BrandProfileID,
		CreatorsMessagedThisMonth: row.CreatorsMessaged,
		MessagesResetAt:           row.MessagesResetAt.UTC(),
		MassMessagesToday:         row.MassMessages,
		MassResetAt:               row.MassResetAt.UTC(),
		Version:                   row.Version,
	}, nil
}

func (r *UsageRepository) Save(ctx context.Context, u *entity.UsageCounter) error {
	query := `UPDATE usage_counters SET
		creators_messaged_this_month = $3, messages_reset_at = $4,
		mass_messages_today = $5, mass_reset_at = $6, version = version + 1
		WHERE brand_profile_id = $1 AND version = $2`
	res, err := r.q.ExecContext(ctx, query,
		u.BrandProfileID, u.Version,
		u.CreatorsMessagedThisMonth, u.MessagesResetAt, u.MassMessagesToday, u.MassResetAt,
	)
	if err != nil {
		return dbError(err, "не удалось сохранить счётчик использования")
	}
	if err := checkAffected(res, "не удалось сохранить счётчик использования"); err != nil {
		return err
	}
	u.Version++
	return nil
}

type usageRow struct {
	BrandProfileID   uuid.UUID `db:"brand_profile_id"`
	CreatorsMessaged int64     `db:"creators_messaged_this_month"`
	MessagesResetAt  time.Time `db:"messages_reset_at"`
	MassMessages     int64     `db:"mass_messages_today"`
	MassResetAt      time.Time `db:"mass_reset_at"`
	Version          int64     `db:"version"`
}
