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
	"github.com/ignatzorin/collab-backend/internal/entitlement"
)

const subscriptionColumns = `id, brand_profile_id, plan_type, status, current_period_end, created_at, updated_at`

// SubscriptionRepository. Одна активная строка на бренд обеспечивается частичным уникальным индексом.
type SubscriptionRepository struct {
	q sqlx.ExtContext
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *entity.Subscription) error {
	query := `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.ExecContext(ctx, query,
		s.ID, s.BrandProfileID, string(s.PlanType), string(s.Status), s.CurrentPeriodEnd, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось создать подписку")
	}
	return nil
}

func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, s *entity.Subscription) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = $3 WHERE id = $1`,
		s.ID, string(s.Status), s.UpdatedAt,
	)
	if err != nil {
		return dbError(err, "не удалось обновить подписку")
	}
	err = checkAffected(res, "не удалось обновить подписку")
	if errors.Is(err, repository.ErrStaleVersion) {
		return repository.ErrNotFound
	}
	return err
}

func (r *SubscriptionRepository) FindActive(ctx context.Context, brandID uuid.UUID) (*entity.Subscription, error) {
	return r.findActive(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE brand_profile_id = $1 AND status = 'active'`, brandID)
}

func (r *SubscriptionRepository) FindActiveForUpdate(ctx context.Context, brandID uuid.UUID) (*entity.Subscription, error) {
	return r.findActive(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE brand_profile_id = $1 AND status = 'active' FOR UPDATE`, brandID)
}

func (r *SubscriptionRepository) findActive(ctx context.Context, query string, brandID uuid.UUID) (*entity.Subscription, error) {
	var row subscriptionRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, brandID); err != nil {
		err = dbError(err, "не удалось получить подписку")
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toEntity(), nil
}

func (r *SubscriptionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	var row subscriptionRow
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.q, &row, query, id); err != nil {
		return nil, dbError(err, "не удалось получить подписку")
	}
	return row.toEntity(), nil
}

func (r *SubscriptionRepository) ListActivePaid(ctx context.Context) ([]*entity.Subscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = 'active' AND plan_type <> 'none' ORDER BY current_period_end`)
}

func (r *SubscriptionRepository) ListExpiredBetween(ctx context.Context, from, to time.Time) ([]*entity.Subscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = 'expired' AND current_period_end >= $1 AND current_period_end < $2`, from, to)
}

func (r *SubscriptionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Subscription, error) {
	var rows []subscriptionRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, dbError(err, "не удалось получить подписки")
	}
	result := make([]*entity.Subscription, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

type subscriptionRow struct {
	ID               uuid.UUID `db:"id"`
	BrandProfileID   uuid.UUID `db:"brand_profile_id"`
	PlanType         string    `db:"plan_type"`
	Status           string    `db:"status"`
	CurrentPeriodEnd time.Time `db:"current_period_end"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r *subscriptionRow) toEntity() *entity.Subscription {
	return &entity.Subscription{
		ID:               r.ID,
		BrandProfileID:   r.BrandProfileID,
		PlanType:         entitlement.ParsePlan(r.PlanType),
		Status:           valueobject.SubscriptionStatus(r.Status),
		CurrentPeriodEnd: r.CurrentPeriodEnd.UTC(),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
