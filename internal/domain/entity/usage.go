package entity

import (
	"time"

	"github.com/google/uuid"
)

type UsageCounterKind string

const (
	// Новые креаторы, которым бренд написал в этом месяце.
	CounterCreatorsMessaged UsageCounterKind = "creators_messaged"
	// Массовые рассылки за сутки.
	CounterMassMessages UsageCounterKind = "mass_messages"
)

// UsageCounter хранит значения счётчиков вместе с началом периода, к которому они относятся.
// Сброс происходит только при сравнении периода с текущим временем, внешний крон не нужен.
type UsageCounter struct {
	BrandProfileID            uuid.UUID
	CreatorsMessagedThisMonth int64
	MessagesResetAt           time.Time
	MassMessagesToday         int64
	MassResetAt               time.Time
	Version                   int64
}

func NewUsageCounter(brandID uuid.UUID, now time.Time) *UsageCounter {
	return &UsageCounter{
		BrandProfileID:  brandID,
		MessagesResetAt: monthStart(now),
		MassResetAt:     dayStart(now),
	}
}

// Effective возвращает значение счётчика с учётом смены периода, ничего не записывая.
func (u *UsageCounter) Effective(kind UsageCounterKind, now time.Time) int64 {
	switch kind {
	case CounterCreatorsMessaged:
		if monthStart(now).After(monthStart(u.MessagesResetAt)) {
			return 0
		}
		return u.CreatorsMessagedThisMonth
	case CounterMassMessages:
		if dayStart(now).After(dayStart(u.MassResetAt)) {
			return 0
		}
		return u.MassMessagesToday
	}
	return 0
}

// Consume увеличивает счётчик на единицу, сбрасывая его при смене периода.
func (u *UsageCounter) Consume(kind UsageCounterKind, now time.Time) int64 {
	used := u.Effective(kind, now) + 1
	switch kind {
	case CounterCreatorsMessaged:
		u.CreatorsMessagedThisMonth = used
		u.MessagesResetAt = monthStart(now)
	case CounterMassMessages:
		u.MassMessagesToday = used
		u.MassResetAt = dayStart(now)
	}
	return used
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
