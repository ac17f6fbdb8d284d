package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUsageCounter_MonthRollover(t *testing.T) {
	u := NewUsageCounter(uuid.New(), testNow)
	for i := 0; i < 5; i++ {
		u.Consume(CounterCreatorsMessaged, testNow)
	}
	assert.Equal(t, int64(5), u.Effective(CounterCreatorsMessaged, testNow))

	sameMonth := time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, int64(5), u.Effective(CounterCreatorsMessaged, sameMonth))

	nextMonth := time.Date(2026, time.April, 1, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, int64(0), u.Effective(CounterCreatorsMessaged, nextMonth))
	// чтение без записи не трогает сохранённое значение
	assert.Equal(t, int64(5), u.CreatorsMessagedThisMonth)

	assert.Equal(t, int64(1), u.Consume(CounterCreatorsMessaged, nextMonth))
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), u.MessagesResetAt)
}

func TestUsageCounter_DayRollover(t *testing.T) {
	u := NewUsageCounter(uuid.New(), testNow)
	u.Consume(CounterMassMessages, testNow)
	u.Consume(CounterMassMessages, testNow)

	assert.Equal(t, int64(2), u.Effective(CounterMassMessages, testNow.Add(time.Hour)))
	assert.Equal(t, int64(0), u.Effective(CounterMassMessages, testNow.Add(24*time.Hour)))
	assert.Equal(t, int64(0), u.Effective(CounterCreatorsMessaged, testNow))
}

func TestUsageCounter_YearRollover(t *testing.T) {
	dec := time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC)
	u := NewUsageCounter(uuid.New(), dec)
	u.Consume(CounterCreatorsMessaged, dec)

	jan := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(0), u.Effective(CounterCreatorsMessaged, jan))
}
