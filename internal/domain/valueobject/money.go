package valueobject

import (
	"fmt"

	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

// Money хранит сумму в минимальных единицах валюты (центы, копейки).
type Money int64

func NewMoney(amount int64) (Money, error) {
	if amount < 0 {
		return 0, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	return Money(amount), nil
}

func (m Money) Int64() int64 {
	return int64(m)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

const basisPointsTotal = 10_000

// DefaultPlatformFeeBPS - комиссия платформы по умолчанию, 10%.
const DefaultPlatformFeeBPS = 1_000

// FeeSchedule - фиксированная шкала комиссии в базисных пунктах от total_price.
type FeeSchedule struct {
	BPS int64
}

func NewFeeSchedule(bps int64) (FeeSchedule, error) {
	if bps < 0 || bps > basisPointsTotal {
		return FeeSchedule{}, apperror.New(apperror.ErrCodeValidation, "комиссия должна быть в диапазоне 0..10000 б.п.")
	}
	return FeeSchedule{BPS: bps}, nil
}

// PlatformFee округляет комиссию до ближайшей минимальной единицы (half-up).
func (f FeeSchedule) PlatformFee(total Money) Money {
	if total <= 0 {
		return 0
	}
	return Money((int64(total)*f.BPS + basisPointsTotal/2) / basisPointsTotal)
}

func (f FeeSchedule) CreatorEarnings(total Money) Money {
	if total <= 0 {
		return 0
	}
	return total - f.PlatformFee(total)
}
