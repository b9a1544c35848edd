package strategy

import (
	"strings"

	"fourfat_bot/internal/models"
)

// Реплей одного торгового дня: что дал бы брекет, если бы вход случился
// на пробое первой свечи. Чистая функция, живых ордеров здесь нет.

// DayBars отбирает свечи конкретного дня (префикс "YYYYMMDD" в timestamp).
func DayBars(series []models.Bar, day string) []models.Bar {
	out := make([]models.Bar, 0, len(series))
	for _, b := range series {
		if strings.HasPrefix(b.Timestamp, day) {
			out = append(out, b)
		}
	}
	return out
}

// SimulateOutcome идёт по свечам дня после первой и ищет, какой уровень
// коснулись раньше — stop или limit. Если до конца дня ни один не тронут,
// возвращает fallback (закрытие по MOC оцениваем ценой входа).
func SimulateOutcome(rest []models.Bar, stop, limit float64, short bool, fallback float64) float64 {
	for _, b := range rest {
		lo := min3(b.Close, b.High, b.Low)
		hi := max3(b.Close, b.High, b.Low)
		if short {
			// для шорта стоп сверху, цель снизу
			if hi > stop {
				return stop
			}
			if lo < limit {
				return limit
			}
			continue
		}
		if lo < stop {
			return stop
		}
		if hi > limit {
			return limit
		}
	}
	return fallback
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
