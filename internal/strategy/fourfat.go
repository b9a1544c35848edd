package strategy

import (
	"math"

	"fourfat_bot/internal/config"
	"fourfat_bot/internal/models"
)

// Чистые функции над упорядоченной серией свечей. Никакого shared state:
// всё, что здесь считается, движок кладёт в Symbol сам.

const (
	longWindow     = 200
	shortWindow    = 20
	shortMaxWindow = 6
)

// Sentinel возвращается на пустой серии: сравнение "value > Sentinel"
// никогда не истинно, поэтому символ без данных не проходит на вход.
func Sentinel() float64 { return math.Inf(1) }

func tail(series []models.Bar, n int) []models.Bar {
	if len(series) > n {
		return series[len(series)-n:]
	}
	return series
}

func meanClose(series []models.Bar) float64 {
	if len(series) == 0 {
		return Sentinel()
	}
	var sum float64
	for _, b := range series {
		sum += b.Close
	}
	return sum / float64(len(series))
}

// LongAverage — средний close последних 200 свечей (или всех, если меньше).
func LongAverage(series []models.Bar) float64 {
	return meanClose(tail(series, longWindow))
}

// ShortAverage — средний close последних 20 свечей.
func ShortAverage(series []models.Bar) float64 {
	return meanClose(tail(series, shortWindow))
}

// ShortMax — максимум close последних 6 свечей.
func ShortMax(series []models.Bar) float64 {
	t := tail(series, shortMaxWindow)
	if len(t) == 0 {
		return Sentinel()
	}
	m := t[0].Close
	for _, b := range t[1:] {
		if b.Close > m {
			m = b.Close
		}
	}
	return m
}

// LastClose — close последней свечи серии.
func LastClose(series []models.Bar) float64 {
	if len(series) == 0 {
		return Sentinel()
	}
	return series[len(series)-1].Close
}

// Snapshot собирает срез 4FAT по серии.
func Snapshot(series []models.Bar) models.FourFat {
	return models.FourFat{
		LongAvg:   LongAverage(series),
		ShortAvg:  ShortAverage(series),
		ShortMax:  ShortMax(series),
		LastClose: LastClose(series),
	}
}

// Thresholds — параметры правила "свеча достаточно большая".
// В истории проекта жили две пары констант (2.0/1.5 и 2.0/1.0),
// поэтому пороги конфигурируемые.
type Thresholds struct {
	BigCandleUSD   float64
	SmallCandleUSD float64
	CheapPriceUSD  float64
	AvgDistanceMax float64
	UseAvgDistance bool
}

func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	return Thresholds{
		BigCandleUSD:   cfg.BigCandleUSD,
		SmallCandleUSD: cfg.SmallCandleUSD,
		CheapPriceUSD:  cfg.CheapPriceUSD,
		AvgDistanceMax: cfg.AvgDistanceMax,
		UseAvgDistance: cfg.UseAvgDistance,
	}
}

// CandleLargeEnough: тело свечи минимум BigCandleUSD, либо бумага дешевле
// CheapPriceUSD и тело хотя бы SmallCandleUSD.
func (t Thresholds) CandleLargeEnough(diff, value float64) bool {
	return diff > t.BigCandleUSD || (diff > t.SmallCandleUSD && value < t.CheapPriceUSD)
}

// AboveFourFat — пробой верхнего порога 4FAT.
func AboveFourFat(value, maxSnapshot float64) bool { return value > maxSnapshot }

func (t Thresholds) avgDistanceOK(s *models.Symbol) bool {
	if !t.UseAvgDistance {
		return true
	}
	if s.Collected4Fat == nil {
		return false
	}
	return math.Abs(s.Collected4Fat.ShortAvg-s.FirstClose) < t.AvgDistanceMax
}

// EligibleToBuy — все проверки на вход в long. Вызывать только после того,
// как заполнены First*-поля символа.
func EligibleToBuy(t Thresholds, s *models.Symbol) bool {
	return AboveFourFat(s.FirstValue, s.MaxValueOf4Fat) &&
		t.CandleLargeEnough(s.FirstDiff, s.FirstValue) &&
		t.avgDistanceOK(s)
}

// EligibleToShort — зеркало: пробой нижнего порога вниз, свеча большая вниз.
func EligibleToShort(t Thresholds, s *models.Symbol) bool {
	return s.FirstValue < s.MinValueOf4Fat &&
		t.CandleLargeEnough(s.FirstDownDiff, s.FirstValue) &&
		t.avgDistanceOK(s)
}

// ExitLevels — уровни защитных ног брекета от цены фактического филла.
// long:  stop = fill - diff, limit = fill + 2*diff
// short: stop = fill + diff, limit = fill - 2*diff
func ExitLevels(fill, diff float64, short bool) (stop, limit float64) {
	d := math.Abs(diff)
	if short {
		return fill + d, fill - 2*d
	}
	return fill - d, fill + 2*d
}
