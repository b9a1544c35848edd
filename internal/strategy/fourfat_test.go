package strategy

import (
	"math"
	"testing"

	"fourfat_bot/internal/models"
)

func mkSeries(closes ...float64) []models.Bar {
	bars := make([]models.Bar, 0, len(closes))
	for _, c := range closes {
		bars = append(bars, models.Bar{Close: c})
	}
	return bars
}

func TestEmptySeriesSentinels(t *testing.T) {
	var series []models.Bar
	for name, got := range map[string]float64{
		"longAverage":  LongAverage(series),
		"shortAverage": ShortAverage(series),
		"shortMax":     ShortMax(series),
		"lastClose":    LastClose(series),
	} {
		if !math.IsInf(got, 1) {
			t.Fatalf("%s on empty series = %v, want +Inf", name, got)
		}
	}

	// символ без данных не проходит на вход ни в одну сторону
	snap := Snapshot(series)
	s := &models.Symbol{FirstValue: 100, FirstDiff: 10, FirstDownDiff: 10}
	s.MaxValueOf4Fat = snap.Max()
	s.MinValueOf4Fat = snap.Min()
	if !math.IsInf(s.MaxValueOf4Fat, 1) {
		t.Fatalf("max threshold on empty series = %v, want +Inf", s.MaxValueOf4Fat)
	}
	if !math.IsInf(s.MinValueOf4Fat, -1) {
		t.Fatalf("min threshold on empty series = %v, want -Inf", s.MinValueOf4Fat)
	}
	th := Thresholds{BigCandleUSD: 2, SmallCandleUSD: 1.5, CheapPriceUSD: 100}
	if EligibleToBuy(th, s) {
		t.Fatalf("eligible to buy with empty history")
	}
	if EligibleToShort(th, s) {
		t.Fatalf("eligible to short with empty history")
	}
}

func TestWindowedMetrics(t *testing.T) {
	// 25 свечей: close 1..25
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	series := mkSeries(closes...)

	if got := LongAverage(series); got != 13 {
		t.Fatalf("longAverage = %v, want 13 (mean of all 25)", got)
	}
	if got := ShortAverage(series); got != 15.5 {
		t.Fatalf("shortAverage = %v, want 15.5 (mean of 6..25)", got)
	}
	if got := ShortMax(series); got != 25 {
		t.Fatalf("shortMax = %v, want 25", got)
	}
	if got := LastClose(series); got != 25 {
		t.Fatalf("lastClose = %v, want 25", got)
	}

	snap := Snapshot(series)
	if snap.Max() != 25 || snap.Min() != 13 {
		t.Fatalf("snapshot max/min = %v/%v", snap.Max(), snap.Min())
	}
}

func TestCandleLargeEnough(t *testing.T) {
	th := Thresholds{BigCandleUSD: 2, SmallCandleUSD: 1.5, CheapPriceUSD: 100}
	cases := []struct {
		name  string
		diff  float64
		value float64
		want  bool
	}{
		{"big candle", 2.5, 500, true},
		{"exactly at threshold", 2, 500, false},
		{"small candle cheap stock", 1.6, 50, true},
		{"small candle expensive stock", 1.6, 150, false},
		{"tiny candle", 1.0, 50, false},
	}
	for _, tc := range cases {
		if got := th.CandleLargeEnough(tc.diff, tc.value); got != tc.want {
			t.Errorf("%s: CandleLargeEnough(%v, %v) = %v, want %v", tc.name, tc.diff, tc.value, got, tc.want)
		}
	}
}

// опорный сценарий: свеча {close:10, open:8, high:11, low:7} против среза с max 9
func TestBreakoutScenario(t *testing.T) {
	bar := models.Bar{Open: 8, High: 11, Low: 7, Close: 10}
	s := &models.Symbol{
		FirstValue:     bar.Close,
		FirstDiff:      bar.UpDiff(),
		FirstDownDiff:  bar.DownDiff(),
		FirstClose:     bar.Close,
		FirstMax:       bar.High,
		FirstMin:       bar.Low,
		MaxValueOf4Fat: 9,
		MinValueOf4Fat: 9,
	}
	th := Thresholds{BigCandleUSD: 2, SmallCandleUSD: 1.5, CheapPriceUSD: 100}

	if s.FirstDiff != 3 {
		t.Fatalf("up diff = %v, want 3", s.FirstDiff)
	}
	if !EligibleToBuy(th, s) {
		t.Fatalf("breakout bar not eligible to buy")
	}

	stop, limit := ExitLevels(11, s.FirstDiff, false)
	if stop != 8 || limit != 17 {
		t.Fatalf("exit levels = (%v, %v), want (8, 17)", stop, limit)
	}
}

func TestShortMirror(t *testing.T) {
	// свеча вниз: open 12, low 9, close 9.5 — пробой вниз 3
	bar := models.Bar{Open: 12, High: 12.5, Low: 9, Close: 9.5}
	s := &models.Symbol{
		FirstValue:     bar.Close,
		FirstDiff:      bar.UpDiff(),
		FirstDownDiff:  bar.DownDiff(),
		FirstClose:     bar.Close,
		FirstMax:       bar.High,
		FirstMin:       bar.Low,
		MaxValueOf4Fat: 20,
		MinValueOf4Fat: 10,
	}
	th := Thresholds{BigCandleUSD: 2, SmallCandleUSD: 1.5, CheapPriceUSD: 100}

	if EligibleToBuy(th, s) {
		t.Fatalf("down bar eligible to buy")
	}
	if !EligibleToShort(th, s) {
		t.Fatalf("down bar not eligible to short")
	}

	stop, limit := ExitLevels(9, s.FirstDownDiff, true)
	if stop != 12 || limit != 3 {
		t.Fatalf("short exit levels = (%v, %v), want (12, 3)", stop, limit)
	}
}

func TestAvgDistanceFilter(t *testing.T) {
	snap := models.FourFat{LongAvg: 10, ShortAvg: 10, ShortMax: 10, LastClose: 10}
	s := &models.Symbol{
		Collected4Fat:  &snap,
		FirstValue:     20,
		FirstDiff:      3,
		FirstClose:     20,
		MaxValueOf4Fat: 10,
	}
	th := Thresholds{BigCandleUSD: 2, SmallCandleUSD: 1.5, CheapPriceUSD: 100, AvgDistanceMax: 5, UseAvgDistance: true}

	// |10 - 20| = 10 >= 5 — фильтр отсекает
	if EligibleToBuy(th, s) {
		t.Fatalf("avg distance filter did not apply")
	}
	th.UseAvgDistance = false
	if !EligibleToBuy(th, s) {
		t.Fatalf("not eligible with filter disabled")
	}
}
