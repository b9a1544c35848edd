package market

import (
	"fmt"
	"time"
)

// Календарь — внешний коллаборатор движка: даёт end-datetime'ы для
// исторических запросов. Праздники сюда не зашиты, по умолчанию торговый
// день = не выходной; кастомный IsTradingDay можно подставить снаружи.

const (
	DayLayout   = "20060102"
	StampLayout = "20060102 15:04:05"
)

type Calendar struct {
	IsTradingDay func(t time.Time) bool
}

func NewCalendar() Calendar {
	return Calendar{IsTradingDay: weekday}
}

func weekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (c Calendar) prevTradingDay(t time.Time) time.Time {
	for {
		t = t.AddDate(0, 0, -1)
		if c.IsTradingDay(t) {
			return t
		}
	}
}

// LastTradingDays — n последних торговых дней, начиная с from (откат назад,
// from включается, если сам торговый).
func (c Calendar) LastTradingDays(from time.Time, n int) []string {
	days := make([]string, 0, n)
	t := from
	if !c.IsTradingDay(t) {
		t = c.prevTradingDay(t)
	}
	for len(days) < n {
		days = append(days, t.Format(DayLayout))
		t = c.prevTradingDay(t)
	}
	return days
}

// EndOfDayStamp — конец биржевого дня в формате шлюза.
func EndOfDayStamp(day string) string {
	return day + " 23:00:00"
}

// EndDateTimes — готовые end-datetime'ы для n дней истории.
func (c Calendar) EndDateTimes(from time.Time, n int) []string {
	days := c.LastTradingDays(from, n)
	stamps := make([]string, 0, len(days))
	for _, d := range days {
		stamps = append(stamps, EndOfDayStamp(d))
	}
	return stamps
}

// TimeOfDay — секунда дня в "HH:MM:SS" (59580 -> "16:33:00").
func TimeOfDay(sec int) string {
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Stamp — день + секунда дня в формате шлюза.
func Stamp(day time.Time, sec int) string {
	return day.Format(DayLayout) + " " + TimeOfDay(sec)
}
