package engine

import (
	"errors"
	"math/rand"
	"testing"

	"fourfat_bot/internal/models"
)

func TestBarBookOrderIndependence(t *testing.T) {
	bars := []models.Bar{
		{Timestamp: "20240101 09:30:00", Close: 1},
		{Timestamp: "20240101 09:35:00", Close: 2},
		{Timestamp: "20240101 09:40:00", Close: 3},
		{Timestamp: "20240102 09:30:00", Close: 4},
		{Timestamp: "20240102 09:35:00", Close: 5},
	}

	for run := 0; run < 10; run++ {
		b := NewBarBook()
		perm := rand.Perm(len(bars))
		for _, i := range perm {
			b.Ingest("BABA", bars[i])
		}
		series := b.OrderedSeries("BABA")
		if len(series) != len(bars) {
			t.Fatalf("series len = %d, want %d", len(series), len(bars))
		}
		for i, bar := range series {
			if bar.Timestamp != bars[i].Timestamp {
				t.Fatalf("perm %v: series[%d] = %s, want %s", perm, i, bar.Timestamp, bars[i].Timestamp)
			}
		}
	}
}

func TestBarBookOutOfOrderDays(t *testing.T) {
	b := NewBarBook()
	b.Ingest("MSFT", models.Bar{Timestamp: "20240102 09:30:00"})
	b.Ingest("MSFT", models.Bar{Timestamp: "20240101 09:30:00"})

	series := b.OrderedSeries("MSFT")
	if series[0].Timestamp[:8] != "20240101" || series[1].Timestamp[:8] != "20240102" {
		t.Fatalf("series order = [%s, %s]", series[0].Timestamp, series[1].Timestamp)
	}
}

func TestBarBookDuplicateIngest(t *testing.T) {
	b := NewBarBook()
	if dup := b.Ingest("BABA", models.Bar{Timestamp: "20240101 09:30:00", Close: 1}); dup {
		t.Fatalf("first ingest reported duplicate")
	}
	// повторная доставка перезаписывает свечу
	if dup := b.Ingest("BABA", models.Bar{Timestamp: "20240101 09:30:00", Close: 9}); !dup {
		t.Fatalf("second ingest not reported as duplicate")
	}
	if got := b.Count("BABA"); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
	if series := b.OrderedSeries("BABA"); series[0].Close != 9 {
		t.Fatalf("close = %v, want overwritten 9", series[0].Close)
	}
}

func TestBarBookLatest(t *testing.T) {
	b := NewBarBook()
	if _, err := b.Latest("NONE"); !errors.Is(err, ErrEmptySeries) {
		t.Fatalf("latest on empty = %v, want ErrEmptySeries", err)
	}

	b.Ingest("BABA", models.Bar{Timestamp: "20240102 09:30:00", Close: 4})
	b.Ingest("BABA", models.Bar{Timestamp: "20240101 16:00:00", Close: 2})
	last, err := b.Latest("BABA")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if last.Timestamp != "20240102 09:30:00" {
		t.Fatalf("latest = %s", last.Timestamp)
	}
}
