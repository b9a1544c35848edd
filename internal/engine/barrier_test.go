package engine

import (
	"context"
	"testing"
	"time"

	"fourfat_bot/internal/models"
	"fourfat_bot/internal/notify"
	"fourfat_bot/pkg/clock"
)

func newTestBarrier(rt *Router, adm *Admission, timeout time.Duration) (*Barrier, *OrderBook) {
	book := NewOrderBook(&fakeGateway{}, NewSequence(1000), rt, notify.Stdout{}, clock.Real{}, 1)
	return NewBarrier(rt, book, adm, clock.Real{}, time.Millisecond, 5*time.Millisecond, timeout), book
}

func TestBarrierWaitsForOutstanding(t *testing.T) {
	rt := NewRouter()
	adm := NewAdmission(10)
	b, _ := newTestBarrier(rt, adm, time.Minute)

	rt.Register(1, "BABA", models.PurposeHistoricalBars, time.Now())
	go func() {
		time.Sleep(20 * time.Millisecond)
		rt.MarkSatisfied(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.AwaitNoOutstandingRequests(ctx); err != nil {
		t.Fatalf("barrier: %v", err)
	}
}

func TestBarrierAbandonsStaleTickets(t *testing.T) {
	rt := NewRouter()
	adm := NewAdmission(10)
	b, _ := newTestBarrier(rt, adm, 10*time.Millisecond)

	id := int64(7)
	if err := adm.Submit(context.Background(), id); err != nil {
		t.Fatalf("submit: %v", err)
	}
	rt.Register(id, "BABA", models.PurposeHistoricalBars, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.AwaitNoOutstandingRequests(ctx); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if got := adm.InFlight(); got != 0 {
		t.Fatalf("abandoned ticket kept its slot: in flight = %d", got)
	}
}

func TestBarrierWaitsForFlatPositions(t *testing.T) {
	rt := NewRouter()
	adm := NewAdmission(10)
	b, book := newTestBarrier(rt, adm, time.Minute)

	sym := testSymbol()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := book.PlaceEntry(ctx, sym, false); err != nil {
		t.Fatalf("place entry: %v", err)
	}
	entryID := book.pos[sym.Name].entryID
	go func() {
		time.Sleep(20 * time.Millisecond)
		book.OnOrderStatus(ctx, sym, models.PurposeEntryOrder, models.OrderStatusEvent{
			OrderID: entryID, State: models.StateCancelled,
		})
	}()

	if err := b.AwaitNoOpenPositionsOrIntents(ctx, []*models.Symbol{sym}); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if !book.Flat([]*models.Symbol{sym}) {
		t.Fatalf("returned while not flat")
	}
}

func TestBarrierContextCancelled(t *testing.T) {
	rt := NewRouter()
	adm := NewAdmission(10)
	b, _ := newTestBarrier(rt, adm, time.Minute)

	rt.Register(1, "BABA", models.PurposeHistoricalBars, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.AwaitNoOutstandingRequests(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
