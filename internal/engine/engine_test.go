package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"fourfat_bot/internal/config"
	"fourfat_bot/internal/market"
	"fourfat_bot/internal/models"
	"fourfat_bot/internal/notify"
	"fourfat_bot/pkg/clock"
)

// replayGateway отдаёт заготовленные свечи синхронно, прямо из
// RequestHistoricalBars — как будто фоновая доставка успела мгновенно.
type replayGateway struct {
	mu   sync.Mutex
	e    *Engine
	bars map[string][]models.Bar // день (YYYYMMDD) -> свечи
}

func (g *replayGateway) RequestHistoricalBars(ctx context.Context, reqID int64, c models.Contract, endDateTime string, durationSec, barSeconds int) error {
	g.mu.Lock()
	day := endDateTime[:len(market.DayLayout)]
	bars := g.bars[day]
	g.mu.Unlock()
	for _, b := range bars {
		g.e.OnBar(reqID, b)
	}
	g.e.OnBarsDone(reqID)
	return nil
}

func (g *replayGateway) PlaceOrder(ctx context.Context, orderID int64, c models.Contract, side models.Side, kind models.OrderKind, price, qty float64) error {
	return nil
}

func (g *replayGateway) CancelOrder(ctx context.Context, orderID int64) error { return nil }

func replayConfig() *config.Config {
	return &config.Config{
		Mode:             "historical",
		Symbols:          []string{"BABA"},
		DaysBack:         1,
		LookbackDays:     1,
		MaxOpenRequests:  4,
		BaseRequestID:    1000,
		CandleSeconds:    300,
		CandlesInDay:     2,
		RequestTimeout:   time.Second,
		OrderQty:         1,
		BigCandleUSD:     2,
		SmallCandleUSD:   1.5,
		CheapPriceUSD:    100,
		FirstValueSource: "close",
		BarrierPoll:      time.Millisecond,
	}
}

func TestEngineHistoricalRun(t *testing.T) {
	cfg := replayConfig()
	cal := market.NewCalendar()
	days := cal.LastTradingDays(time.Now(), 2)
	replayDay, histDay := days[0], days[1]

	gw := &replayGateway{bars: map[string][]models.Bar{
		histDay: {
			{Timestamp: histDay + " 16:35:00", Open: 9, High: 9.5, Low: 8.5, Close: 9},
			{Timestamp: histDay + " 16:40:00", Open: 9, High: 9, Low: 7.5, Close: 8},
		},
		replayDay: {
			// первая свеча дня: value 10 > max 9, пробой вверх 3 > 2
			{Timestamp: replayDay + " 16:35:00", Open: 8, High: 11, Low: 7, Close: 10},
			// дальше день достаёт до цели 17 раньше, чем до стопа 8
			{Timestamp: replayDay + " 16:40:00", Open: 10, High: 18, Low: 9.5, Close: 16},
		},
	}}

	e := NewEngine(cfg, gw, notify.Stdout{}, nil, nil, clock.Real{})
	gw.e = e
	e.OnNextValidID(1200)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	results := e.Results()
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if !r.Eligible || r.Short {
		t.Fatalf("result flags = %+v", r)
	}
	if r.BuyPrice != 11 {
		t.Fatalf("buy = %v, want breakout 11", r.BuyPrice)
	}
	if r.SellPrice != 17 {
		t.Fatalf("sell = %v, want take-profit 17", r.SellPrice)
	}
	if got, want := r.ProfitRatio, 17.0/11.0; got != want {
		t.Fatalf("ratio = %v, want %v", got, want)
	}
}

func TestEngineHistoricalRunNotEligible(t *testing.T) {
	cfg := replayConfig()
	cal := market.NewCalendar()
	days := cal.LastTradingDays(time.Now(), 2)
	replayDay, histDay := days[0], days[1]

	gw := &replayGateway{bars: map[string][]models.Bar{
		histDay: {
			{Timestamp: histDay + " 16:35:00", Open: 20, High: 21, Low: 19, Close: 20},
		},
		replayDay: {
			// value 10 ниже порога 20 — входа нет
			{Timestamp: replayDay + " 16:35:00", Open: 8, High: 11, Low: 7, Close: 10},
		},
	}}

	e := NewEngine(cfg, gw, notify.Stdout{}, nil, nil, clock.Real{})
	gw.e = e
	e.OnNextValidID(1200)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	results := e.Results()
	if len(results) != 1 || results[0].Eligible {
		t.Fatalf("results = %+v, want single non-eligible", results)
	}
}

func TestEngineUnknownCallbacksAreAbsorbed(t *testing.T) {
	cfg := replayConfig()
	e := NewEngine(cfg, &replayGateway{}, notify.Stdout{}, nil, nil, clock.Real{})

	// свеча и статус по никогда не выданным id — не паника и не мутация
	e.OnBar(555, models.Bar{Timestamp: "20240101 09:30:00", Close: 1})
	e.OnOrderStatus(models.OrderStatusEvent{OrderID: 556, State: models.StateFilled, AvgFillPrice: 3})

	if got := e.bars.Count("BABA"); got != 0 {
		t.Fatalf("unknown bar ingested: count = %d", got)
	}
	if e.symIndex["BABA"].IsOwned {
		t.Fatalf("unknown fill mutated symbol state")
	}
}

func TestEngineSessionSeedsSequence(t *testing.T) {
	cfg := replayConfig()
	e := NewEngine(cfg, &replayGateway{}, notify.Stdout{}, nil, nil, clock.Real{})

	e.OnNextValidID(5000)
	e.OnNextValidID(5000) // повторный nextValidId не ломает ready
	if got := e.seq.Next(); got != 5001 {
		t.Fatalf("id after seed = %d, want 5001", got)
	}

	select {
	case <-e.ready:
	default:
		t.Fatalf("ready not signalled")
	}
}
