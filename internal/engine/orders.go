package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"fourfat_bot/internal/models"
	healthsvc "fourfat_bot/internal/modules/health/service"
	"fourfat_bot/internal/notify"
	"fourfat_bot/internal/strategy"
	"fourfat_bot/pkg/clock"
	"fourfat_bot/pkg/logger"
)

// SymbolState — состояние стейт-машины ордеров по одному символу.
type SymbolState int

const (
	StateIdle SymbolState = iota
	StateEntryPending
	StateOwned
	StateExitPending
	StateShortEntryPending
	StateShortOwned
	StateShortExitPending
	StateClosed
)

func (s SymbolState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateEntryPending:
		return "EntryPending"
	case StateOwned:
		return "Owned"
	case StateExitPending:
		return "ExitPending"
	case StateShortEntryPending:
		return "ShortEntryPending"
	case StateShortOwned:
		return "ShortOwned"
	case StateShortExitPending:
		return "ShortExitPending"
	case StateClosed:
		return "Closed"
	}
	return "Unknown"
}

type position struct {
	state     SymbolState
	short     bool
	entrySide models.Side
	entryID   int64
	exitIDs   []int64 // stop, limit, MOC — что ещё не терминально
}

// ErrEntryNotIdle — попытка выставить второй вход, пока первый живой.
// Это программная ошибка вызывающего, а не состояние рынка.
var ErrEntryNotIdle = errors.New("entry already pending or position open")

// OrderBook — стейт-машина жизненного цикла ордеров: вход лимиткой на
// пробое, после филла — атомичный веер защитных ног (стоп, лимит, MOC),
// после любого exit-филла — отмена сестринских ног.
//
// Все мутации под одним мьютексом; сетевые вызовы шлюза — вне его,
// чтобы не стопорить фоновую доставку.
type OrderBook struct {
	mu  sync.Mutex
	gw  Gateway
	seq *Sequence
	rt  *Router
	n   notify.Notifier
	clk clock.Clock

	qty float64
	pos map[string]*position
}

func NewOrderBook(gw Gateway, seq *Sequence, rt *Router, n notify.Notifier, clk clock.Clock, qty float64) *OrderBook {
	return &OrderBook{
		gw:  gw,
		seq: seq,
		rt:  rt,
		n:   n,
		clk: clk,
		qty: qty,
		pos: make(map[string]*position),
	}
}

func (ob *OrderBook) position(name string) *position {
	p, ok := ob.pos[name]
	if !ok {
		p = &position{state: StateIdle}
		ob.pos[name] = p
	}
	return p
}

// State — текущее состояние символа (для тестов и отчёта).
func (ob *OrderBook) State(name string) SymbolState {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.position(name).state
}

// PlaceEntry выставляет вход: long — лимитка на хае первой свечи,
// short — на лоу. Второй вход поверх живого — громкая ошибка.
func (ob *OrderBook) PlaceEntry(ctx context.Context, sym *models.Symbol, short bool) error {
	price := sym.FirstMax
	side := models.SideBuy
	if short {
		price = sym.FirstMin
		side = models.SideSell
	}

	ob.mu.Lock()
	p := ob.position(sym.Name)
	if p.state != StateIdle {
		ob.mu.Unlock()
		logger.Error("[ORDERS] %s: entry rejected, state=%s", sym.Name, p.state)
		return fmt.Errorf("%s: %w (state=%s)", sym.Name, ErrEntryNotIdle, p.state)
	}
	id := ob.seq.Next()
	ob.rt.Register(id, sym.Name, models.PurposeEntryOrder, ob.clk.Now())
	p.entryID = id
	p.short = short
	p.entrySide = side
	if short {
		p.state = StateShortEntryPending
		sym.IntentionToShort = true
	} else {
		p.state = StateEntryPending
		sym.IntentionToBuy = true
	}
	ob.mu.Unlock()

	if err := ob.gw.PlaceOrder(ctx, id, sym.Contract, side, models.KindLimit, price, ob.qty); err != nil {
		ob.failEntry(sym, id, err)
		return fmt.Errorf("place entry %s: %w", sym.Name, err)
	}
	healthsvc.IncOrdersPlaced(string(side))
	log.Printf("[ORDERS] %s entry %s LMT @ %.4f (id=%d)", sym.Name, side, price, id)
	ob.n.Sendf("🟢 [%s] вход %s LMT @ %.4f (id=%d)", sym.Name, side, price, id)
	return nil
}

// failEntry откатывает состояние, если шлюз не принял входной ордер.
func (ob *OrderBook) failEntry(sym *models.Symbol, id int64, err error) {
	if errors.Is(err, models.ErrInvalidOrderKind) || errors.Is(err, models.ErrInvalidSide) {
		// дефект конструирования ноги, капиталом такое не проверяют
		logger.Fatal("[ORDERS] %s: bad entry leg: %v", sym.Name, err)
	}
	ob.mu.Lock()
	defer ob.mu.Unlock()
	p := ob.position(sym.Name)
	p.state = StateIdle
	p.entryID = 0
	sym.IntentionToBuy = false
	sym.IntentionToShort = false
	ob.rt.Unregister(id)
	logger.Error("[ORDERS] %s: entry not accepted: %v", sym.Name, err)
}

// OnOrderStatus — вклейка терминального статуса в стейт-машину.
// Вызывается из фонового потока доставки (через sink движка).
func (ob *OrderBook) OnOrderStatus(ctx context.Context, sym *models.Symbol, purpose models.Purpose, ev models.OrderStatusEvent) {
	switch purpose {
	case models.PurposeEntryOrder:
		ob.onEntryStatus(ctx, sym, ev)
	case models.PurposeExitOrder:
		ob.onExitStatus(ctx, sym, ev)
	default:
		logger.Error("[ORDERS] %s: order status with purpose=%s (id=%d)", sym.Name, purpose, ev.OrderID)
	}
}

func (ob *OrderBook) onEntryStatus(ctx context.Context, sym *models.Symbol, ev models.OrderStatusEvent) {
	if ev.State == models.StateCancelled {
		ob.mu.Lock()
		p := ob.position(sym.Name)
		if p.state == StateEntryPending || p.state == StateShortEntryPending {
			p.state = StateIdle
			p.entryID = 0
			sym.IntentionToBuy = false
			sym.IntentionToShort = false
		}
		ob.rt.Unregister(ev.OrderID)
		ob.mu.Unlock()
		log.Printf("[ORDERS] %s entry cancelled (id=%d)", sym.Name, ev.OrderID)
		return
	}
	if ev.State != models.StateFilled {
		return
	}

	ob.mu.Lock()
	p := ob.position(sym.Name)
	if p.state != StateEntryPending && p.state != StateShortEntryPending {
		// дубль терминального статуса — состояние уже ушло дальше
		ob.mu.Unlock()
		healthsvc.IncDuplicateFills()
		return
	}
	short := p.short
	fill := ev.AvgFillPrice
	notional := fill * ev.FilledQty
	if short {
		sym.IntentionToShort = false
		sym.ShortMode = true
		sym.SellingPrice = fill
		sym.SellingCap = notional
	} else {
		sym.IntentionToBuy = false
		sym.BuyingPrice = fill
		sym.BuyingCap = notional
	}
	sym.IsOwned = true
	p.state = StateOwned
	if short {
		p.state = StateShortOwned
	}
	ob.rt.Unregister(ev.OrderID)
	p.entryID = 0

	// веер защитных ног: регистрируем все три ДО отправки первой,
	// чтобы любой их филл уже резолвился
	diff := sym.FirstDiff
	if short {
		diff = sym.FirstDownDiff
	}
	stop, limit := strategy.ExitLevels(fill, diff, short)
	exitSide := p.entrySide.Opposite()
	legs := []struct {
		kind  models.OrderKind
		price float64
	}{
		{models.KindStop, stop},
		{models.KindLimit, limit},
		{models.KindMarketOnClose, 0},
	}
	ids := make([]int64, 0, len(legs))
	for range legs {
		id := ob.seq.Next()
		ob.rt.Register(id, sym.Name, models.PurposeExitOrder, ob.clk.Now())
		ids = append(ids, id)
	}
	p.exitIDs = append([]int64(nil), ids...)
	if short {
		p.state = StateShortExitPending
	} else {
		p.state = StateExitPending
	}
	ob.mu.Unlock()

	healthsvc.IncOrdersFilled()
	log.Printf("[ORDERS] %s entry filled @ %.4f, bracket stop=%.4f limit=%.4f", sym.Name, fill, stop, limit)
	ob.n.Sendf("✅ [%s] вход исполнен @ %.4f | STP=%.4f LMT=%.4f MOC", sym.Name, fill, stop, limit)

	for i, leg := range legs {
		if err := ob.gw.PlaceOrder(ctx, ids[i], sym.Contract, exitSide, leg.kind, leg.price, ev.FilledQty); err != nil {
			if errors.Is(err, models.ErrInvalidOrderKind) || errors.Is(err, models.ErrInvalidSide) {
				logger.Fatal("[ORDERS] %s: bad exit leg %s: %v", sym.Name, leg.kind, err)
			}
			// нога не встала — позиция под неполной защитой; уже
			// выставленные ноги остаются в exitIDs и будут отменяемы
			logger.Error("[ORDERS] %s: exit leg %s not accepted: %v", sym.Name, leg.kind, err)
			ob.n.Sendf("⚠️ [%s] защитная нога %s не встала: %v", sym.Name, leg.kind, err)
			ob.mu.Lock()
			p.exitIDs = removeID(p.exitIDs, ids[i])
			ob.rt.Unregister(ids[i])
			ob.mu.Unlock()
			continue
		}
		healthsvc.IncOrdersPlaced(string(exitSide))
	}
}

func (ob *OrderBook) onExitStatus(ctx context.Context, sym *models.Symbol, ev models.OrderStatusEvent) {
	if ev.State == models.StateCancelled {
		ob.mu.Lock()
		p := ob.position(sym.Name)
		p.exitIDs = removeID(p.exitIDs, ev.OrderID)
		ob.rt.Unregister(ev.OrderID)
		ob.mu.Unlock()
		return
	}
	if ev.State != models.StateFilled {
		return
	}

	ob.mu.Lock()
	p := ob.position(sym.Name)
	if p.state != StateExitPending && p.state != StateShortExitPending {
		// инвариант брекета: исполняется максимум одна нога,
		// повтор — уже Closed, молча глотаем
		ob.mu.Unlock()
		healthsvc.IncDuplicateFills()
		return
	}
	fill := ev.AvgFillPrice
	notional := fill * ev.FilledQty
	if p.short {
		sym.BuyingPrice = fill
		sym.BuyingCap = notional
	} else {
		sym.SellingPrice = fill
		sym.SellingCap = notional
	}
	sym.IsOwned = false
	p.state = StateClosed
	ob.rt.Unregister(ev.OrderID)
	siblings := removeID(p.exitIDs, ev.OrderID)
	p.exitIDs = nil
	ob.mu.Unlock()

	healthsvc.IncOrdersFilled()
	log.Printf("[ORDERS] %s exit filled @ %.4f, cancelling %d siblings", sym.Name, fill, len(siblings))
	ob.n.Sendf("🏁 [%s] выход исполнен @ %.4f", sym.Name, fill)

	// сестринские ноги отменяем best-effort: отмена уже терминального
	// ордера на шлюзе — no-op
	for _, id := range siblings {
		if err := ob.gw.CancelOrder(ctx, id); err != nil {
			logger.Error("[ORDERS] %s: cancel sibling %d: %v", sym.Name, id, err)
		}
		ob.rt.Unregister(id)
		healthsvc.IncOrdersCancelled()
	}
}

// Flat — нет ни владения, ни намерений ни по одному символу.
func (ob *OrderBook) Flat(symbols []*models.Symbol) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	for _, s := range symbols {
		if s.IsOwned || s.IntentionToBuy || s.IntentionToShort {
			return false
		}
	}
	return true
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
