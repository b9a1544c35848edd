package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"

	"fourfat_bot/internal/config"
	"fourfat_bot/internal/market"
	"fourfat_bot/internal/models"
	healthsvc "fourfat_bot/internal/modules/health/service"
	"fourfat_bot/internal/notify"
	"fourfat_bot/internal/strategy"
	"fourfat_bot/pkg/clock"
	"fourfat_bot/pkg/logger"
)

// Gateway — всё, что движку нужно от TWS-моста. Реализация живёт в
// internal/modules/gateway/service, в тестах — фейк.
type Gateway interface {
	RequestHistoricalBars(ctx context.Context, reqID int64, c models.Contract, endDateTime string, durationSec, barSeconds int) error
	PlaceOrder(ctx context.Context, orderID int64, c models.Contract, side models.Side, kind models.OrderKind, price, qty float64) error
	CancelOrder(ctx context.Context, orderID int64) error
}

// Archive — куда складываем собранную историю и итоги прогона.
type Archive interface {
	SaveBars(ctx context.Context, runID, symbol string, bars []models.Bar) error
	SaveResult(ctx context.Context, res models.TradeResult) error
}

// Exporter — CSV-выгрузка собранных свечей.
type Exporter interface {
	WriteBars(symbol string, days int, day string, bars []models.Bar) error
}

// Engine — оркестратор прогона: собрать историю, посчитать 4FAT,
// отторговать (или отреплеить) день, дождаться плоского состояния, отчитаться.
// Управляющий поток один; конкурентность приходит только из фоновой
// доставки событий шлюза (см. events.go).
type Engine struct {
	cfg      *config.Config
	th       strategy.Thresholds
	gw       Gateway
	clk      clock.Clock
	cal      market.Calendar
	n        notify.Notifier
	archive  Archive
	exporter Exporter

	seq     *Sequence
	adm     *Admission
	rt      *Router
	bars    *BarBook
	book    *OrderBook
	barrier *Barrier

	symbols  []*models.Symbol
	symIndex map[string]*models.Symbol
	runID    string
	results  []models.TradeResult

	ready     chan struct{}
	readyOnce sync.Once
	requested int64
}

func NewEngine(cfg *config.Config, gw Gateway, n notify.Notifier, archive Archive, exporter Exporter, clk clock.Clock) *Engine {
	seq := NewSequence(cfg.BaseRequestID)
	rt := NewRouter()
	adm := NewAdmission(cfg.MaxOpenRequests)
	book := NewOrderBook(gw, seq, rt, n, clk, cfg.OrderQty)
	e := &Engine{
		cfg:      cfg,
		th:       strategy.ThresholdsFromConfig(cfg),
		gw:       gw,
		clk:      clk,
		cal:      market.NewCalendar(),
		n:        n,
		archive:  archive,
		exporter: exporter,
		seq:      seq,
		adm:      adm,
		rt:       rt,
		bars:     NewBarBook(),
		book:     book,
		barrier:  NewBarrier(rt, book, adm, clk, cfg.BarrierPoll, cfg.BarrierDebounce, cfg.RequestTimeout),
		symIndex: make(map[string]*models.Symbol),
		runID:    uuid.NewString(),
		ready:    make(chan struct{}),
	}
	for i, name := range cfg.Symbols {
		s := models.NewSymbol(name, int64(i+1))
		e.symbols = append(e.symbols, s)
		e.symIndex[name] = s
	}
	return e
}

// Run — один полный прогон. Возврат означает, что все запросы закрыты
// и ни по одному символу нет ни позиции, ни намерения.
func (e *Engine) Run(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "run")
	defer span.Finish()
	span.SetTag("run_id", e.runID)
	span.SetTag("mode", e.cfg.Mode)

	if err := e.awaitSession(ctx); err != nil {
		return err
	}
	healthsvc.SetReady(true)
	defer healthsvc.SetReady(false)

	log.Printf("[RUN] %s mode=%s symbols=%v", e.runID, e.cfg.Mode, e.cfg.Symbols)

	if err := e.collectHistory(ctx); err != nil {
		return fmt.Errorf("collect history: %w", err)
	}

	var err error
	if models.RunMode(e.cfg.Mode) == models.ModeLive {
		e.analyze()
		err = e.tradeDay(ctx)
	} else {
		err = e.replay(ctx)
	}
	if err != nil {
		return err
	}

	e.report(ctx)
	return nil
}

// awaitSession ждёт nextValidId от шлюза: до него нельзя раздавать id.
func (e *Engine) awaitSession(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clk.After(30 * time.Second):
		return fmt.Errorf("gateway session not ready")
	}
}

// collectHistory рассылает исторические запросы по всем символам и дням,
// затем ждёт обнуления барьера запросов.
func (e *Engine) collectHistory(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "collect")
	defer span.Finish()

	days := e.cfg.LookbackDays
	from := e.clk.Now().AddDate(0, 0, -1)
	if models.RunMode(e.cfg.Mode) == models.ModeHistorical {
		// реплею нужны и сами проигрываемые дни
		days += e.cfg.DaysBack
		from = e.clk.Now()
	}
	stamps := e.cal.EndDateTimes(from, days)

	for _, s := range e.symbols {
		for _, stamp := range stamps {
			if err := e.fetchBars(ctx, s, stamp, e.cfg.FetchSeconds()); err != nil {
				return err
			}
		}
	}
	if err := e.barrier.AwaitNoOutstandingRequests(ctx); err != nil {
		return err
	}
	healthsvc.SetOutstanding(e.rt.Outstanding())

	for _, s := range e.symbols {
		series := e.bars.OrderedSeries(s.Name)
		log.Printf("[COLLECT] %s: %d bars over %d days", s.Name, len(series), days)
		if e.archive != nil {
			if err := e.archive.SaveBars(ctx, e.runID, s.Name, series); err != nil {
				logger.Error("[COLLECT] archive %s: %v", s.Name, err)
			}
		}
		if e.exporter != nil && len(series) > 0 {
			day := series[len(series)-1].Timestamp[:len(market.DayLayout)]
			if err := e.exporter.WriteBars(s.Name, days, day, series); err != nil {
				logger.Error("[COLLECT] export %s: %v", s.Name, err)
			}
		}
	}
	return nil
}

// fetchBars — один исторический запрос: слот, тикет, отправка.
// Каждый N-й запрос — пауза, демо-шлюз душит частые исторические запросы.
func (e *Engine) fetchBars(ctx context.Context, sym *models.Symbol, endDateTime string, durationSec int) error {
	id := e.seq.Next()
	if err := e.adm.Submit(ctx, id); err != nil {
		return err
	}
	e.rt.Register(id, sym.Name, models.PurposeHistoricalBars, e.clk.Now())
	healthsvc.SetOutstanding(e.rt.Outstanding())

	if err := e.gw.RequestHistoricalBars(ctx, id, sym.Contract, endDateTime, durationSec, e.cfg.CandleSeconds); err != nil {
		e.rt.Unregister(id)
		e.adm.Release(id)
		return fmt.Errorf("request bars %s %s: %w", sym.Name, endDateTime, err)
	}

	e.requested++
	if e.cfg.CollectPauseEvery > 0 && e.requested%int64(e.cfg.CollectPauseEvery) == 0 {
		log.Printf("[COLLECT] pacing pause %s after %d requests", e.cfg.CollectPause, e.requested)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clk.After(e.cfg.CollectPause):
		}
	}
	return nil
}

// analyze фиксирует срез 4FAT по каждому символу. После этой точки
// пороги Max/Min не меняются до конца прогона.
func (e *Engine) analyze() {
	for _, s := range e.symbols {
		snap := strategy.Snapshot(e.bars.OrderedSeries(s.Name))
		s.Collected4Fat = &snap
		s.MaxValueOf4Fat = snap.Max()
		s.MinValueOf4Fat = snap.Min()
		log.Printf("[4FAT] %s: 200avg=%.4f 20avg=%.4f 6max=%.4f close=%.4f -> max=%.4f min=%.4f",
			s.Name, snap.LongAvg, snap.ShortAvg, snap.ShortMax, snap.LastClose,
			s.MaxValueOf4Fat, s.MinValueOf4Fat)
	}
}

// tradeDay — живой торговый день: дождаться конца первой свечи, забрать её,
// выставить входы по проходным символам и ждать плоского состояния.
func (e *Engine) tradeDay(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "trade")
	defer span.Finish()

	openingEnd := e.cfg.AnalysisSeconds + (e.cfg.OpeningCandles-1)*e.cfg.CandleSeconds
	if err := e.waitUntil(ctx, openingEnd); err != nil {
		return err
	}

	today := e.clk.Now()
	stamp := market.Stamp(today, openingEnd)
	for _, s := range e.symbols {
		if err := e.fetchBars(ctx, s, stamp, e.cfg.OpeningCandles*e.cfg.CandleSeconds); err != nil {
			return err
		}
	}
	if err := e.barrier.AwaitNoOutstandingRequests(ctx); err != nil {
		return err
	}

	for _, s := range e.symbols {
		opening, err := e.bars.Latest(s.Name)
		if err != nil {
			logger.Error("[TRADE] %s: no opening bar, skipping: %v", s.Name, err)
			continue
		}
		e.applyOpeningBar(s, opening)
		e.tryEnter(ctx, s)
	}

	if err := e.barrier.AwaitNoOpenPositionsOrIntents(ctx, e.symbols); err != nil {
		return err
	}
	e.collectResults()
	return nil
}

// applyOpeningBar заполняет First*-поля символа из первой свечи дня.
func (e *Engine) applyOpeningBar(s *models.Symbol, bar models.Bar) {
	s.FirstValue = bar.Close
	if e.cfg.FirstValueSource == "open" {
		s.FirstValue = bar.Open
	}
	s.FirstVolume = bar.Volume
	s.FirstDiff = bar.UpDiff()
	s.FirstDownDiff = bar.DownDiff()
	s.FirstClose = bar.Close
	s.FirstMax = bar.High
	s.FirstMin = bar.Low
}

// tryEnter оценивает сигнал и выставляет вход. Long имеет приоритет:
// одновременно оба направления пройти не могут (Max >= Min).
func (e *Engine) tryEnter(ctx context.Context, s *models.Symbol) {
	switch {
	case strategy.EligibleToBuy(e.th, s):
		log.Printf("[TRADE] %s eligible to buy: value=%.4f > max=%.4f diff=%.4f",
			s.Name, s.FirstValue, s.MaxValueOf4Fat, s.FirstDiff)
		if err := e.book.PlaceEntry(ctx, s, false); err != nil {
			logger.Error("[TRADE] %s: %v", s.Name, err)
		}
	case e.cfg.EnableShort && strategy.EligibleToShort(e.th, s):
		log.Printf("[TRADE] %s eligible to short: value=%.4f < min=%.4f diff=%.4f",
			s.Name, s.FirstValue, s.MinValueOf4Fat, s.FirstDownDiff)
		if err := e.book.PlaceEntry(ctx, s, true); err != nil {
			logger.Error("[TRADE] %s: %v", s.Name, err)
		}
	default:
		log.Printf("[TRADE] %s not eligible: value=%.4f max=%.4f min=%.4f diff=%.4f",
			s.Name, s.FirstValue, s.MaxValueOf4Fat, s.MinValueOf4Fat, s.FirstDiff)
	}
}

// waitUntil спит до заданной секунды сегодняшнего дня. Если она уже прошла,
// не ждём — работаем по фактическим данным.
func (e *Engine) waitUntil(ctx context.Context, daySecond int) error {
	now := e.clk.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	target := midnight.Add(time.Duration(daySecond) * time.Second)
	wait := target.Sub(now)
	if wait <= 0 {
		return nil
	}
	log.Printf("[TRADE] waiting %s until %s", wait.Round(time.Second), market.TimeOfDay(daySecond))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clk.After(wait):
		return nil
	}
}

// replay проигрывает последние DaysBack торговых дней по уже собранной
// истории: срез 4FAT считается только по свечам строго до дня, вход
// моделируется по пробою первой свечи.
func (e *Engine) replay(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "replay")
	defer span.Finish()

	days := e.cal.LastTradingDays(e.clk.Now(), e.cfg.DaysBack)
	for _, s := range e.symbols {
		series := e.bars.OrderedSeries(s.Name)
		for _, day := range days {
			e.replayDay(s, series, day)
		}
	}
	return nil
}

func (e *Engine) replayDay(s *models.Symbol, series []models.Bar, day string) {
	dayBars := strategy.DayBars(series, day)
	if len(dayBars) == 0 {
		log.Printf("[REPLAY] %s %s: no bars", s.Name, day)
		return
	}
	before := barsBefore(series, day)
	snap := strategy.Snapshot(before)
	s.Collected4Fat = &snap
	s.MaxValueOf4Fat = snap.Max()
	s.MinValueOf4Fat = snap.Min()
	e.applyOpeningBar(s, dayBars[0])

	res := models.TradeResult{RunID: e.runID, Symbol: s.Name}
	short := false
	switch {
	case strategy.EligibleToBuy(e.th, s):
		res.Eligible = true
	case e.cfg.EnableShort && strategy.EligibleToShort(e.th, s):
		res.Eligible = true
		res.Short = true
		short = true
	}
	if !res.Eligible {
		log.Printf("[REPLAY] %s %s: not eligible (value=%.4f max=%.4f min=%.4f)",
			s.Name, day, s.FirstValue, s.MaxValueOf4Fat, s.MinValueOf4Fat)
		e.results = append(e.results, res)
		return
	}

	entry := s.FirstMax
	diff := s.FirstDiff
	if short {
		entry = s.FirstMin
		diff = s.FirstDownDiff
	}
	stop, limit := strategy.ExitLevels(entry, diff, short)
	exit := strategy.SimulateOutcome(dayBars[1:], stop, limit, short, entry)
	if short {
		res.SellPrice = entry
		res.BuyPrice = exit
	} else {
		res.BuyPrice = entry
		res.SellPrice = exit
	}
	if res.BuyPrice != 0 {
		res.ProfitRatio = res.SellPrice / res.BuyPrice
	}
	log.Printf("[REPLAY] %s %s: entry=%.4f stop=%.4f limit=%.4f exit=%.4f ratio=%.4f",
		s.Name, day, entry, stop, limit, exit, res.ProfitRatio)
	e.results = append(e.results, res)
}

// barsBefore — часть серии строго раньше дня (timestamp лексикографичен).
func barsBefore(series []models.Bar, day string) []models.Bar {
	out := make([]models.Bar, 0, len(series))
	for _, b := range series {
		if b.Timestamp < day {
			out = append(out, b)
		}
	}
	return out
}

// collectResults снимает итог живого дня с символов после барьера позиций.
func (e *Engine) collectResults() {
	for _, s := range e.symbols {
		res := models.TradeResult{
			RunID:    e.runID,
			Symbol:   s.Name,
			Eligible: s.BuyingPrice != 0 || s.SellingPrice != 0,
			Short:    s.ShortMode,
			BuyPrice: s.BuyingPrice,
		}
		res.SellPrice = s.SellingPrice
		if ratio, ok := s.CalcProfit(); ok {
			res.ProfitRatio = ratio
		}
		e.results = append(e.results, res)
	}
}

// report — финальный отчёт: лог, нотификация, архив.
func (e *Engine) report(ctx context.Context) {
	for _, r := range e.results {
		if !r.Eligible {
			continue
		}
		log.Printf("[REPORT] %s: buy=%.4f sell=%.4f ratio=%.4f short=%v",
			r.Symbol, r.BuyPrice, r.SellPrice, r.ProfitRatio, r.Short)
		e.n.Sendf("📊 [%s] buy=%.4f sell=%.4f ratio=%.4f", r.Symbol, r.BuyPrice, r.SellPrice, r.ProfitRatio)
		if e.archive != nil {
			if err := e.archive.SaveResult(ctx, r); err != nil {
				logger.Error("[REPORT] archive %s: %v", r.Symbol, err)
			}
		}
	}
}

// Results — итоги прогона (читать после Run).
func (e *Engine) Results() []models.TradeResult { return e.results }

// Book — доступ к стейт-машине ордеров (для тестов).
func (e *Engine) Book() *OrderBook { return e.book }
