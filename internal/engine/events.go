package engine

import (
	"context"

	"fourfat_bot/internal/models"
	healthsvc "fourfat_bot/internal/modules/health/service"
	"fourfat_bot/pkg/logger"
)

// Sink-методы движка: их зовёт единственный фоновый поток доставки
// шлюза, строго последовательно. Управляющий поток сюда не заходит.

// OnBar — историческая свеча. Первая свеча запроса снимает тикет
// с барьера и освобождает слот; маппинг остаётся жить для хвоста.
func (e *Engine) OnBar(id int64, bar models.Bar) {
	symbol, purpose, ok := e.rt.Resolve(id)
	if !ok {
		healthsvc.IncUnknownIDs()
		logger.Error("[SINK] bar with unknown request id=%d ts=%s", id, bar.Timestamp)
		return
	}
	if purpose != models.PurposeHistoricalBars {
		logger.Error("[SINK] bar on non-historical ticket id=%d purpose=%s", id, purpose)
		return
	}
	if dup := e.bars.Ingest(symbol, bar); dup {
		healthsvc.IncDuplicateBars()
	} else {
		healthsvc.IncBarsIngested()
	}
	healthsvc.TouchLastBar(e.clk.Now())

	e.rt.MarkSatisfied(id)
	e.adm.Release(id)
	healthsvc.SetOutstanding(e.rt.Outstanding())
}

// OnBarsDone — шлюз закончил отдавать свечи по запросу. Обычно тикет уже
// снят первой свечой; пустой ответ (праздник) снимается здесь.
func (e *Engine) OnBarsDone(id int64) {
	if _, _, ok := e.rt.Resolve(id); !ok {
		healthsvc.IncUnknownIDs()
		return
	}
	e.rt.MarkSatisfied(id)
	e.adm.Release(id)
	healthsvc.SetOutstanding(e.rt.Outstanding())
}

// OnOrderStatus — статус ордера. Нетерминальные игнорируем: стейт-машине
// интересны только филл и отмена.
func (e *Engine) OnOrderStatus(ev models.OrderStatusEvent) {
	if !ev.State.Terminal() {
		return
	}
	symbol, purpose, ok := e.rt.Resolve(ev.OrderID)
	if !ok {
		healthsvc.IncUnknownIDs()
		logger.Error("[SINK] order status with unknown id=%d state=%s", ev.OrderID, ev.State)
		return
	}
	sym, ok := e.symIndex[symbol]
	if !ok {
		logger.Error("[SINK] order id=%d resolved to unknown symbol %q", ev.OrderID, symbol)
		return
	}
	// отмена сестринских ног не должна умереть вместе с ctx прогона
	e.book.OnOrderStatus(context.Background(), sym, purpose, ev)
	healthsvc.SetOutstanding(e.rt.Outstanding())
}

// OnNextValidID — сид id-последовательности от сессии шлюза.
// Счётчик только поднимается: вниз от базы не уходим.
func (e *Engine) OnNextValidID(id int64) {
	e.seq.Bump(id)
	e.readyOnce.Do(func() { close(e.ready) })
}
