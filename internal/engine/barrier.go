package engine

import (
	"context"
	"time"

	"fourfat_bot/internal/models"
	"fourfat_bot/pkg/clock"
	"fourfat_bot/pkg/logger"
)

// Barrier блокирует управляющий поток, пока предикат над общим состоянием
// не станет истинным. Поллинг с шагом <=300ms: интервал всё равно нужен
// для уборки протухших тикетов.
type Barrier struct {
	rt  *Router
	ob  *OrderBook
	adm *Admission
	clk clock.Clock

	poll     time.Duration
	debounce time.Duration
	timeout  time.Duration // сколько живёт open-тикет без ответа
}

func NewBarrier(rt *Router, ob *OrderBook, adm *Admission, clk clock.Clock, poll, debounce, timeout time.Duration) *Barrier {
	if poll <= 0 || poll > 300*time.Millisecond {
		poll = 200 * time.Millisecond
	}
	return &Barrier{rt: rt, ob: ob, adm: adm, clk: clk, poll: poll, debounce: debounce, timeout: timeout}
}

func (b *Barrier) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.clk.After(d):
		return nil
	}
}

// AwaitNoOutstandingRequests ждёт, пока все тикеты не будут закрыты
// ответами либо брошены по таймауту.
func (b *Barrier) AwaitNoOutstandingRequests(ctx context.Context) error {
	for {
		if b.timeout > 0 {
			for _, id := range b.rt.ExpireBefore(b.clk.Now().Add(-b.timeout)) {
				b.adm.Release(id)
				logger.Error("[BARRIER] request %d abandoned after %s without reply", id, b.timeout)
			}
		}
		if b.rt.Outstanding() == 0 {
			return nil
		}
		if err := b.sleep(ctx, b.poll); err != nil {
			return err
		}
	}
}

// AwaitNoOpenPositionsOrIntents ждёт плоского состояния по всем символам.
// Дебаунс: перепроверяем после короткой паузы, чтобы не выскочить между
// «нога закрылась» и «прилетел хвостовой колбек».
func (b *Barrier) AwaitNoOpenPositionsOrIntents(ctx context.Context, symbols []*models.Symbol) error {
	for {
		if b.ob.Flat(symbols) {
			if b.debounce > 0 {
				if err := b.sleep(ctx, b.debounce); err != nil {
					return err
				}
				if !b.ob.Flat(symbols) {
					continue
				}
			}
			return nil
		}
		if err := b.sleep(ctx, b.poll); err != nil {
			return err
		}
	}
}
