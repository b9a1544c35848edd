package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fourfat_bot/internal/models"
	"fourfat_bot/pkg/db"
)

// BarArchive складывает собранную историю и итоги прогонов в Postgres.
// Таблицы:
//
//	historical_bars(symbol, ts, open, high, low, close, volume)  pk(symbol, ts)
//	trade_results(run_id, symbol, eligible, short, buy_price, sell_price, profit_ratio, created_at)
type BarArchive struct {
	tx db.TxManager
}

func New(tx db.TxManager) *BarArchive {
	return &BarArchive{tx: tx}
}

const upsertBar = `
INSERT INTO historical_bars (symbol, ts, open, high, low, close, volume)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (symbol, ts) DO UPDATE
SET open = $3, high = $4, low = $5, close = $6, volume = $7`

func (a *BarArchive) SaveBars(ctx context.Context, runID, symbol string, bars []models.Bar) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("BarArchive.SaveBars: %w", err)
		}
	}()
	if len(bars) == 0 {
		return nil
	}
	return a.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		for _, b := range bars {
			if _, err := tx.Exec(ctxTx, upsertBar,
				symbol, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
				return err
			}
		}
		return nil
	})
}

const insertResult = `
INSERT INTO trade_results (run_id, symbol, eligible, short, buy_price, sell_price, profit_ratio, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())`

func (a *BarArchive) SaveResult(ctx context.Context, res models.TradeResult) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("BarArchive.SaveResult: %w", err)
		}
	}()
	return a.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertResult,
			res.RunID, res.Symbol, res.Eligible, res.Short, res.BuyPrice, res.SellPrice, res.ProfitRatio)
		return err
	})
}

// Nop — архив без базы: DSN не задан, история живёт только в памяти прогона.
type Nop struct{}

func (Nop) SaveBars(context.Context, string, string, []models.Bar) error { return nil }
func (Nop) SaveResult(context.Context, models.TradeResult) error         { return nil }
