package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	appcfg "fourfat_bot/internal/config"
	"fourfat_bot/internal/engine"
	"fourfat_bot/internal/export"
	gwservice "fourfat_bot/internal/modules/gateway/service"
	"fourfat_bot/internal/notify"
	"fourfat_bot/internal/storage"
	"fourfat_bot/pkg/clock"
	"fourfat_bot/pkg/logger"
)

// Реплей-утилита: прогоняет стратегию по последним N торговым дням
// через тот же шлюз, но без живых ордеров. Сценарий — yaml-файл:
//
//	symbols: [BABA, MSFT]
//	days_back: 5
//	lookback_days: 3
//	enable_short: true

const defaultScenarioName = "replay.yaml"

func main() {
	logger.SetServiceName("fourfat_replay")
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	cfg, err := loadScenario()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := gwservice.NewClient(cfg)
	e := engine.NewEngine(cfg, gw, notify.Stdout{}, storage.Nop{}, export.NewCSV(cfg.ExportDir), clock.Real{})
	gw.SetSink(e)

	gwCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go gw.Start(gwCtx)

	if err := e.Run(ctx); err != nil {
		log.Fatal(err)
	}
	for _, r := range e.Results() {
		log.Printf("%s eligible=%v short=%v buy=%.4f sell=%.4f ratio=%.4f",
			r.Symbol, r.Eligible, r.Short, r.BuyPrice, r.SellPrice, r.ProfitRatio)
	}
}

// loadScenario — базовый конфиг из env, поверх — yaml-сценарий viper'ом.
func loadScenario() (*appcfg.Config, error) {
	cfg, err := appcfg.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load base config")
	}
	cfg.Mode = "historical"

	name := defaultScenarioName
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	if _, err := os.Stat(name); err != nil {
		// сценария нет — бежим на env-дефолтах
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(name)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", name)
	}
	if v.IsSet("symbols") {
		cfg.Symbols = v.GetStringSlice("symbols")
	}
	if v.IsSet("days_back") {
		cfg.DaysBack = v.GetInt("days_back")
	}
	if v.IsSet("lookback_days") {
		cfg.LookbackDays = v.GetInt("lookback_days")
	}
	if v.IsSet("enable_short") {
		cfg.EnableShort = v.GetBool("enable_short")
	}
	if v.IsSet("big_candle_usd") {
		cfg.BigCandleUSD = v.GetFloat64("big_candle_usd")
	}
	if v.IsSet("small_candle_usd") {
		cfg.SmallCandleUSD = v.GetFloat64("small_candle_usd")
	}
	if len(cfg.Symbols) == 0 {
		return nil, errors.New("scenario has no symbols")
	}
	return cfg, nil
}
