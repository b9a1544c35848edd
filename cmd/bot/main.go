package main

import (
	"log"

	"go.uber.org/fx"

	appcfg "fourfat_bot/internal/config"
	"fourfat_bot/internal/engine"
	"fourfat_bot/internal/export"
	configmod "fourfat_bot/internal/modules/config"
	"fourfat_bot/internal/modules/gateway"
	"fourfat_bot/internal/modules/health"
	"fourfat_bot/internal/modules/postgres"
	"fourfat_bot/internal/notify"
	"fourfat_bot/pkg/clock"
	"fourfat_bot/pkg/logger"
	"fourfat_bot/pkg/tracing"
)

func main() {
	logger.SetServiceName("fourfat_bot")
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() clock.Clock { return clock.Real{} },
			// Notifier: если TELEGRAM_* нет — используем stdout
			func(cfg *appcfg.Config) notify.Notifier {
				if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID); err == nil && tg != nil {
						return tg
					}
				}
				return notify.Stdout{}
			},
			newExporter,
		),
		fx.Invoke(initTracing),
		configmod.Module(),
		postgres.Module(),
		health.Module(),
		engine.Module(),
		gateway.Module(),
	)
	app.Run()
}

func newExporter(cfg *appcfg.Config) engine.Exporter {
	return export.NewCSV(cfg.ExportDir)
}

func initTracing(lc fx.Lifecycle, cfg *appcfg.Config) error {
	if cfg.JaegerHost == "" {
		return nil
	}
	tracing.SetServiceName("fourfat_bot")
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.JaegerHost,
		Port: cfg.JaegerPort,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.StopHook(func() { closeTracer() }))
	return nil
}
