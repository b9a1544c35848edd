package engine

import (
	"context"

	"go.uber.org/fx"

	"fourfat_bot/pkg/logger"
)

// Module — движок как fx-модуль: прогон стартует с приложением и,
// завершившись, гасит процесс через Shutdowner (бот одноразовый).
func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(NewEngine),
		fx.Invoke(run),
	)
}

func run(lc fx.Lifecycle, e *Engine, sd fx.Shutdowner) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := e.Run(runCtx); err != nil && runCtx.Err() == nil {
					logger.Error("run failed: %v", err)
				}
				_ = sd.Shutdown()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
