package gateway

import (
	"context"

	"go.uber.org/fx"

	"fourfat_bot/internal/engine"
	"fourfat_bot/internal/modules/gateway/service"
)

// Module поднимает WebSocket-клиент TWS-моста и подключает движок
// как получателя событий до первого dial.
func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(
			service.NewClient,
			func(c *service.Client) engine.Gateway { return c },
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, e *engine.Engine) {
			c.SetSink(e)
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go c.Start(runCtx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
