package postgres

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	appcfg "fourfat_bot/internal/config"
	"fourfat_bot/internal/engine"
	"fourfat_bot/internal/storage"
	"fourfat_bot/pkg/db"
)

// Module отдаёт архив истории. Без DSN — no-op вместо соединения:
// бот должен уметь бегать и без базы.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *appcfg.Config) (engine.Archive, error) {
				if cfg.DB == "" {
					return storage.Nop{}, nil
				}

				ctx := context.Background()
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}
				if err = poolMaster.Ping(ctx); err != nil {
					return nil, err
				}

				manager := db.NewPgTxManager(poolMaster)
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						manager.Close()
						return nil
					},
				})
				return storage.New(manager), nil
			},
		),
	)
}
