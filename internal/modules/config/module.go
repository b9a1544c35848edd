package config

import (
	"os"

	appcfg "fourfat_bot/internal/config"

	"go.uber.org/fx"
	"gopkg.in/yaml.v2"
)

const configFilePathENV = "CONFIG_FILE"

// NewConfig читает env (+.env), затем поверх накатывает yaml-файл, если задан.
// Порядок такой, чтобы файл был источником правды для деплоя, а env — для отладки.
func NewConfig() (*appcfg.Config, error) {
	cfg, err := appcfg.Load()
	if err != nil {
		return nil, err
	}

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		return cfg, nil
	}

	file, err := os.Open(configFileName)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
	)
}
