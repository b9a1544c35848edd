package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Прогон
	Mode     string   `yaml:"mode"`    // live | historical
	Symbols  []string `yaml:"symbols"` // .env: SYMBOLS="BABA,MSFT"
	DaysBack int      `yaml:"days_back"`
	DemoMode bool     `yaml:"demo_mode"` // демо-порт шлюза + paper-аккаунт

	// Шлюз (TWS-мост)
	GatewayHost     string `yaml:"gateway_host"`
	GatewayPort     int    `yaml:"gateway_port"` // 0 => выбираем по DemoMode: 7497/7496
	GatewayClientID int    `yaml:"gateway_client_id"`

	// Сбор истории
	MaxOpenRequests   int           `yaml:"max_open_requests"`   // .env: MAX_OPEN_REQUESTS (50)
	BaseRequestID     int64         `yaml:"base_request_id"`     // счётчик id начинается выше этой базы
	CandleSeconds     int           `yaml:"candle_seconds"`      // 300 = 5m свечи
	CandlesInDay      int           `yaml:"candles_in_day"`      // 78 пятиминуток в торговом дне
	LookbackDays      int           `yaml:"lookback_days"`       // сколько дней истории под 4FAT
	RequestTimeout    time.Duration `yaml:"request_timeout"`     // тикет без ответа бросаем
	CollectPauseEvery int           `yaml:"collect_pause_every"` // каждые N запросов пауза (rate limit шлюза)
	CollectPause      time.Duration `yaml:"collect_pause"`

	// Торговый день
	AnalysisSeconds int     `yaml:"analysis_seconds"` // секунда дня конца первой свечи (59580 = "16:33:00"+2m)
	OpeningCandles  int     `yaml:"opening_candles"`  // сколько свечей ждём с открытия
	OrderQty        float64 `yaml:"order_qty"`

	// Пороги сигнала (две исторические пары порогов, поэтому конфиг, не константы)
	BigCandleUSD     float64 `yaml:"big_candle_usd"`   // diff выше — свеча "большая"
	SmallCandleUSD   float64 `yaml:"small_candle_usd"` // порог для дешёвых бумаг
	CheapPriceUSD    float64 `yaml:"cheap_price_usd"`
	AvgDistanceMax   float64 `yaml:"avg_distance_max"` // |20avg - close| < N
	UseAvgDistance   bool    `yaml:"use_avg_distance"`
	FirstValueSource string  `yaml:"first_value_source"` // close | open
	EnableShort      bool    `yaml:"enable_short"`

	// Барьеры
	BarrierPoll     time.Duration `yaml:"barrier_poll"`     // fallback-поллинг, <=300ms
	BarrierDebounce time.Duration `yaml:"barrier_debounce"` // повторная проверка перед выходом

	// Архив / экспорт
	DB        string `yaml:"db_dsn"` // пусто => без Postgres-архива
	ExportDir string `yaml:"export_dir"`

	// Сервисное
	HealthAddr string `yaml:"health_addr"`
	JaegerHost string `yaml:"jaeger_host"`
	JaegerPort int    `yaml:"jaeger_port"`

	// Telegram
	TelegramBotToken string `yaml:"telegram_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{
		Mode:              getenvDefault("MODE", "live"),
		Symbols:           splitList(getenvDefault("SYMBOLS", "BABA,MSFT")),
		DaysBack:          intFromEnv("DAYS_BACK", 1),
		DemoMode:          boolFromEnv("DEMO_MODE", true),
		GatewayHost:       getenvDefault("GATEWAY_HOST", "127.0.0.1"),
		GatewayPort:       intFromEnv("GATEWAY_PORT", 0),
		GatewayClientID:   intFromEnv("GATEWAY_CLIENT_ID", 2),
		MaxOpenRequests:   intFromEnv("MAX_OPEN_REQUESTS", 50),
		BaseRequestID:     int64(intFromEnv("BASE_REQUEST_ID", 1000)),
		CandleSeconds:     intFromEnv("CANDLE_SECONDS", 300),
		CandlesInDay:      intFromEnv("CANDLES_IN_DAY", 78),
		LookbackDays:      intFromEnv("LOOKBACK_DAYS", 3),
		RequestTimeout:    durationFromEnv("REQUEST_TIMEOUT", "60s"),
		CollectPauseEvery: intFromEnv("COLLECT_PAUSE_EVERY", 60),
		CollectPause:      durationFromEnv("COLLECT_PAUSE", "10m"),
		AnalysisSeconds:   intFromEnv("ANALYSIS_SECONDS", 59580),
		OpeningCandles:    intFromEnv("OPENING_CANDLES", 1),
		OrderQty:          floatFromEnv("ORDER_QTY", 1),
		BigCandleUSD:      floatFromEnv("BIG_CANDLE_USD", 2.0),
		SmallCandleUSD:    floatFromEnv("SMALL_CANDLE_USD", 1.5),
		CheapPriceUSD:     floatFromEnv("CHEAP_PRICE_USD", 100),
		AvgDistanceMax:    floatFromEnv("AVG_DISTANCE_MAX", 5),
		UseAvgDistance:    boolFromEnv("USE_AVG_DISTANCE", false),
		FirstValueSource:  getenvDefault("FIRST_VALUE_SOURCE", "close"),
		EnableShort:       boolFromEnv("ENABLE_SHORT", false),
		BarrierPoll:       durationFromEnv("BARRIER_POLL", "200ms"),
		BarrierDebounce:   durationFromEnv("BARRIER_DEBOUNCE", "250ms"),
		DB:                os.Getenv("DATABASE_DSN"),
		ExportDir:         getenvDefault("EXPORT_DIR", "."),
		HealthAddr:        getenvDefault("HEALTH_ADDR", ":8080"),
		JaegerHost:        getenvDefault("JAEGER_HOST", ""),
		JaegerPort:        intFromEnv("JAEGER_PORT", 6831),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}

	if cfg.Mode != "live" && cfg.Mode != "historical" {
		return nil, fmt.Errorf("MODE must be live or historical, got %q", cfg.Mode)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("SYMBOLS is empty")
	}
	if cfg.FirstValueSource != "close" && cfg.FirstValueSource != "open" {
		return nil, fmt.Errorf("FIRST_VALUE_SOURCE must be close or open")
	}
	if !cfg.DemoMode && cfg.DaysBack != 1 {
		// на живом аккаунте анализируем только сегодняшний день
		cfg.DaysBack = 1
	}
	return cfg, nil
}

// Port — порт шлюза с учётом demo-режима (7497 paper / 7496 live).
func (c *Config) Port() int {
	if c.GatewayPort != 0 {
		return c.GatewayPort
	}
	if c.DemoMode {
		return 7497
	}
	return 7496
}

// FetchSeconds — длительность одного исторического запроса.
func (c *Config) FetchSeconds() int {
	return (c.CandlesInDay - 1) * c.CandleSeconds
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(strings.ToUpper(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
