package config

import "testing"

func TestPortSelection(t *testing.T) {
	demo := &Config{DemoMode: true}
	if got := demo.Port(); got != 7497 {
		t.Fatalf("demo port = %d, want 7497", got)
	}
	live := &Config{DemoMode: false}
	if got := live.Port(); got != 7496 {
		t.Fatalf("live port = %d, want 7496", got)
	}
	explicit := &Config{DemoMode: true, GatewayPort: 9001}
	if got := explicit.Port(); got != 9001 {
		t.Fatalf("explicit port = %d, want 9001", got)
	}
}

func TestFetchSeconds(t *testing.T) {
	cfg := &Config{CandlesInDay: 78, CandleSeconds: 300}
	if got := cfg.FetchSeconds(); got != 23100 {
		t.Fatalf("fetch seconds = %d, want 23100", got)
	}
}

func TestLoadDefaultsAndValidation(t *testing.T) {
	t.Setenv("SYMBOLS", "baba, msft ,")
	t.Setenv("MODE", "live")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "BABA" || cfg.Symbols[1] != "MSFT" {
		t.Fatalf("symbols = %v", cfg.Symbols)
	}
	if cfg.MaxOpenRequests != 50 || cfg.BaseRequestID != 1000 {
		t.Fatalf("defaults: maxOpen=%d base=%d", cfg.MaxOpenRequests, cfg.BaseRequestID)
	}

	t.Setenv("MODE", "paper")
	if _, err := Load(); err == nil {
		t.Fatalf("bogus mode accepted")
	}
}

func TestLiveAccountForcesSingleDay(t *testing.T) {
	t.Setenv("SYMBOLS", "BABA")
	t.Setenv("MODE", "live")
	t.Setenv("DEMO_MODE", "false")
	t.Setenv("DAYS_BACK", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DaysBack != 1 {
		t.Fatalf("days back = %d, want forced 1", cfg.DaysBack)
	}
}
