package models

// RunMode — как гоняем прогон: против живого шлюза или реплей по истории.
type RunMode string

const (
	ModeLive       RunMode = "live"
	ModeHistorical RunMode = "historical"
)

// TradeResult — итоговая запись по символу для отчёта в конце прогона.
type TradeResult struct {
	RunID       string
	Symbol      string
	Eligible    bool
	Short       bool
	BuyPrice    float64
	SellPrice   float64
	ProfitRatio float64
}
