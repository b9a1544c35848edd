package models

// Contract — дескриптор инструмента для шлюза (мы торгуем только акции в USD).
type Contract struct {
	Symbol   string `json:"symbol"`
	SecType  string `json:"secType"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

// NewStockContract собирает контракт для symbolName (биржа SMART, валюта USD).
func NewStockContract(symbolName string) Contract {
	return Contract{
		Symbol:   symbolName,
		SecType:  "STK",
		Exchange: "SMART",
		Currency: "USD",
	}
}

// Symbol — вся мутабельная стейт-машина по одному тикеру.
// Пишут в него только движок (через свои мьютексы); снаружи читать можно
// только после возврата барьера.
type Symbol struct {
	Name     string
	ID       int64
	Contract Contract

	// срез 4FAT по истории
	Collected4Fat  *FourFat
	MaxValueOf4Fat float64
	MinValueOf4Fat float64

	// поля первой свечи торгового дня
	FirstValue    float64
	FirstVolume   float64
	FirstDiff     float64 // пробой вверх: high - open
	FirstDownDiff float64 // пробой вниз: open - low
	FirstClose    float64
	FirstMax      float64
	FirstMin      float64

	// состояние владения/намерений, ведёт OrderLifecycleManager
	IntentionToBuy   bool
	IntentionToShort bool
	IsOwned          bool
	ShortMode        bool

	BuyingPrice  float64
	BuyingCap    float64
	SellingPrice float64
	SellingCap   float64
}

func NewSymbol(name string, id int64) *Symbol {
	return &Symbol{
		Name:     name,
		ID:       id,
		Contract: NewStockContract(name),
	}
}

// CalcProfit — отношение выручки к затратам, nil пока сделка не закрыта.
func (s *Symbol) CalcProfit() (float64, bool) {
	if s.BuyingCap == 0 || s.SellingCap == 0 {
		return 0, false
	}
	// для шорта формула та же: продали дорого, откупили дёшево
	return s.SellingCap / s.BuyingCap, true
}
