package models

// Bar — одна OHLCV свеча, как её отдаёт шлюз.
// Timestamp в формате "20060102 15:04:05" — строка сортируется лексикографически,
// поэтому её можно использовать как ключ хронологии.
type Bar struct {
	Timestamp string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// UpDiff — ход от открытия до хая: размер пробоя вверх. Стоп от входа
// на хае отступает ровно на эту величину, то есть на open свечи.
func (b Bar) UpDiff() float64 { return b.High - b.Open }

// DownDiff — зеркальный ход вниз, от открытия до лоу.
func (b Bar) DownDiff() float64 { return b.Open - b.Low }
