package engine

import (
	"errors"
	"sort"
	"sync"

	"fourfat_bot/internal/models"
)

var ErrEmptySeries = errors.New("empty bar series")

// BarBook копит свечи, прилетающие из фонового потока доставки.
// Ключ (symbol, timestamp): повторная доставка той же свечи просто
// перезаписывает её, порядок доставки шлюз не гарантирует — хронологию
// даёт только OrderedSeries.
type BarBook struct {
	mu   sync.RWMutex
	bars map[string]map[string]models.Bar
}

func NewBarBook() *BarBook {
	return &BarBook{bars: make(map[string]map[string]models.Bar)}
}

// Ingest сохраняет свечу, возвращает true если такая уже была (дубль).
func (b *BarBook) Ingest(symbol string, bar models.Bar) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.bars[symbol]
	if !ok {
		m = make(map[string]models.Bar)
		b.bars[symbol] = m
	}
	_, dup := m[bar.Timestamp]
	m[bar.Timestamp] = bar
	return dup
}

// OrderedSeries — все свечи символа по возрастанию timestamp.
// Сортируем на каждый вызов: доставка идёт вразнобой, а вызовов мало.
func (b *BarBook) OrderedSeries(symbol string) []models.Bar {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := b.bars[symbol]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.Bar, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// Latest — хронологически последняя свеча символа.
func (b *BarBook) Latest(symbol string) (models.Bar, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := b.bars[symbol]
	if len(m) == 0 {
		return models.Bar{}, ErrEmptySeries
	}
	var last string
	for k := range m {
		if k > last {
			last = k
		}
	}
	return m[last], nil
}

// Count — сколько уникальных свечей накоплено по символу.
func (b *BarBook) Count(symbol string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bars[symbol])
}
