package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"fourfat_bot/internal/models"
)

// CSV пишет собранную историю в файлы вида BABA_3_20260828.csv —
// по одному на символ, рядом с ботом (или в EXPORT_DIR).
type CSV struct {
	dir string
}

func NewCSV(dir string) *CSV {
	if dir == "" {
		dir = "."
	}
	return &CSV{dir: dir}
}

func (c *CSV) WriteBars(symbol string, days int, day string, bars []models.Bar) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("export %s: %w", symbol, err)
		}
	}()

	name := fmt.Sprintf("%s_%d_%s.csv", symbol, days, day)
	f, err := os.Create(filepath.Join(c.dir, name))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Timestamp,
			fmtF(b.Open), fmtF(b.High), fmtF(b.Low), fmtF(b.Close), fmtF(b.Volume),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtF(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
