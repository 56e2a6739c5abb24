package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	applogger "CryptoRNN/pkg/logger"
	"CryptoRNN/pkg/util"
)

// CSVSource reads {dir}/{ratio}.csv files.
type CSVSource struct {
	dir string
	l   *applogger.Logger
}

// NewCSVSource creates a CandleSource over a directory of per-ratio CSVs.
func NewCSVSource(dir string, l *applogger.Logger) domrepo.CandleSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CSVSource{dir: dir, l: l}
}

func (s *CSVSource) Load(ctx context.Context, ratio string) ([]models.Candle, error) {
	path := filepath.Join(s.dir, ratio+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	candles, err := ParseCandles(ctx, f, ratio, path)
	if err != nil {
		return nil, err
	}
	s.l.Debug("csv candles loaded",
		applogger.String("ratio", ratio),
		applogger.String("path", path),
		applogger.Int("rows", len(candles)),
	)
	return candles, nil
}

// ParseCandles reads headerless time,low,high,open,close,volume rows. Empty
// price or volume fields become NaN; anything else unparsable is an error
// naming the source and line.
func ParseCandles(ctx context.Context, r io.Reader, symbol, name string) ([]models.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	out := make([]models.Candle, 0, 4096)
	for line := 1; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		ts, ok := util.ParseTime(rec[0])
		if !ok {
			return nil, fmt.Errorf("%s line %d: bad time %q", name, line, rec[0])
		}
		var vals [5]float64
		for i := range vals {
			v, err := parseField(rec[i+1])
			if err != nil {
				return nil, fmt.Errorf("%s line %d column %d: %w", name, line, i+2, err)
			}
			vals[i] = v
		}
		out = append(out, models.Candle{
			Time:   ts,
			Symbol: symbol,
			Low:    vals[0],
			High:   vals[1],
			Open:   vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return out, nil
}

func parseField(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
