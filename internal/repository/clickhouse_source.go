package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	pkgch "CryptoRNN/pkg/clickhouse"
	applogger "CryptoRNN/pkg/logger"
)

// CHCandleSource reads one-minute candles from ClickHouse.
type CHCandleSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHCandleSource reads the bare table name in the client's database.
func NewCHCandleSource(ch *pkgch.Client, table string, l *applogger.Logger) *CHCandleSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleSource{db: ch.DB(), table: ch.Table(table), l: l}
}

var _ domrepo.CandleSource = (*CHCandleSource)(nil)

// Table returns the qualified table queried.
func (s *CHCandleSource) Table() string { return s.table }

func (s *CHCandleSource) Load(ctx context.Context, ratio string) ([]models.Candle, error) {
	start := time.Now()
	const qtpl = `
        SELECT bucket, symbol, low, high, open, close, vol
        FROM %s
        WHERE symbol = ?
        ORDER BY bucket ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), ratio)
	if err != nil {
		s.l.Error("clickhouse candles query error",
			applogger.String("table", s.table),
			applogger.String("ratio", ratio),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query candles %s: %w", ratio, err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, 4096)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Time, &c.Symbol, &c.Low, &c.High, &c.Open, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse candles loaded",
		applogger.String("ratio", ratio),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// InitCHSchema creates the candle and history tables under the same names
// NewCHCandleSource and NewCHHistorySink resolve.
func InitCHSchema(ctx context.Context, ch *pkgch.Client, candleTable, historyTable string) error {
	stmts := append(CandleSchema(ch.Table(candleTable)), HistorySchema(ch.Table(historyTable))...)
	return ch.InitSchema(ctx, stmts)
}

// CandleSchema returns the DDL of the candle table.
func CandleSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            bucket DateTime,
            symbol LowCardinality(String),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            vol    Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, bucket)`, table)}
}
