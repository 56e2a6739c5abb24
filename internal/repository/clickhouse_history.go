package repository

import (
	"context"
	"database/sql"
	"fmt"

	"CryptoRNN/internal/domain/models"
	domrepo "CryptoRNN/internal/domain/repository"
	pkgch "CryptoRNN/pkg/clickhouse"
)

// CHHistorySink appends epoch results to a ClickHouse table.
type CHHistorySink struct {
	db    *sql.DB
	table string
}

// NewCHHistorySink writes to the bare table name in the client's database.
func NewCHHistorySink(ch *pkgch.Client, table string) *CHHistorySink {
	return &CHHistorySink{db: ch.DB(), table: ch.Table(table)}
}

var _ domrepo.HistorySink = (*CHHistorySink)(nil)

// Table returns the qualified table written.
func (s *CHHistorySink) Table() string { return s.table }

func (s *CHHistorySink) RecordEpoch(ctx context.Context, run models.Run, e models.EpochResult) error {
	q := fmt.Sprintf(`INSERT INTO %s
        (run_id, run_name, started_at, epoch, loss, accuracy, val_loss, val_accuracy, learning_rate, duration_ms, checkpoint)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err := s.db.ExecContext(ctx, q,
		run.ID,
		run.Name,
		run.StartedAt,
		uint32(e.Epoch),
		e.Loss,
		e.Accuracy,
		e.ValLoss,
		e.ValAccuracy,
		e.LearningRate,
		e.Duration.Milliseconds(),
		e.Checkpoint,
	)
	if err != nil {
		return fmt.Errorf("insert epoch %d: %w", e.Epoch, err)
	}
	return nil
}

// HistorySchema returns the DDL of the epoch history table.
func HistorySchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            run_id        String,
            run_name      String,
            started_at    DateTime,
            epoch         UInt32,
            loss          Float64,
            accuracy      Float64,
            val_loss      Float64,
            val_accuracy  Float64,
            learning_rate Float64,
            duration_ms   Int64,
            checkpoint    String,
            recorded_at   DateTime DEFAULT now()
        ) ENGINE = MergeTree
        ORDER BY (run_name, epoch)`, table)}
}
