package di

import (
	"testing"

	internalrepo "CryptoRNN/internal/repository"
	pkgch "CryptoRNN/pkg/clickhouse"
	"CryptoRNN/pkg/config"
	applogger "CryptoRNN/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clickhouseConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.ClickHouse.Enabled = true
	cfg.Dataset.Source = "clickhouse"
	return cfg
}

func TestClickHouseProvidersUseSchemaTableNames(t *testing.T) {
	cfg := clickhouseConfig(t)
	ch := pkgch.NewFromDB(nil, cfg.ClickHouse.Database)

	src, err := ProvideCandleSource(cfg, ch, applogger.Nop())
	require.NoError(t, err)
	chSrc, ok := src.(*internalrepo.CHCandleSource)
	require.True(t, ok)
	assert.Equal(t, "cryptornn.candles_1m", chSrc.Table())

	sink := provideCHHistory(cfg, ch, applogger.Nop())
	require.NotNil(t, sink)
	assert.Equal(t, "cryptornn.training_epochs", sink.Table())

	assert.Contains(t, internalrepo.CandleSchema(ch.Table(cfg.ClickHouse.CandleTable))[0], chSrc.Table()+" (")
	assert.Contains(t, internalrepo.HistorySchema(ch.Table(cfg.ClickHouse.HistoryTable))[0], sink.Table()+" (")
}

func TestClickHouseProvidersWithoutClient(t *testing.T) {
	cfg := clickhouseConfig(t)

	_, err := ProvideCandleSource(cfg, nil, applogger.Nop())
	assert.Error(t, err)
	assert.Nil(t, provideCHHistory(cfg, nil, applogger.Nop()))
}
