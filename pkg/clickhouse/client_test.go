package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []ClientOption{
		WithAddr("ch", 0),
		WithDatabase("cryptornn"),
		WithTimeouts(0, 30*time.Second, 0, time.Minute),
		WithAsyncInsert(true, true),
	} {
		opt(cfg)
	}

	assert.Equal(t,
		"clickhouse://default:@ch:9000/cryptornn?dial_timeout=5s&read_timeout=30s&max_execution_time=60&async_insert=1&wait_for_async_insert=1",
		BuildDSN(*cfg))
}

func TestBuildDSNHTTP(t *testing.T) {
	got := BuildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "u", Password: "p", UseHTTP: true})
	assert.Equal(t, "clickhouse+http://u:p@ch:8123/db", got)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}

func TestTableQualifiesOnce(t *testing.T) {
	c := NewFromDB(nil, "cryptornn")
	assert.Equal(t, "cryptornn.training_epochs", c.Table("training_epochs"))
	assert.Equal(t, "cryptornn.training_epochs", c.Table(c.Table("training_epochs")))
	assert.Equal(t, "candles_1m", NewFromDB(nil, "").Table("candles_1m"))
}
