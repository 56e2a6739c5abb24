package kafka

import (
	"fmt"
	"time"
)

// ProducerOption configures Producer.
type ProducerOption func(*ProducerConfig)

// ProducerConfig holds producer configuration.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchTimeout time.Duration
	HashByKey    bool
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchTimeout: 100 * time.Millisecond,
	}
}

func (c *ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers are required")
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("required acks %d not in [-1, 1]", c.RequiredAcks)
	}
	if _, ok := codecs[c.Compression]; !ok {
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	return nil
}

// WithBrokers sets the bootstrap brokers.
func WithBrokers(brokers ...string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithDelivery sets required acks (-1 all, 0 none, 1 leader) and writer attempts.
func WithDelivery(acks, attempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
		if attempts > 0 {
			c.MaxAttempts = attempts
		}
	}
}

// WithCompression picks the batch codec: gzip, snappy, lz4 or zstd.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

// WithBatching sets batch size and linger. Zero keeps the default.
func WithBatching(size int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if linger > 0 {
			c.BatchTimeout = linger
		}
	}
}

// WithTimeouts sets writer write/read timeouts. Zero keeps the default.
func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithKeyHashing routes equal keys (run ids) to the same partition.
func WithKeyHashing() ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = true }
}
