package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"CryptoRNN/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout" validate:"required"`
	} `yaml:"log"`
	Dataset struct {
		Source              string   `yaml:"source" default:"csv" validate:"oneof=csv http clickhouse"`
		Dir                 string   `yaml:"dir" default:"crypto_data"`
		BaseURL             string   `yaml:"base_url"`
		Ratios              []string `yaml:"ratios" validate:"min=1,dive,required"`
		RatioToPredict      string   `yaml:"ratio_to_predict" default:"LTC-USD" validate:"required"`
		SeqLen              int      `yaml:"seq_len" default:"60" validate:"gte=1"`
		FuturePeriodPredict int      `yaml:"future_period_predict" default:"3" validate:"gte=1"`
		ValidationPct       float64  `yaml:"validation_pct" default:"0.05" validate:"gt=0,lt=1"`
		Seed                int64    `yaml:"seed"`
	} `yaml:"dataset"`
	Model struct {
		LSTMUnits    int       `yaml:"lstm_units" default:"128" validate:"gte=1"`
		DenseUnits   int       `yaml:"dense_units" default:"32" validate:"gte=1"`
		Dropouts     []float64 `yaml:"dropouts" validate:"len=3,dive,gte=0,lt=1"`
		DenseDropout float64   `yaml:"dense_dropout" default:"0.2" validate:"gte=0,lt=1"`
		LearningRate float64   `yaml:"learning_rate" default:"0.001" validate:"gt=0"`
		Decay        float64   `yaml:"decay" default:"0.000001" validate:"gte=0"`
		BNMomentum   float64   `yaml:"bn_momentum" default:"0.99" validate:"gt=0,lt=1"`
		BNEpsilon    float64   `yaml:"bn_epsilon" default:"0.001" validate:"gt=0"`
	} `yaml:"model"`
	Training struct {
		Epochs    int    `yaml:"epochs" default:"10" validate:"gte=1"`
		BatchSize int    `yaml:"batch_size" default:"64" validate:"gte=1"`
		ModelsDir string `yaml:"models_dir" default:"models"`
		LogsDir   string `yaml:"logs_dir" default:"logs"`
	} `yaml:"training"`
	Server struct {
		Enabled         bool          `yaml:"enabled"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"cryptornn"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		CandleTable      string        `yaml:"candle_table" default:"candles_1m"`
		HistoryTable     string        `yaml:"history_table" default:"training_epochs"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"cryptornn.training"`
		LogTopic     string   `yaml:"log_topic" default:"cryptornn.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Cache struct {
		Backend  string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		Host     string        `yaml:"host" default:"localhost"`
		Port     int           `yaml:"port" default:"6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix" default:"cryptornn"`
		LockTTL  time.Duration `yaml:"lock_ttl" default:"12h"`
	} `yaml:"cache"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	c.fillSlices()
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result. Keys present
// in the file win, including explicit zeros.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.fillSlices()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file next to the working directory is honoured when present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CRYPTO_DATA_DIR"); v != "" {
		c.Dataset.Dir = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		c.Dataset.Source = v
	}
	if v := os.Getenv("RATIOS"); v != "" {
		c.Dataset.Ratios = util.SplitList(v)
	}
	if v := os.Getenv("RATIO_TO_PREDICT"); v != "" {
		c.Dataset.RatioToPredict = v
	}
	c.Dataset.SeqLen = util.ParseIntDefault(os.Getenv("SEQ_LEN"), c.Dataset.SeqLen)
	c.Dataset.FuturePeriodPredict = util.ParseIntDefault(os.Getenv("FUTURE_PERIOD_PREDICT"), c.Dataset.FuturePeriodPredict)
	c.Training.Epochs = util.ParseIntDefault(os.Getenv("EPOCHS"), c.Training.Epochs)
	c.Training.BatchSize = util.ParseIntDefault(os.Getenv("BATCH_SIZE"), c.Training.BatchSize)
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port := util.SplitHostPort(v, c.Cache.Port)
		c.Cache.Backend = "redis"
		c.Cache.Host = host
		c.Cache.Port = port
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = util.SplitList(v)
	}
}

// fillSlices covers the slices that struct tags cannot default.
func (c *Config) fillSlices() {
	if len(c.Dataset.Ratios) == 0 {
		c.Dataset.Ratios = []string{"BTC-USD", "LTC-USD", "ETH-USD", "BCH-USD"}
	}
	if len(c.Model.Dropouts) == 0 {
		c.Model.Dropouts = []float64{0.2, 0.1, 0.2}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if !slices.Contains(c.Dataset.Ratios, c.Dataset.RatioToPredict) {
		return fmt.Errorf("dataset.ratio_to_predict %q must be one of dataset.ratios [%s]",
			c.Dataset.RatioToPredict, strings.Join(c.Dataset.Ratios, ", "))
	}
	if c.Dataset.Source == "http" && c.Dataset.BaseURL == "" {
		return fmt.Errorf("dataset.base_url is required for source 'http'")
	}
	if c.Dataset.Source == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("clickhouse.enabled must be true for source 'clickhouse'")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// RunPrefix is {SEQ_LEN}-SEQ-{FUTURE}-PRED; at most one run per prefix trains at a time.
func (c *Config) RunPrefix() string {
	return fmt.Sprintf("%d-SEQ-%d-PRED", c.Dataset.SeqLen, c.Dataset.FuturePeriodPredict)
}

// RunName is the run prefix suffixed with the unix start time.
func (c *Config) RunName(now time.Time) string {
	return fmt.Sprintf("%s-%d", c.RunPrefix(), now.Unix())
}
