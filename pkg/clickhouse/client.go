package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Client is a database/sql pool bound to one ClickHouse database. Table names
// handed to repositories stay bare; Table qualifies them.
type Client struct {
	db       *sql.DB
	database string
}

// NewClient opens the pool, pings the server and creates the database.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	// connect to the server default database; ours may not exist yet
	bootstrap := *cfg
	bootstrap.Database = ""
	db, err := sql.Open("clickhouse", BuildDSN(bootstrap))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	c := NewFromDB(db, cfg.Database)
	if cfg.Database != "" {
		if err := c.exec(ctx, "CREATE DATABASE IF NOT EXISTS "+cfg.Database); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return c, nil
}

// NewFromDB binds an open pool to database.
func NewFromDB(db *sql.DB, database string) *Client {
	return &Client{db: db, database: database}
}

// Table qualifies a bare table name with the client's database.
func (c *Client) Table(name string) string {
	if c.database == "" || strings.Contains(name, ".") {
		return name
	}
	return c.database + "." + name
}

// DB returns the pool for queries.
func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// InitSchema runs idempotent DDL in order.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if err := c.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) exec(ctx context.Context, stmt string) error {
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// BuildDSN renders the clickhouse-go DSN for cfg. Query settings keep a fixed
// order so the DSN is stable in logs.
func BuildDSN(cfg ClientConfig) string {
	scheme := "clickhouse"
	if cfg.UseHTTP {
		scheme = "clickhouse+http"
	}

	var params []string
	set := func(key string, val any) { params = append(params, fmt.Sprintf("%s=%v", key, val)) }
	if cfg.DialTimeout > 0 {
		set("dial_timeout", cfg.DialTimeout)
	}
	if cfg.ReadTimeout > 0 {
		set("read_timeout", cfg.ReadTimeout)
	}
	// write_timeout stays client-side; some server versions reject it as a setting
	if cfg.MaxExecTime > 0 {
		set("max_execution_time", int(cfg.MaxExecTime.Seconds()))
	}
	if cfg.AsyncInsert {
		set("async_insert", 1)
		if cfg.WaitForAsync {
			set("wait_for_async_insert", 1)
		}
	}

	dsn := fmt.Sprintf("%s://%s:%s@%s:%d/%s", scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	if len(params) > 0 {
		dsn += "?" + strings.Join(params, "&")
	}
	return dsn
}

func defaultConfig() *ClientConfig {
	return &ClientConfig{
		Port:            9000,
		User:            "default",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}
