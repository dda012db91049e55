// Package postgres adapts pgx connection pools to the registry driver
// contract, covering deployments that store documents in JSONB columns.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/timzifer/docstore/config"
	"github.com/timzifer/docstore/driver"
)

// Settings tune the pgx pool beyond what the connection URI carries.
type Settings struct {
	MaxConns        *int32           `yaml:"max_conns,omitempty"`
	MinConns        *int32           `yaml:"min_conns,omitempty"`
	MaxConnLifetime *config.Duration `yaml:"max_conn_lifetime,omitempty"`
	MaxConnIdleTime *config.Duration `yaml:"max_conn_idle_time,omitempty"`
	AppName         string           `yaml:"app_name,omitempty"`
}

// Driver connects to PostgreSQL servers. The zero value is ready to use.
type Driver struct{}

// New returns a PostgreSQL driver.
func New() *Driver {
	return &Driver{}
}

// Connect builds a pool for the given URI, applies the decoded settings and
// verifies the server is reachable with a ping before handing the pool out.
func (d *Driver) Connect(ctx context.Context, uri string, options map[string]any) (driver.Conn, error) {
	if uri == "" {
		return nil, fmt.Errorf("postgres: connection uri is required")
	}
	poolCfg, err := pgxpool.ParseConfig(uri)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse uri: %w", err)
	}
	var settings Settings
	if err := config.DecodeOptions(options, &settings); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if settings.MaxConns != nil {
		poolCfg.MaxConns = *settings.MaxConns
	}
	if settings.MinConns != nil {
		poolCfg.MinConns = *settings.MinConns
	}
	if settings.MaxConnLifetime != nil {
		poolCfg.MaxConnLifetime = settings.MaxConnLifetime.Duration
	}
	if settings.MaxConnIdleTime != nil {
		poolCfg.MaxConnIdleTime = settings.MaxConnIdleTime.Duration
	}
	if settings.AppName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = settings.AppName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Close releases the pool. pgxpool.Close blocks until every acquired
// connection is returned, so a forced close resets the pool first and lets
// the teardown finish in the background instead of waiting for callers.
func (d *Driver) Close(_ context.Context, conn driver.Conn, force bool) error {
	pool, ok := conn.(*pgxpool.Pool)
	if !ok {
		return fmt.Errorf("postgres: unexpected connection type %T", conn)
	}
	if force {
		pool.Reset()
		go pool.Close()
		return nil
	}
	pool.Close()
	return nil
}
