// Package redis adapts go-redis to the registry driver contract for
// deployments that use Redis as a document store (RedisJSON and friends).
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/timzifer/docstore/config"
	"github.com/timzifer/docstore/driver"
)

// Settings tune the Redis client beyond what the connection URI carries.
type Settings struct {
	ClientName   string           `yaml:"client_name,omitempty"`
	PoolSize     *int             `yaml:"pool_size,omitempty"`
	MinIdleConns *int             `yaml:"min_idle_conns,omitempty"`
	DialTimeout  *config.Duration `yaml:"dial_timeout,omitempty"`
	ReadTimeout  *config.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout *config.Duration `yaml:"write_timeout,omitempty"`
}

// Driver connects to Redis servers. The zero value is ready to use.
type Driver struct{}

// New returns a Redis driver.
func New() *Driver {
	return &Driver{}
}

// Connect parses the URI, applies the decoded settings and verifies the
// server responds to a ping before handing the client out.
func (d *Driver) Connect(ctx context.Context, uri string, options map[string]any) (driver.Conn, error) {
	if uri == "" {
		return nil, fmt.Errorf("redis: connection uri is required")
	}
	opts, err := goredis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("redis: parse uri: %w", err)
	}
	var settings Settings
	if err := config.DecodeOptions(options, &settings); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if settings.ClientName != "" {
		opts.ClientName = settings.ClientName
	}
	if settings.PoolSize != nil {
		opts.PoolSize = *settings.PoolSize
	}
	if settings.MinIdleConns != nil {
		opts.MinIdleConns = *settings.MinIdleConns
	}
	if settings.DialTimeout != nil {
		opts.DialTimeout = settings.DialTimeout.Duration
	}
	if settings.ReadTimeout != nil {
		opts.ReadTimeout = settings.ReadTimeout.Duration
	}
	if settings.WriteTimeout != nil {
		opts.WriteTimeout = settings.WriteTimeout.Duration
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// Close releases the client. go-redis closes its pool without draining
// in-flight commands, so force has no additional effect here.
func (d *Driver) Close(_ context.Context, conn driver.Conn, _ bool) error {
	client, ok := conn.(*goredis.Client)
	if !ok {
		return fmt.Errorf("redis: unexpected connection type %T", conn)
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("redis: close: %w", err)
	}
	return nil
}
