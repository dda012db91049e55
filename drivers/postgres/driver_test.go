package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectRequiresURI(t *testing.T) {
	drv := New()
	_, err := drv.Connect(context.Background(), "", nil)
	require.ErrorContains(t, err, "uri is required")
}

func TestConnectRejectsMalformedURI(t *testing.T) {
	drv := New()
	_, err := drv.Connect(context.Background(), "postgres://localhost:not-a-port/db", nil)
	require.ErrorContains(t, err, "parse uri")
}

func TestConnectRejectsMalformedOptions(t *testing.T) {
	drv := New()
	_, err := drv.Connect(context.Background(), "postgres://localhost:5432/db", map[string]any{
		"max_conns": "lots",
	})
	require.ErrorContains(t, err, "decode options")
}

func TestConnectFailsForUnreachableServer(t *testing.T) {
	drv := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := drv.Connect(ctx, "postgres://postgres@127.0.0.1:1/db?connect_timeout=1", nil)
	require.ErrorContains(t, err, "ping")
}

func TestCloseRejectsForeignHandles(t *testing.T) {
	drv := New()
	err := drv.Close(context.Background(), struct{}{}, false)
	require.ErrorContains(t, err, "unexpected connection type")
}
