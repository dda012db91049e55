package redis

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
	_, err := drv.Connect(context.Background(), "bogus://localhost:6379", nil)
	require.ErrorContains(t, err, "parse uri")
}

func TestConnectRejectsMalformedOptions(t *testing.T) {
	drv := New()
	_, err := drv.Connect(context.Background(), "redis://localhost:6379", map[string]any{
		"pool_size": "many",
	})
	require.ErrorContains(t, err, "decode options")
}

func TestConnectFailsForUnreachableServer(t *testing.T) {
	drv := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := drv.Connect(ctx, "redis://127.0.0.1:1", map[string]any{
		"dial_timeout": "200ms",
	})
	require.ErrorContains(t, err, "ping")
}

func TestCloseRejectsForeignHandles(t *testing.T) {
	drv := New()
	err := drv.Close(context.Background(), struct{}{}, false)
	require.ErrorContains(t, err, "unexpected connection type")
}
