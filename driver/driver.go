package driver

import "context"

// Conn is an opaque handle to a live database connection.
//
// Concrete implementations usually wrap a backend client or pool and may be
// shared between the registry and any caller that obtained the handle; its
// lifetime is governed by the registry that stored it.
type Conn interface{}

// Driver establishes and tears down connections on behalf of a registry.
//
// Both operations may block on the network and honour the provided context.
// Close with force set must not wait for in-flight operations to drain;
// without force the driver should allow a graceful drain if the backend
// supports one.
type Driver interface {
	Connect(ctx context.Context, uri string, options map[string]any) (Conn, error)
	Close(ctx context.Context, conn Conn, force bool) error
}
