package driver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Mux is a Driver that dispatches to a backend driver based on the scheme
// of the connection URI. It lets a single registry manage clients that
// target different database systems.
type Mux struct {
	bySchema map[string]Driver
}

// NewMux returns an empty multiplexer. Schemes are registered with Register
// before the mux is handed to a registry.
func NewMux() *Mux {
	return &Mux{bySchema: make(map[string]Driver)}
}

// Register associates a URI scheme with a backend driver. Registering the
// same scheme twice replaces the previous driver.
func (m *Mux) Register(scheme string, drv Driver) error {
	if strings.TrimSpace(scheme) == "" {
		return fmt.Errorf("register driver: scheme must not be empty")
	}
	if drv == nil {
		return fmt.Errorf("register driver: driver for scheme %s is nil", scheme)
	}
	m.bySchema[strings.ToLower(scheme)] = drv
	return nil
}

// Schemes lists the registered URI schemes.
func (m *Mux) Schemes() []string {
	schemes := make([]string, 0, len(m.bySchema))
	for scheme := range m.bySchema {
		schemes = append(schemes, scheme)
	}
	return schemes
}

type muxConn struct {
	conn  Conn
	owner Driver
}

// Connect resolves the backend driver from the URI scheme and delegates the
// establishment to it. The returned handle remembers its owning driver so
// Close can route the teardown back to it.
func (m *Mux) Connect(ctx context.Context, uri string, options map[string]any) (Conn, error) {
	drv, err := m.resolve(uri)
	if err != nil {
		return nil, err
	}
	conn, err := drv.Connect(ctx, uri, options)
	if err != nil {
		return nil, err
	}
	return &muxConn{conn: conn, owner: drv}, nil
}

// Close routes the teardown to the driver that established the handle.
func (m *Mux) Close(ctx context.Context, conn Conn, force bool) error {
	wrapped, ok := conn.(*muxConn)
	if !ok {
		return fmt.Errorf("close connection: handle %T was not established by this mux", conn)
	}
	return wrapped.owner.Close(ctx, wrapped.conn, force)
}

// Unwrap returns the backend handle stored inside a mux connection. It
// returns the handle unchanged if it did not originate from a Mux.
func Unwrap(conn Conn) Conn {
	if wrapped, ok := conn.(*muxConn); ok {
		return wrapped.conn
	}
	return conn
}

func (m *Mux) resolve(uri string) (Driver, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse connection uri: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("connection uri %q has no scheme", uri)
	}
	drv, ok := m.bySchema[scheme]
	if !ok {
		return nil, fmt.Errorf("no driver registered for scheme %s", scheme)
	}
	return drv, nil
}
