// Package registry manages named database clients: it maps client names to
// configuration/connection pairs and drives their lifecycle through an
// external driver. Connections are established lazily, reused on repeated
// connects and torn down individually or all at once.
package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/timzifer/docstore/driver"
	"github.com/timzifer/docstore/telemetry"
)

var (
	// ErrInvalidName is returned by Add when the client name is empty.
	ErrInvalidName = errors.New("client name must not be empty")
	// ErrUnknownClient is returned when an operation references a name that
	// was never registered.
	ErrUnknownClient = errors.New("client not registered")
)

// Config describes a client registration request. A zero URI means the
// client is not yet configured; Options hold driver-specific settings that
// are merged over the registry's defaults.
type Config struct {
	URI     string
	Options map[string]any
}

// Client is a snapshot of a registry entry: the merged configuration plus
// the live connection handle, if any. Conn is nil while the client is
// disconnected. The handle remains owned by the registry; callers must not
// close it out-of-band.
type Client struct {
	Name    string
	URI     string
	Options map[string]any
	Conn    driver.Conn
}

// Connected reports whether the snapshot carried a live connection.
func (c Client) Connected() bool {
	return c.Conn != nil
}

// inflight tracks a first-time connect so concurrent callers for the same
// name collapse into a single driver invocation.
type inflight struct {
	done chan struct{}
	conn driver.Conn
	err  error
}

type entry struct {
	uri     string
	options map[string]any
	conn    driver.Conn
	pending *inflight
}

// Registry owns an ordered mapping from client name to configuration and
// connection state. Multiple independent instances may coexist; all methods
// are safe for concurrent use.
type Registry struct {
	drv       driver.Driver
	defaults  Config
	logger    zerolog.Logger
	collector telemetry.Collector

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
}

// New creates an empty registry that delegates connection establishment and
// teardown to drv.
func New(drv driver.Driver, opts ...Option) (*Registry, error) {
	if drv == nil {
		return nil, errors.New("registry: driver must not be nil")
	}
	r := &Registry{
		drv:       drv,
		logger:    zerolog.Nop(),
		collector: telemetry.Noop(),
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Add registers a client under name, replacing the stored configuration of
// an existing entry while preserving its connection handle and, if a first
// connect is currently in flight, the in-flight marker. The supplied config
// is merged over the registry defaults: an empty URI falls back to the
// default URI and options are merged key by key over the default options
// only, never over previously stored options. Add never opens a connection.
func (r *Registry) Add(name string, cfg Config) (Client, error) {
	if strings.TrimSpace(name) == "" {
		return Client{}, fmt.Errorf("add client: %w", ErrInvalidName)
	}

	uri := r.defaults.URI
	if cfg.URI != "" {
		uri = cfg.URI
	}
	options := make(map[string]any, len(r.defaults.Options)+len(cfg.Options))
	maps.Copy(options, r.defaults.Options)
	maps.Copy(options, cfg.Options)

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		// A re-registered name keeps its original position in the
		// iteration order.
		e = &entry{}
		r.entries[name] = e
		r.order = append(r.order, name)
	}
	e.uri = uri
	e.options = options
	r.logger.Debug().Str("client", name).Str("uri", uri).Msg("client registered")
	return snapshot(name, e), nil
}

// Connection returns the live connection handle stored for name, or nil if
// the name is unknown or currently disconnected. It never fails and has no
// side effects.
func (r *Registry) Connection(name string) driver.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		return e.conn
	}
	return nil
}

// Connect returns the connection handle for a registered client,
// establishing it through the driver on first use. Repeated calls return
// the stored handle without contacting the driver, and concurrent calls
// while the first establishment is still in flight wait for its outcome
// instead of opening a second connection. Driver failures propagate to the
// caller and leave the entry disconnected.
func (r *Registry) Connect(ctx context.Context, name string) (driver.Conn, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("client %s: %w", name, ErrUnknownClient)
	}
	if e.conn != nil {
		conn := e.conn
		r.mu.Unlock()
		return conn, nil
	}
	if fl := e.pending; fl != nil {
		r.mu.Unlock()
		select {
		case <-fl.done:
			return fl.conn, fl.err
		case <-ctx.Done():
			return nil, fmt.Errorf("client %s: connect: %w", name, ctx.Err())
		}
	}
	fl := &inflight{done: make(chan struct{})}
	e.pending = fl
	uri := e.uri
	options := maps.Clone(e.options)
	r.mu.Unlock()

	conn, err := r.drv.Connect(ctx, uri, options)
	if err != nil {
		err = fmt.Errorf("client %s: connect: %w", name, err)
	}

	r.mu.Lock()
	if cur, ok := r.entries[name]; ok {
		if cur.pending == fl {
			cur.pending = nil
		}
		if err == nil {
			cur.conn = conn
		}
	}
	open := r.openLocked()
	r.mu.Unlock()

	fl.conn, fl.err = conn, err
	close(fl.done)

	if err != nil {
		r.collector.IncConnectFailure(name)
		r.logger.Error().Err(err).Str("client", name).Msg("connect failed")
		return nil, err
	}
	r.collector.IncConnect(name)
	r.collector.SetOpenConnections(open)
	r.logger.Debug().Str("client", name).Msg("connection established")
	return conn, nil
}

// Disconnect closes the client's connection through the driver, passing
// force through. Disconnecting a client that holds no connection is a
// no-op. The stored handle is detached before the driver's close runs, so
// the entry reads as disconnected regardless of the close outcome and a
// concurrent disconnect cannot close the same handle twice.
func (r *Registry) Disconnect(ctx context.Context, name string, force bool) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("client %s: %w", name, ErrUnknownClient)
	}
	conn := e.conn
	e.conn = nil
	open := r.openLocked()
	r.mu.Unlock()

	if conn == nil {
		return nil
	}
	r.collector.IncDisconnect(name)
	r.collector.SetOpenConnections(open)
	r.logger.Debug().Str("client", name).Bool("force", force).Msg("closing connection")
	if err := r.drv.Close(ctx, conn, force); err != nil {
		return fmt.Errorf("client %s: close: %w", name, err)
	}
	return nil
}

// DisconnectAll closes every registered client's connection sequentially in
// insertion order. Every entry is attempted; individual failures are
// collected and returned as a single joined error.
func (r *Registry) DisconnectAll(ctx context.Context, force bool) error {
	var errs []error
	for _, name := range r.Names() {
		if err := r.Disconnect(ctx, name, force); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Names returns the registered client names in insertion order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Clients returns snapshots of every registry entry in insertion order.
func (r *Registry) Clients() []Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	clients := make([]Client, 0, len(r.order))
	for _, name := range r.order {
		clients = append(clients, snapshot(name, r.entries[name]))
	}
	return clients
}

// All returns a restartable sequence over (name, client) pairs in insertion
// order. Each iteration works on a snapshot taken when it starts, so
// mutating the registry while ranging is safe but not reflected.
func (r *Registry) All() iter.Seq2[string, Client] {
	return func(yield func(string, Client) bool) {
		for _, client := range r.Clients() {
			if !yield(client.Name, client) {
				return
			}
		}
	}
}

// Has reports whether a client is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[name]
	return ok
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) openLocked() int {
	open := 0
	for _, e := range r.entries {
		if e.conn != nil {
			open++
		}
	}
	return open
}

func snapshot(name string, e *entry) Client {
	return Client{
		Name:    name,
		URI:     e.uri,
		Options: maps.Clone(e.options),
		Conn:    e.conn,
	}
}
