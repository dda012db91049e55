package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticConn struct{}

type staticDriver struct {
	conn       Conn
	connectErr error
	closed     []Conn
	lastForce  bool
}

func (d *staticDriver) Connect(context.Context, string, map[string]any) (Conn, error) {
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	return d.conn, nil
}

func (d *staticDriver) Close(_ context.Context, conn Conn, force bool) error {
	d.closed = append(d.closed, conn)
	d.lastForce = force
	return nil
}

func TestMuxRegisterValidatesInput(t *testing.T) {
	mux := NewMux()
	require.Error(t, mux.Register("", &staticDriver{}))
	require.Error(t, mux.Register("fake", nil))
	require.NoError(t, mux.Register("fake", &staticDriver{}))
	require.Equal(t, []string{"fake"}, mux.Schemes())
}

func TestMuxDispatchesByScheme(t *testing.T) {
	inner := &staticConn{}
	fake := &staticDriver{conn: inner}
	other := &staticDriver{conn: &staticConn{}}
	mux := NewMux()
	require.NoError(t, mux.Register("fake", fake))
	require.NoError(t, mux.Register("other", other))

	conn, err := mux.Connect(context.Background(), "FAKE://host/db", nil)
	require.NoError(t, err)
	require.Same(t, inner, Unwrap(conn))

	require.NoError(t, mux.Close(context.Background(), conn, true))
	require.Equal(t, []Conn{inner}, fake.closed)
	require.True(t, fake.lastForce)
	require.Empty(t, other.closed)
}

func TestMuxConnectRejectsUnroutableURIs(t *testing.T) {
	mux := NewMux()
	require.NoError(t, mux.Register("fake", &staticDriver{conn: &staticConn{}}))

	_, err := mux.Connect(context.Background(), "unknown://host", nil)
	require.Error(t, err)

	_, err = mux.Connect(context.Background(), "host-without-scheme", nil)
	require.Error(t, err)

	_, err = mux.Connect(context.Background(), "://broken", nil)
	require.Error(t, err)
}

func TestMuxConnectPropagatesDriverError(t *testing.T) {
	cause := errors.New("dial failed")
	mux := NewMux()
	require.NoError(t, mux.Register("fake", &staticDriver{connectErr: cause}))

	_, err := mux.Connect(context.Background(), "fake://host", nil)
	require.ErrorIs(t, err, cause)
}

func TestMuxCloseRejectsForeignHandles(t *testing.T) {
	mux := NewMux()
	require.Error(t, mux.Close(context.Background(), &staticConn{}, false))
}

func TestUnwrapPassesForeignHandlesThrough(t *testing.T) {
	conn := &staticConn{}
	require.Same(t, conn, Unwrap(conn))
}
