// Package mongo adapts the official MongoDB client to the registry driver
// contract. Connection pooling stays inside the mongo client; the adapter
// only establishes, verifies and tears down handles.
package mongo

import (
	"context"
	"fmt"
	"time"

	mgo "go.mongodb.org/mongo-driver/mongo"
	mgoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/timzifer/docstore/config"
	"github.com/timzifer/docstore/driver"
)

// forceQuiesce bounds how long a forced close may spend tearing down
// sockets instead of waiting for in-flight operations.
const forceQuiesce = 250 * time.Millisecond

// Driver connects to MongoDB deployments. The zero value is ready to use.
type Driver struct{}

// New returns a MongoDB driver.
func New() *Driver {
	return &Driver{}
}

// Connect establishes a client for the given URI, applies the decoded
// settings and verifies the deployment is reachable with a ping before
// handing the connection out.
func (d *Driver) Connect(ctx context.Context, uri string, options map[string]any) (driver.Conn, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: connection uri is required")
	}
	var settings Settings
	if err := config.DecodeOptions(options, &settings); err != nil {
		return nil, fmt.Errorf("mongo: %w", err)
	}

	opts := mgoopts.Client().ApplyURI(uri)
	if settings.AppName != "" {
		opts.SetAppName(settings.AppName)
	}
	if settings.ReplicaSet != "" {
		opts.SetReplicaSet(settings.ReplicaSet)
	}
	if settings.Direct != nil {
		opts.SetDirect(*settings.Direct)
	}
	if settings.ConnectTimeout != nil {
		opts.SetConnectTimeout(settings.ConnectTimeout.Duration)
	}
	if settings.ServerSelectionTimeout != nil {
		opts.SetServerSelectionTimeout(settings.ServerSelectionTimeout.Duration)
	}
	if settings.MaxPoolSize != nil {
		opts.SetMaxPoolSize(*settings.MaxPoolSize)
	}
	if settings.MinPoolSize != nil {
		opts.SetMinPoolSize(*settings.MinPoolSize)
	}
	if settings.RetryWrites != nil {
		opts.SetRetryWrites(*settings.RetryWrites)
	}
	if settings.RetryReads != nil {
		opts.SetRetryReads(*settings.RetryReads)
	}

	client, err := mgo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return client, nil
}

// Close disconnects the client. A forced close runs against a short
// deadline so it does not wait for in-flight operations to drain.
func (d *Driver) Close(ctx context.Context, conn driver.Conn, force bool) error {
	client, ok := conn.(*mgo.Client)
	if !ok {
		return fmt.Errorf("mongo: unexpected connection type %T", conn)
	}
	if force {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), forceQuiesce)
		defer cancel()
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	return nil
}
