// Package natsconn provides the shared NATS connection factory with
// fail-fast connect semantics.
package natsconn

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Options configures the connection. Zero values get sensible defaults;
// the URL comes from configuration, not from here.
type Options struct {
	URL           string
	Name          string // connection name shown on the server side
	MaxReconnects int    // default 5
	ReconnectWait time.Duration // default 2s
}

func (o *Options) defaults() {
	if o.URL == "" {
		o.URL = "nats://localhost:4222"
	}
	if o.Name == "" {
		o.Name = "tubeview"
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = 5
	}
	if o.ReconnectWait == 0 {
		o.ReconnectWait = 2 * time.Second
	}
}

// Connect establishes a NATS connection with the configured retry policy.
// It does not retry the initial connect; an unreachable server errors
// immediately so the caller can decide to run without it.
func Connect(opts Options) (*nats.Conn, error) {
	opts.defaults()

	nc, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s (max_reconnects=%d, wait=%s): %w",
			opts.URL, opts.MaxReconnects, opts.ReconnectWait, err)
	}
	return nc, nil
}
