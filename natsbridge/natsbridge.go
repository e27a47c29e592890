// Package natsbridge publishes input events to a NATS subject tree so
// other processes can consume them without holding a feed connection. One
// subject per family and kind: <prefix>.<family>.<kind>, each message the
// JSON wire form of the event.
package natsbridge

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/Alia5/CONDUIT/apitypes"
	"github.com/Alia5/CONDUIT/event"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "conduit.events"

// Config describes the broker connection.
type Config struct {
	// URL is the NATS server URL, e.g. nats://localhost:4222.
	URL string
	// Prefix is the subject prefix; DefaultPrefix when empty.
	Prefix string
}

// PublishFunc sends one message. Matches nats.Conn.Publish.
type PublishFunc func(subject string, data []byte) error

// Bridge is an event.Sink that forwards every event to a broker. Publish
// errors are warn-logged once and then dropped; the frame loop is never
// slowed down by a broken broker connection.
type Bridge struct {
	log     *slog.Logger
	prefix  string
	publish PublishFunc
	nc      *nats.Conn
	warned  bool
}

// Connect dials a NATS server and returns a bridge publishing to it.
func Connect(cfg Config, logger *slog.Logger) (*Bridge, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("conduit"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	b := New(cfg.Prefix, nc.Publish, logger)
	b.nc = nc
	b.log.Info("Event bridge connected", "url", cfg.URL, "prefix", b.prefix)
	return b, nil
}

// New builds a bridge over an arbitrary publish function. Used directly by
// tests; Connect is the production constructor.
func New(prefix string, publish PublishFunc, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Bridge{
		log:     logger,
		prefix:  prefix,
		publish: publish,
	}
}

// Dispatch implements event.Sink. nats.Conn buffers writes internally, so
// this returns without waiting on the wire.
func (b *Bridge) Dispatch(ev event.Event) {
	data, err := json.Marshal(apitypes.NewEventMessage(ev))
	if err != nil {
		b.warnOnce("Event not publishable", "error", err)
		return
	}
	if err := b.publish(b.Subject(ev), data); err != nil {
		b.warnOnce("Event publish failed, dropping", "error", err)
	}
}

// Subject returns the subject an event is published under.
func (b *Bridge) Subject(ev event.Event) string {
	family := string(ev.Family)
	if family == "" {
		family = "unknown"
	}
	return b.prefix + "." + family + "." + ev.Kind.String()
}

// Close drains the owned connection, flushing buffered publishes. A bridge
// built over an injected publish function closes to a no-op.
func (b *Bridge) Close() error {
	if b.nc == nil {
		return nil
	}
	return b.nc.Drain()
}

func (b *Bridge) warnOnce(msg string, args ...any) {
	if b.warned {
		return
	}
	b.warned = true
	b.log.Warn(msg, args...)
}
