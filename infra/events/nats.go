package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Tsinling0525/journeyflow/logging"
)

const DefaultSubjectPrefix = "journeyflow"

// Message is the JSON payload published for every event.
type Message struct {
	Event  string         `json:"event"`
	Time   time.Time      `json:"time"`
	Fields map[string]any `json:"fields,omitempty"`
}

type NATSOptions struct {
	URL    string
	Prefix string
	Retry  RetryPolicy
	Logger *slog.Logger
}

// NATSBus publishes events to "<prefix>.<event>" subjects.
type NATSBus struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSBus connects to the server at opts.URL, retrying per opts.Retry.
// Once connected the client reconnects on its own.
func NewNATSBus(ctx context.Context, opts NATSOptions) (*NATSBus, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	prefix := strings.Trim(opts.Prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var nc *nats.Conn
	err := retry(ctx, opts.Retry, func() error {
		var err error
		nc, err = nats.Connect(opts.URL,
			nats.Name("journeyflow"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			logger.Warn("nats connect failed", "url", opts.URL, "err", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", opts.URL, err)
	}
	return &NATSBus{conn: nc, prefix: prefix}, nil
}

// Subject returns the subject an event is published on.
func (b *NATSBus) Subject(event string) string { return b.prefix + "." + event }

func (b *NATSBus) Emit(ctx context.Context, event string, fields map[string]any) error {
	data, err := json.Marshal(Message{Event: event, Time: time.Now().UTC(), Fields: fields})
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := b.conn.Publish(b.Subject(event), data); err != nil {
		return fmt.Errorf("publishing %s: %w", event, err)
	}
	return nil
}

// Subscribe delivers decoded messages for subject, which may use NATS
// wildcards ("journeyflow.>"). Messages arriving while the channel is full
// are dropped. Call cancel to unsubscribe and close the channel.
func (b *NATSBus) Subscribe(subject string) (<-chan Message, func(), error) {
	ch := make(chan Message, 64)
	var (
		mu     sync.Mutex
		closed bool
		once   sync.Once
	)
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var m Message
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- m:
		default:
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	if err := b.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, cancel, nil
}

// Flush waits until published events reached the server.
func (b *NATSBus) Flush() error { return b.conn.Flush() }

func (b *NATSBus) Close() error {
	b.conn.Close()
	return nil
}
