// Package events publishes simulation events. NullBus discards them;
// NATSBus publishes them as JSON on NATS subjects.
package events

import (
	"context"

	"github.com/Tsinling0525/journeyflow/plugin"
)

// NullBus is a no-op event bus implementation.
type NullBus struct{}

func (NullBus) Emit(context.Context, string, map[string]any) error { return nil }

// Ensure interface implementation at compile time
var _ plugin.EventBus = NullBus{}
var _ plugin.EventBus = (*NATSBus)(nil)
