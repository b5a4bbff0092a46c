package service

import (
	"context"
	"time"

	"github.com/markethub/markethub/internal/logging"
)

// Publisher is the event sink for domain events. Satisfied by
// mykafka.Producer; tests use a stub.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// publish sends a best-effort event; delivery failures are logged, never
// surfaced to the caller.
func publish(ctx context.Context, p Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(pubCtx, topic, key, event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "topic", topic, "error", err)
	}
}
