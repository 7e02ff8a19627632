// Package notifications provides real-time delivery of workflow events.
package notifications

import (
	"context"
	"encoding/json"
	"log"
	"runtime/debug"

	"partrack/internal/service"

	"github.com/redis/go-redis/v9"
)

const workflowChannel = "workflow:events"

// Notifier publishes workflow events into a Redis channel so every server
// instance can fan them out to its websocket clients. A nil Redis client
// turns every call into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends a workflow event to the shared channel. Delivery is
// best-effort; failures are logged and never surfaced to the caller, the
// transition has already committed.
func (n *Notifier) Publish(ctx context.Context, event service.WorkflowEvent) {
	if n.rdb == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("notifier: marshal event: %v", err)
		return
	}
	if err := n.rdb.Publish(ctx, workflowChannel, string(payload)).Err(); err != nil {
		log.Printf("notifier: publish event: %v", err)
	}
}

// StartSubscriber subscribes to the workflow channel and calls onMessage for
// each incoming payload until the context is cancelled.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, workflowChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in workflow subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
