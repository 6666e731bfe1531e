package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"beam/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// PostEventsChannel is the Redis channel post lifecycle events are published on.
const PostEventsChannel = "posts:events"

// Post event types.
const (
	EventPostCreated  = "post_created"
	EventPostDeleted  = "post_deleted"
	EventPostHidden   = "post_hidden"
	EventPostUnhidden = "post_unhidden"
)

// PostEvent is the JSON envelope published on PostEventsChannel.
type PostEvent struct {
	Type    string           `json:"type"`
	Payload PostEventPayload `json:"payload"`
}

// PostEventPayload identifies the post an event is about.
type PostEventPayload struct {
	PostID   uint   `json:"post_id"`
	Title    string `json:"title,omitempty"`
	AuthorID uint   `json:"author_id,omitempty"`
	ActorID  uint   `json:"actor_id"`
}

// Notifier publishes post events into Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishPostEvent sends event on PostEventsChannel. A nil client is a no-op.
func (n *Notifier) PublishPostEvent(ctx context.Context, event PostEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal post event: %w", err)
	}
	return n.rdb.Publish(ctx, PostEventsChannel, string(payload)).Err()
}

// SubscribePostEvents calls onEvent for every event published on PostEventsChannel until ctx
// is done. Malformed payloads are logged and skipped.
func (n *Notifier) SubscribePostEvents(ctx context.Context, onEvent func(PostEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, PostEventsChannel)
	// wait for the subscription to be confirmed so events published right after return are seen
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", PostEventsChannel, err)
	}
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
				var event PostEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					middleware.Logger.Warn("malformed post event", "error", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("post event handler panicked", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}
