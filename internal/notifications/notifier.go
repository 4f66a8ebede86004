// Package notifications provides best-effort push notification delivery.
// Sends are fire-and-forget: no retry, no delivery confirmation, and a
// failure is never allowed to surface past the dispatch call site.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Event types carried in a push's data payload.
const (
	EventLike    = "like"
	EventComment = "comment"
)

// Push is one notification addressed to a device token.
type Push struct {
	Token string            `json:"-"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier is the injected push capability. Implementations must treat an
// empty token as a silent no-op and may fail; callers swallow the error.
type Notifier interface {
	Send(ctx context.Context, push Push) error
}

const deviceChannelPrefix = "push:device:"

// DeviceChannel derives the Redis channel for a device token.
func DeviceChannel(token string) string {
	return deviceChannelPrefix + token
}

// RedisNotifier publishes push payloads to per-device Redis channels; the
// websocket Hub subscribes on the other side and fans out to connections
// registered for the token.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier creates a Notifier backed by the provided Redis client.
// A nil client yields a notifier whose sends are no-ops.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Send publishes the push to the device's channel.
func (n *RedisNotifier) Send(ctx context.Context, push Push) error {
	if push.Token == "" || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(push)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}
	return n.rdb.Publish(ctx, DeviceChannel(push.Token), string(payload)).Err()
}

// StartPatternSubscriber subscribes to all device channels and calls
// onMessage with the device token and raw payload for each incoming push.
// It returns after spawning the consumer goroutine, which exits when ctx is
// canceled or the subscription closes.
func (n *RedisNotifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(token string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, deviceChannelPrefix+"*")
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
							log.Printf("PANIC in push subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(strings.TrimPrefix(msg.Channel, deviceChannelPrefix), msg.Payload)
				}()
			}
		}
	}()

	return nil
}
