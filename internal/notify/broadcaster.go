package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel naming for the realtime event bus. Subscribers (the websocket
// gateway) relay these to connected clients.
const (
	channelPrefix = "expenseflow:events:"
	// RoomAll fans out to every connected subscriber.
	RoomAll = "all"
	// RoomAdmin targets administrative dashboards only.
	RoomAdmin = "admin"
)

// Event names published on the bus.
const (
	EventExpenseCreated       = "expense-created"
	EventExpenseStatusUpdated = "expense-status-updated"
	EventDashboardUpdate      = "dashboard-update"
	EventBudgetAlert          = "budget-alert"
	EventAnomalyAlert         = "anomaly-alert"
)

// Broadcaster publishes named events with JSON payloads to an audience.
type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, payload any) error
}

// Envelope is the wire format published on the event bus.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// RedisBroadcaster publishes events over Redis pub/sub.
type RedisBroadcaster struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisBroadcaster constructs the pub/sub publisher.
func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, now: time.Now}
}

// Broadcast publishes the event to the given room; an empty room means all
// subscribers.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, room, event string, payload any) error {
	if room == "" {
		room = RoomAll
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal %s payload: %w", event, err)
	}
	envelope, err := json.Marshal(Envelope{Event: event, Payload: raw, At: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("notify: marshal %s envelope: %w", event, err)
	}
	if err := b.client.Publish(ctx, channelPrefix+room, envelope).Err(); err != nil {
		return fmt.Errorf("notify: publish %s: %w", event, err)
	}
	return nil
}

// ChannelFor returns the pub/sub channel name for a room, for subscribers.
func ChannelFor(room string) string {
	if room == "" {
		room = RoomAll
	}
	return channelPrefix + room
}
