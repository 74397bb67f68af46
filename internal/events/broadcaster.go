// Package events publishes dialogue lifecycle events over Redis Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/dialogue-engine/pkg/engine"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeStarted      EventType = "dialogue.started"
	EventTypePhaseChanged EventType = "dialogue.phase_changed"
	EventTypeEnded        EventType = "dialogue.ended"
	EventTypeSkipped      EventType = "dialogue.skipped"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id"`
	Script    string         `json:"script,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel is the Pub/Sub channel for a session.
func Channel(id uuid.UUID) string {
	return fmt.Sprintf("dialogue-events:%s", id.String())
}

// Broadcaster publishes one session's engine events. Publish failures are
// logged and never interrupt the run.
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
	sessionID   uuid.UUID
	script      string
}

// Ensure Broadcaster implements engine.Observer
var _ engine.Observer = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, sessionID uuid.UUID, script string, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
		sessionID:   sessionID,
		script:      script,
	}
}

func (b *Broadcaster) Started(ctx context.Context) {
	_ = b.publish(ctx, Event{Type: EventTypeStarted})
}

func (b *Broadcaster) PhaseChanged(ctx context.Context, from, to int) {
	_ = b.publish(ctx, Event{
		Type: EventTypePhaseChanged,
		Data: map[string]any{"from": from, "to": to},
	})
}

func (b *Broadcaster) Ended(ctx context.Context, skipped bool) {
	t := EventTypeEnded
	if skipped {
		t = EventTypeSkipped
	}
	_ = b.publish(ctx, Event{Type: t})
}

func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	event.SessionID = b.sessionID.String()
	event.Script = b.script
	channel := Channel(b.sessionID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published", "channel", channel, "event_type", event.Type)
	return nil
}

// Subscribe decodes events for a session until ctx ends. The returned
// channel is closed when the subscription stops.
func Subscribe(ctx context.Context, client *redis.Client, id uuid.UUID, logger *slog.Logger) (<-chan Event, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sub := client.Subscribe(ctx, Channel(id))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Warn("Dropping malformed event", "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
