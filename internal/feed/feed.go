// Package feed publishes resolved check-ins to a Redis channel so other
// gates and dashboards can follow entrance traffic.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ticketdawg/checkin/internal/scanner"
)

// EventType tags every message on the channel.
const EventType = "checkin.attempt"

// Event is the JSON message published per attempt. The scanned payload
// itself is never published.
type Event struct {
	Type      string     `json:"type"`
	Gate      string     `json:"gate"`
	AttemptID string     `json:"attemptId"`
	Status    string     `json:"status"`
	Reason    string     `json:"reason,omitempty"`
	TicketID  string     `json:"ticketId,omitempty"`
	Email     string     `json:"email,omitempty"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	IssuedBy  string     `json:"issuedBy,omitempty"`
	At        time.Time  `json:"at"`
}

// NewEvent describes a resolved attempt seen at gate.
func NewEvent(gate string, a scanner.Attempt) Event {
	ev := Event{
		Type:      EventType,
		Gate:      gate,
		AttemptID: a.ID.String(),
		Status:    a.Status.String(),
		Reason:    string(a.Reason),
		At:        a.FinishedAt.UTC(),
	}
	if r := a.Result; r != nil {
		ev.TicketID = r.TicketID
		ev.Email = r.Email
		ev.IssuedBy = r.IssuedBy
		if !r.UsedAt.IsZero() {
			usedAt := r.UsedAt.UTC()
			ev.UsedAt = &usedAt
		}
	}
	return ev
}

// Client wraps a connected Redis client.
type Client struct {
	*redis.Client
}

// Connect parses a redis:// or rediss:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{client}, nil
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher is a scanner.Sink that publishes to one channel.
type Publisher struct {
	rdb     redisPublisher
	channel string
	gate    string
}

func NewPublisher(rdb redisPublisher, channel, gate string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel, gate: gate}
}

// Publish implements scanner.Sink.
func (p *Publisher) Publish(ctx context.Context, a scanner.Attempt) error {
	data, err := json.Marshal(NewEvent(p.gate, a))
	if err != nil {
		return fmt.Errorf("feed.Publish: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	receivers, err := p.rdb.Publish(ctx, p.channel, data).Result()
	if err != nil {
		return fmt.Errorf("feed.Publish: %w", err)
	}
	log.Debug().
		Str("channel", p.channel).
		Str("attemptId", a.ID.String()).
		Int64("receivers", receivers).
		Msg("check-in published")
	return nil
}

// DecodeEvent parses one channel message.
func DecodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("feed.DecodeEvent: %w", err)
	}
	if ev.Type != EventType {
		return Event{}, fmt.Errorf("feed.DecodeEvent: unexpected type %q", ev.Type)
	}
	return ev, nil
}

// Follow delivers every event on channel to fn until ctx is done.
// Undecodable messages are logged and skipped.
func (c *Client) Follow(ctx context.Context, channel string, fn func(Event)) error {
	pubsub := c.Subscribe(ctx, channel)
	defer pubsub.Close() //nolint:errcheck

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("feed.Follow: subscribe %s: %w", channel, err)
	}
	log.Debug().Str("channel", channel).Msg("redis pubsub subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := DecodeEvent(msg.Payload)
			if err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("skipping feed message")
				continue
			}
			fn(ev)
		}
	}
}
