package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NordCoder/firmbook/internal/domain/events"
)

type AuthEventsKafka struct {
	p *Producer
}

func NewAuthEventsKafka(p *Producer) *AuthEventsKafka { return &AuthEventsKafka{p: p} }

var _ events.Publisher = (*AuthEventsKafka)(nil)

// PublishUserRegistered keys by user id so one user's events stay ordered.
func (e *AuthEventsKafka) PublishUserRegistered(ctx context.Context, ev events.UserRegistered) error {
	if ev.Type == "" {
		ev.Type = events.TypeUserRegistered
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal user registered: %w", err)
	}
	return e.p.Publish(ctx, []byte(ev.UserID), value)
}
