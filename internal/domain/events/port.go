package events

import (
	"context"
	"time"
)

const TypeUserRegistered = "user.registered"

type UserRegistered struct {
	Type   string    `json:"type"`
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

// Publisher delivers auth events to downstream consumers.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, e UserRegistered) error
}
