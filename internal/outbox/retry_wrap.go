package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/firmbook/internal/domain/outbox"
	"github.com/NordCoder/firmbook/internal/obs/retry"
)

// ErrBadPayload marks a row whose data can never be dispatched.
var ErrBadPayload = errors.New("undecodable outbox payload")

// WrapKindHandler retries h under p. Payload errors fail on the first
// attempt; the final error names the event kind.
func WrapKindHandler(kind outbox.Kind, h outbox.KindHandler, p retry.Policy) outbox.KindHandler {
	retryable := p.Retryable
	p.Retryable = func(err error) bool {
		if errors.Is(err, ErrBadPayload) {
			return false
		}
		if retryable == nil {
			return err != nil
		}
		return retryable(err)
	}
	return func(ctx context.Context, data []byte) error {
		if err := retry.Do(ctx, func() error { return h(ctx, data) }, p); err != nil {
			return fmt.Errorf("dispatch %s: %w", kind, err)
		}
		return nil
	}
}
