package delivery

import (
	"context"

	"github.com/cockroachdb/errors"

	"ticketbot/models"
)

var (
	// ErrChannelUnresolvable means the configured channel does not exist or
	// the bot cannot see it. The occurrence is dropped.
	ErrChannelUnresolvable = errors.New("delivery channel unresolvable")

	// ErrDeliveryFailed wraps transport-level send failures. No retry; the
	// next natural occurrence is the retry.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// Sink posts rendered artifacts to the guild's channel. Implementations must
// return errors rather than panic; the scheduler's job wrapper contains them.
type Sink interface {
	// Ready verifies the channel resolves before the scheduler starts.
	Ready(ctx context.Context) error
	// SendFile posts an image artifact as a file attachment.
	SendFile(ctx context.Context, path string) error
	// SendText posts a text artifact as a formatted message block.
	SendText(ctx context.Context, artifact models.TextArtifact) error
}
