package discord

import "context"

// Discord defines the interface for the Discord client.
type Discord interface {
	Start(ctx context.Context) error
	Stop() error
}
