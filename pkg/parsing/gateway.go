package parsing

import "context"

// Gateway is the interface consumed by the onboarding engine.
// Client is the production implementation; Mock serves tests.
type Gateway interface {
	// Parse extracts structured data from a transcript.
	Parse(ctx context.Context, transcript string, tag ContextTag) (*Result, error)

	// Health checks service connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the gateway.
	Close() error
}
