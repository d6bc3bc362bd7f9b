package port

import (
	"context"

	"medrag/internal/domain"
)

// InteractionLog is an append-only sink of completed interactions.
// Implementations serialize concurrent appends.
type InteractionLog interface {
	Append(ctx context.Context, in domain.Interaction) error

	Close() error
}

// InteractionHistory reads back logged interactions.
type InteractionHistory interface {
	// Recent returns up to n of the latest interactions, oldest first.
	// n <= 0 returns all of them.
	Recent(ctx context.Context, n int) ([]domain.Interaction, error)
}
