// Package bus fans chat frames out across server instances. Draft turns are
// single-owner and never cross the bus.
package bus

import (
	"context"

	"github.com/fantasystreet/league-backend/internal/wire"
)

// Envelope wraps a frame with enough routing info to land it in the right
// room on another instance. Origin lets instances skip their own messages.
type Envelope struct {
	Origin   string     `json:"origin"`
	LeagueID string     `json:"leagueId"`
	Kind     string     `json:"kind"`
	Frame    wire.Frame `json:"frame"`
}

type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe invokes fn for every envelope until ctx is cancelled.
	Subscribe(ctx context.Context, fn func(Envelope))
	Close() error
}

// Noop is used when no bus is configured: single-instance deployments.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error  { return nil }
func (Noop) Subscribe(context.Context, func(Envelope)) {}
func (Noop) Close() error                              { return nil }
