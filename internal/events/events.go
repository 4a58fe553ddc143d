package events

import (
	"context"
	"time"
)

const subjectPrefix = "skillswap.swap."

// KindRated is published after a participant leaves feedback.
const KindRated = "rated"

// SwapEvent is the payload published for every swap lifecycle change.
type SwapEvent struct {
	Kind        string    `json:"-"`
	SwapID      string    `json:"swapId"`
	RequesterID string    `json:"requesterId"`
	RequestedID string    `json:"requestedId"`
	Status      string    `json:"status"`
	ActorID     string    `json:"actorId"`
	At          time.Time `json:"at"`
}

// Subject returns the subject the event is published on, e.g. skillswap.swap.accepted.
func (e SwapEvent) Subject() string {
	kind := e.Kind
	if kind == "" {
		kind = e.Status
	}
	return subjectPrefix + kind
}

type Publisher interface {
	Publish(ctx context.Context, evt SwapEvent) error
	Close()
}

// Noop drops every event. Used when NATS is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, SwapEvent) error { return nil }
func (Noop) Close()                                   {}
