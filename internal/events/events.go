// Package events publishes planner decisions for external animators and
// monitors.
package events

import (
	"context"
	"time"

	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// Type names a planner decision.
type Type string

const (
	TypeStep   Type = "step"
	TypeWait   Type = "wait"
	TypeDone   Type = "done"
	TypeError  Type = "error"
	TypeLock   Type = "lock"
	TypeUnlock Type = "unlock"
)

// Topic used for every planner decision.
const TopicDecisions = "decisions"

// Event is one published planner decision.
type Event struct {
	ID        string       `json:"id"`
	Type      Type         `json:"type"`
	Robot     core.RobotID `json:"robot,omitempty"`
	Direction string       `json:"direction,omitempty"`
	Sidestep  bool         `json:"sidestep,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Kind      string       `json:"kind,omitempty"` // Error kind for TypeError
	Error     string       `json:"error,omitempty"`
	Cell      *core.Cell   `json:"cell,omitempty"`
	Time      time.Time    `json:"time"`
}

// Handler consumes events delivered by a subscription.
type Handler func(ctx context.Context, e Event) error

// Publisher sends events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, e Event) error
	Close() error
}
