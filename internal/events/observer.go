package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/warehouse-planner/internal/algo"
	"github.com/elektrokombinacija/warehouse-planner/internal/core"
)

// Observer turns planner callbacks into published events. Publish
// failures are logged and never reach the planner.
type Observer struct {
	pub     Publisher
	topic   string
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

var _ algo.Observer = (*Observer)(nil)

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithTopic overrides the topic events are published to.
func WithTopic(topic string) ObserverOption {
	return func(o *Observer) { o.topic = topic }
}

// WithPublishTimeout bounds each publish call.
func WithPublishTimeout(d time.Duration) ObserverOption {
	return func(o *Observer) { o.timeout = d }
}

// NewObserver creates an observer publishing to TopicDecisions.
func NewObserver(pub Publisher, logger *zap.Logger, opts ...ObserverOption) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Observer{
		pub:     pub,
		topic:   TopicDecisions,
		logger:  logger,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnSearch is not published; searches are reported through metrics.
func (o *Observer) OnSearch(core.RobotID, int, bool) {}

func (o *Observer) OnResult(res algo.Result) {
	e := o.event(Type(res.Kind.String()), res.Robot)
	switch res.Kind {
	case algo.ResultStep:
		e.Direction = res.Direction.String()
		e.Sidestep = res.Sidestep
	case algo.ResultWait:
		e.Reason = string(res.Reason)
	}
	o.publish(e)
}

func (o *Observer) OnError(robot core.RobotID, err error) {
	e := o.event(TypeError, robot)
	e.Kind = algo.KindOf(err).String()
	e.Error = err.Error()
	o.publish(e)
}

func (o *Observer) OnLock(robot core.RobotID, target core.Cell, _ *algo.Ledger) {
	e := o.event(TypeLock, robot)
	e.Cell = &target
	o.publish(e)
}

func (o *Observer) OnUnlock(robot core.RobotID, released core.Cell, _ *algo.Ledger) {
	e := o.event(TypeUnlock, robot)
	e.Cell = &released
	o.publish(e)
}

func (o *Observer) event(t Type, robot core.RobotID) Event {
	return Event{
		ID:    uuid.New().String(),
		Type:  t,
		Robot: robot,
		Time:  o.now().UTC(),
	}
}

func (o *Observer) publish(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := o.pub.Publish(ctx, o.topic, e); err != nil {
		o.logger.Warn("failed to publish planner event",
			zap.String("event_id", e.ID),
			zap.String("type", string(e.Type)),
			zap.Error(err))
	}
}
