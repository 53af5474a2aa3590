package events

import (
	"context"

	"github.com/tablepick/topdish/pkg/logger"
)

// LogPublisher writes change events to the structured log. Default backend
// when no broker is configured.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a log-backed publisher.
func NewLogPublisher(l logger.Logger) *LogPublisher {
	if l == nil {
		l = logger.Get().Named("events")
	}
	return &LogPublisher{logger: l}
}

// Publish logs the change.
func (p *LogPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	prevPosition := 0
	if ev.Before != nil {
		prevPosition = ev.Before.Position
	}
	p.logger.Info(ctx, "ranking changed",
		logger.String("kind", string(ev.Kind)),
		logger.String("user", ev.Scope.UserID),
		logger.String("restaurant", ev.Scope.RestaurantID),
		logger.String("dish_type", ev.Scope.DishTypeID),
		logger.String("dish", ev.After.DishID),
		logger.Int("prev_position", prevPosition),
		logger.Int("new_position", ev.After.Position),
	)
	return nil
}
