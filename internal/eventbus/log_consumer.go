package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/matthewbaird/fieldops/internal/logging"
)

// LogConsumer logs every event.
type LogConsumer struct {
	logger *zap.Logger
}

func NewLogConsumer(logger *zap.Logger) *LogConsumer {
	return &LogConsumer{logger: logging.OrNop(logger)}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt Event) error {
	fields := []zap.Field{
		zap.String("event_id", evt.ID),
		zap.String("entity", evt.Subject.Entity),
		zap.String("record_id", evt.Subject.ID),
		zap.String("actor", evt.Actor),
	}
	if evt.Type == StateChanged {
		fields = append(fields, zap.String("field", evt.Field), zap.String("from", evt.From), zap.String("to", evt.To))
	}
	if len(evt.Actions) > 0 {
		fields = append(fields, zap.Strings("actions", evt.Actions))
	}
	c.logger.Info(string(evt.Type), fields...)
	return nil
}
