package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/sayantan-work/easydo-hrms-mcp/internal/events"
	"github.com/sayantan-work/easydo-hrms-mcp/internal/observability"
)

// StartAuditWorker subscribes the audit sink to every event type the tool
// surface emits. Records land in the structured log so that each query and
// each denial can be traced back to a verified identity.
func StartAuditWorker(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	sink := &auditSink{metrics: metrics, logger: logger.Named("audit")}
	for _, t := range []events.EventType{
		events.EventLoginInitiated,
		events.EventLoginVerified,
		events.EventLogout,
		events.EventAccessDenied,
		events.EventQueryExecuted,
		events.EventQueryRejected,
	} {
		dispatcher.Subscribe(t, sink.handle)
	}
}

type auditSink struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

func (s *auditSink) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.Actor.UserID != 0 {
		fields = append(fields, zap.Int64("user_id", event.Actor.UserID))
	}
	if event.Actor.Phone != "" {
		fields = append(fields, zap.String("phone", event.Actor.Phone))
	}
	if event.Environment != "" {
		fields = append(fields, zap.String("environment", string(event.Environment)))
	}
	if event.Tool != "" {
		fields = append(fields, zap.String("tool", event.Tool))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	s.logger.Info("audit event", fields...)

	if s.metrics != nil {
		switch p := event.Payload.(type) {
		case events.AccessDeniedPayload:
			s.metrics.RecordDenial(event.Tool, p.Role)
		case events.QueryRejectedPayload:
			s.metrics.RecordRejection(p.Code)
		}
	}
	return nil
}
