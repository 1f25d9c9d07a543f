package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/events"
)

// NotificationService listens for ticket events and records them. Real
// delivery channels (email, webhooks) hang off these handlers; for now
// every event becomes a structured log line.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	return &NotificationService{logger: logger.Named("notifications")}
}

// RegisterHandlers subscribes the service to every ticket event type.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketPriorityChanged,
		events.EventTicketResponseAdded,
		events.EventTicketForceClosed,
	} {
		dispatcher.Subscribe(eventType, s.handle)
	}
}

func (s *NotificationService) handle(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.Actor.System {
		fields = append(fields, zap.Bool("system", true))
	} else if event.Actor.UserID != nil {
		fields = append(fields,
			zap.String("actor_id", *event.Actor.UserID),
			zap.String("actor_role", string(event.Actor.Role)),
		)
	}
	s.logger.Info("ticket event", fields...)
	return nil
}
