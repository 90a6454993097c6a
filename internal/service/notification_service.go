package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/notify"
)

const (
	notifyTimeout   = 5 * time.Second
	notifyQueueSize = 256
)

// notifiedEvents are forwarded to the configured sink.
var notifiedEvents = []events.EventType{
	events.EventTicketCreated,
	events.EventTicketUpdated,
	events.EventTicketStatusChanged,
	events.EventTicketApprovalChanged,
	events.EventTicketAttachmentAdded,
	events.EventTicketAttachmentRemoved,
	events.EventTicketDeleted,
	events.EventTicketsRefresh,
}

// NotificationService forwards domain events to the notification sink.
// Handlers only enqueue; Run performs the delivery off the request path.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notify.Notifier
	logger     *zap.Logger
	queue      chan events.Event
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notify.Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		queue:      make(chan events.Event, notifyQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.notifier == nil {
		return
	}
	for _, eventType := range notifiedEvents {
		n.dispatcher.Subscribe(eventType, n.forward)
	}
}

// forward never blocks the publishing operation. A full queue drops the event.
func (n *NotificationService) forward(_ context.Context, event events.Event) error {
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Run delivers queued events until ctx is cancelled. Events still queued at
// that point are discarded.
func (n *NotificationService) Run(ctx context.Context) {
	if n.notifier == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			if pending := len(n.queue); pending > 0 {
				n.logger.Warn("discarding queued notifications", zap.Int("count", pending))
			}
			return
		case event := <-n.queue:
			n.deliver(event)
		}
	}
}

func (n *NotificationService) deliver(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := n.notifier.Notify(ctx, event); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// Close releases the sink. Call it after Run has returned.
func (n *NotificationService) Close() error {
	if n.notifier == nil {
		return nil
	}
	return n.notifier.Close()
}
