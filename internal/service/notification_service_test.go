package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/escalation-service/internal/config"
	"github.com/spec-kit/escalation-service/internal/domain"
	"github.com/spec-kit/escalation-service/internal/events"
)

func newNotificationFixture() (*NotificationService, events.Dispatcher, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(logger)
	svc := NewNotificationService(dispatcher, logger, config.NotificationConfig{
		EmailFrom:       "tickets@escalation.local",
		SMSGatewayURL:   "https://sms.example.com",
		WhatsAppGateway: "https://wa.example.com",
		TicketLinkBase:  "https://tickets.example.com/t",
	})
	svc.RegisterHandlers()
	return svc, dispatcher, logs
}

func channelCalls(logs *observer.ObservedLogs, channel string) int {
	return len(logs.FilterMessage(channel).All())
}

func TestNotificationStatusChangeEmailOnly(t *testing.T) {
	_, dispatcher, logs := newNotificationFixture()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "t-1",
		Ticket:   events.TicketSummary{TicketID: "t-1", Number: "TKT-2026-ABC123", Status: domain.TicketStatusInProgress},
		Payload:  events.StatusChangedPayload{OldStatus: domain.TicketStatusOpen, NewStatus: domain.TicketStatusInProgress},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := channelCalls(logs, "sendEmail"); got != 1 {
		t.Errorf("email calls = %d, want 1", got)
	}
	if got := channelCalls(logs, "sendSMS"); got != 0 {
		t.Errorf("sms calls = %d, want 0 before resolution", got)
	}
	if got := channelCalls(logs, "sendWhatsApp"); got != 0 {
		t.Errorf("whatsapp calls = %d, want 0 before resolution", got)
	}
}

func TestNotificationResolutionFansOutToAllChannels(t *testing.T) {
	_, dispatcher, logs := newNotificationFixture()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "t-1",
		Ticket:   events.TicketSummary{TicketID: "t-1", Number: "TKT-2026-ABC123", Status: domain.TicketStatusResolved},
		Payload:  events.StatusChangedPayload{OldStatus: domain.TicketStatusApproved, NewStatus: domain.TicketStatusResolved},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, channel := range []string{"sendEmail", "sendSMS", "sendWhatsApp"} {
		if got := channelCalls(logs, channel); got != 1 {
			t.Errorf("%s calls = %d, want 1", channel, got)
		}
	}
}

func TestNotificationCreationAndComments(t *testing.T) {
	_, dispatcher, logs := newNotificationFixture()

	for _, eventType := range []events.EventType{events.EventTicketCreated, events.EventTicketCommentAdded} {
		if err := dispatcher.Publish(context.Background(), events.Event{
			Type:   eventType,
			Ticket: events.TicketSummary{TicketID: "t-1", Number: "TKT-2026-ABC123", Status: domain.TicketStatusOpen},
		}); err != nil {
			t.Fatalf("Publish %s: %v", eventType, err)
		}
	}

	if got := channelCalls(logs, "sendEmail"); got != 2 {
		t.Errorf("email calls = %d, want 2", got)
	}
	if got := channelCalls(logs, "sendSMS"); got != 0 {
		t.Errorf("sms calls = %d, want 0", got)
	}
}

func TestNotificationDisabledChannelsStayQuiet(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	dispatcher := events.NewInMemoryDispatcher(logger)
	svc := NewNotificationService(dispatcher, logger, config.NotificationConfig{})
	svc.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:   events.EventTicketStatusChanged,
		Ticket: events.TicketSummary{TicketID: "t-1", Status: domain.TicketStatusResolved},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	for _, channel := range []string{"sendEmail", "sendSMS", "sendWhatsApp"} {
		if got := channelCalls(logs, channel); got != 0 {
			t.Errorf("%s calls = %d, want 0 with no endpoints configured", channel, got)
		}
	}
}
