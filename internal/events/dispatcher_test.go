package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var statusCalls, createdCalls int
	d.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		statusCalls++
		return nil
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		createdCalls++
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketStatusChanged, TicketID: "t-1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if statusCalls != 1 || createdCalls != 0 {
		t.Errorf("calls = (%d, %d), want (1, 0)", statusCalls, createdCalls)
	}
}

func TestDispatcherFanOut(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var calls int
	handler := func(context.Context, Event) error {
		calls++
		return nil
	}
	d.Subscribe(EventTicketAssigned, handler)
	d.Subscribe(EventTicketAssigned, handler)

	if err := d.Publish(context.Background(), Event{Type: EventTicketAssigned}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDispatcherSwallowsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var secondRan bool
	d.Subscribe(EventTicketCommentAdded, func(context.Context, Event) error {
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketCommentAdded, func(context.Context, Event) error {
		secondRan = true
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketCommentAdded}); err != nil {
		t.Fatalf("Publish returned handler error: %v", err)
	}
	if !secondRan {
		t.Error("later handler skipped after earlier failure")
	}
}

func TestDispatcherNoSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	if err := d.Publish(context.Background(), Event{Type: EventTicketSeverityChanged}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}
