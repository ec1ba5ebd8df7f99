package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var received []string
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, event Event) error {
		received = append(received, event.ID)
		return nil
	})
	dispatcher.Subscribe(EventTicketAssigned, func(_ context.Context, event Event) error {
		t.Errorf("handler for %s received %s", EventTicketAssigned, event.Type)
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{ID: "evt-1", Type: EventTicketCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(received) != 1 || received[0] != "evt-1" {
		t.Errorf("received = %v, want [evt-1]", received)
	}
}

func TestDispatcherHandlerErrorDoesNotStopDelivery(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	second := false
	dispatcher.Subscribe(EventAnnouncementPosted, func(context.Context, Event) error {
		return errors.New("boom")
	})
	dispatcher.Subscribe(EventAnnouncementPosted, func(context.Context, Event) error {
		second = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventAnnouncementPosted}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !second {
		t.Error("second handler not invoked after first handler errored")
	}
}

func TestDispatcherNoSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	if err := dispatcher.Publish(context.Background(), Event{Type: EventTicketStatusChanged}); err != nil {
		t.Fatalf("Publish with no subscribers: %v", err)
	}
}
