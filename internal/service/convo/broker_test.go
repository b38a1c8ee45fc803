package convo

import (
	"testing"

	model "github.com/parleylab/parley/internal/model/convo"
)

func TestBrokerDeliversToSubscriber(t *testing.T) {
	broker := NewBroker()
	events, cancel := broker.Subscribe("conv-1")
	defer cancel()

	broker.Publish("conv-1", model.Step{Type: model.StepAP, Content: "hi"})

	select {
	case event := <-events:
		if event.ConversationID != "conv-1" || event.Step.Content != "hi" {
			t.Fatalf("unexpected event %+v", event)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestBrokerIsolatesConversations(t *testing.T) {
	broker := NewBroker()
	events, cancel := broker.Subscribe("conv-1")
	defer cancel()

	broker.Publish("conv-2", model.Step{Type: model.StepAP})

	select {
	case event := <-events:
		t.Fatalf("event leaked across conversations: %+v", event)
	default:
	}
}

func TestBrokerSkipsSlowSubscriber(t *testing.T) {
	broker := NewBroker()
	events, cancel := broker.Subscribe("conv-1")
	defer cancel()

	// Publishing past the buffer must not block.
	for i := 0; i < 20; i++ {
		broker.Publish("conv-1", model.Step{Type: model.StepAP})
	}

	if len(events) != cap(events) {
		t.Fatalf("expected a full buffer, got %d of %d", len(events), cap(events))
	}
}

func TestBrokerCancelStopsDelivery(t *testing.T) {
	broker := NewBroker()
	events, cancel := broker.Subscribe("conv-1")
	cancel()

	broker.Publish("conv-1", model.Step{Type: model.StepAP})

	select {
	case <-events:
		t.Fatal("cancelled subscription must not receive events")
	default:
	}
}
