package live

import "testing"

func TestBrokerSubscribeAndPublish(t *testing.T) {
	broker := NewBroker()

	ch, cancel := broker.Subscribe("spots")
	defer cancel()

	broker.Publish("spots")
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatalf("expected open channel")
		}
	default:
		t.Fatalf("expected pending signal")
	}
}

func TestBrokerCoalescesBursts(t *testing.T) {
	broker := NewBroker()

	ch, cancel := broker.Subscribe("spots")
	defer cancel()

	broker.Publish("spots")
	broker.Publish("spots")
	broker.Publish("spots")

	<-ch
	select {
	case <-ch:
		t.Fatalf("expected burst to coalesce into one signal")
	default:
	}
}

func TestBrokerCancelRemovesSubscriber(t *testing.T) {
	broker := NewBroker()

	ch, cancel := broker.Subscribe("plans")
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	broker.Publish("plans")
}

func TestBrokerCloseClosesChannels(t *testing.T) {
	broker := NewBroker()

	ch, _ := broker.Subscribe("plans")
	broker.Close()

	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after broker shutdown")
	}
}
