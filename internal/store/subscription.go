package store

import (
	"context"
	"errors"
	"log"
	"sync"

	"spot-service/internal/live"
)

// subscribeList turns a broker signal stream into full-snapshot redelivery:
// one snapshot on subscribe, then a fresh one after every signal. Requery
// failures are logged and skipped so a transient error does not end the
// stream.
func subscribeList(broker *live.Broker, topic string, list func(ctx context.Context) ([]Document, error)) (<-chan []Document, func()) {
	signals, cancelSignals := broker.Subscribe(topic)
	out := make(chan []Document, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			docs, err := list(context.Background())
			if err != nil {
				log.Printf("subscription requery failed topic=%s: %v", topic, err)
			} else {
				select {
				case out <- docs:
				case <-done:
					return
				}
			}
			if _, ok := <-signals; !ok {
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelSignals()
			close(done)
		})
	}
	return out, cancel
}

// subscribeDocument is subscribeList for a single document; snapshots where
// the document is missing are skipped.
func subscribeDocument(broker *live.Broker, topic string, get func(ctx context.Context) (Document, error)) (<-chan Document, func()) {
	signals, cancelSignals := broker.Subscribe(topic)
	out := make(chan Document, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			doc, err := get(context.Background())
			if err == nil {
				select {
				case out <- doc:
				case <-done:
					return
				}
			} else if !errors.Is(err, ErrNotFound) {
				log.Printf("subscription requery failed topic=%s: %v", topic, err)
			}
			if _, ok := <-signals; !ok {
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelSignals()
			close(done)
		})
	}
	return out, cancel
}
