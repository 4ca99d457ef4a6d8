package store

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"sync"
	"time"

	"spot-service/internal/live"
)

// MemoryStore is an in-process Store with the same semantics as
// PostgresStore, used by tests. Mutations hold one lock, so set and counter
// updates are atomic exactly like their SQL counterparts.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]map[string]any
	broker *live.Broker
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]map[string]map[string]any),
		broker: live.NewBroker(),
	}
}

var _ Store = (*MemoryStore)(nil)

// Close closes all subscription channels.
func (s *MemoryStore) Close() {
	s.broker.Close()
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: copyDoc(doc)}, nil
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, data map[string]any, merge bool) error {
	normalized, err := normalize(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.data[collection]; !ok {
		s.data[collection] = make(map[string]map[string]any)
	}
	if existing, ok := s.data[collection][id]; ok && merge {
		for k, v := range normalized {
			existing[k] = v
		}
	} else {
		s.data[collection][id] = normalized
	}
	s.mu.Unlock()

	s.broker.Publish(collection)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	normalized, err := normalize(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	doc, ok := s.data[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	for k, v := range normalized {
		doc[k] = v
	}
	s.mu.Unlock()

	s.broker.Publish(collection)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	if _, ok := s.data[collection][id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.data[collection], id)
	s.mu.Unlock()

	s.broker.Publish(collection)
	return nil
}

func (s *MemoryStore) AddToSet(_ context.Context, collection, id, field, value string) error {
	return s.addToSet(collection, id, field, value, 0)
}

func (s *MemoryStore) AddToSetCapped(_ context.Context, collection, id, field, value string, max int) error {
	return s.addToSet(collection, id, field, value, max)
}

func (s *MemoryStore) addToSet(collection, id, field, value string, max int) error {
	s.mu.Lock()
	doc, ok := s.data[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	members := toSet(doc[field])
	if setContains(toAny(members), value) {
		s.mu.Unlock()
		return nil
	}
	if max > 0 && len(members) >= max {
		s.mu.Unlock()
		return ErrSetFull
	}
	doc[field] = toAny(append(members, value))
	s.mu.Unlock()

	s.broker.Publish(collection)
	return nil
}

func (s *MemoryStore) RemoveFromSet(_ context.Context, collection, id, field, value string) error {
	s.mu.Lock()
	doc, ok := s.data[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	members := toSet(doc[field])
	kept := members[:0]
	removed := false
	for _, m := range members {
		if m == value {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	doc[field] = toAny(kept)
	s.mu.Unlock()

	if removed {
		s.broker.Publish(collection)
	}
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, collection, id, field string, amount int) error {
	s.mu.Lock()
	if _, ok := s.data[collection]; !ok {
		s.data[collection] = make(map[string]map[string]any)
	}
	doc, ok := s.data[collection][id]
	if !ok {
		doc = make(map[string]any)
		s.data[collection][id] = doc
	}
	current, _ := doc[field].(float64)
	doc[field] = current + float64(amount)
	s.mu.Unlock()

	s.broker.Publish(collection)
	return nil
}

func (s *MemoryStore) List(_ context.Context, q Query) ([]Document, error) {
	where, err := normalize(q.Where)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var docs []Document
	for id, doc := range s.data[q.Collection] {
		if matches(doc, where) {
			docs = append(docs, Document{ID: id, Data: copyDoc(doc)})
		}
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if q.OrderBy != "" {
			ti := parseDocTime(docs[i].Data[q.OrderBy])
			tj := parseDocTime(docs[j].Data[q.OrderBy])
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (s *MemoryStore) Subscribe(q Query) (<-chan []Document, func()) {
	return subscribeList(s.broker, q.Collection, func(ctx context.Context) ([]Document, error) {
		return s.List(ctx, q)
	})
}

func (s *MemoryStore) SubscribeDocument(collection, id string) (<-chan Document, func()) {
	return subscribeDocument(s.broker, collection, func(ctx context.Context) (Document, error) {
		return s.Get(ctx, collection, id)
	})
}

func normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func copyDoc(doc map[string]any) map[string]any {
	out, _ := normalize(doc)
	return out
}

func matches(doc, where map[string]any) bool {
	for k, want := range where {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

func toSet(field any) []string {
	arr, _ := field.([]any)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toAny(members []string) []any {
	out := make([]any, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

func parseDocTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
