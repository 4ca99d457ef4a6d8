package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned for reads and mutations on a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrSetFull is returned by AddToSetCapped when the target set is at its
	// capacity and the value is not already a member.
	ErrSetFull = errors.New("set is at capacity")
)

// Document is one JSON document in a named collection.
type Document struct {
	ID   string
	Data map[string]any
}

// DataTo unmarshals the document body into v.
func (d Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// DataFrom converts a struct into a document body.
func DataFrom(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Query selects documents from one collection. Where matches top-level
// fields by equality. OrderBy, when set, must name a field holding RFC 3339
// timestamps; results are sorted ascending by that field with document id as
// tie-breaker.
type Query struct {
	Collection string
	Where      map[string]any
	OrderBy    string
}

// Store is the remote document-store contract the services are written
// against. Set-valued fields hold JSON arrays of strings; the set mutations
// are atomic against the backing store so concurrent writers from different
// devices cannot lose each other's updates.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set writes the full document. With merge, existing top-level fields
	// not present in data are preserved; the document is created if absent.
	Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	// Update overwrites the given top-level fields of an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error

	// AddToSet atomically adds value to the array field, skipping
	// duplicates. Adding an already-present value is a no-op.
	AddToSet(ctx context.Context, collection, id, field, value string) error
	// AddToSetCapped is AddToSet with a server-side size predicate: the add
	// is rejected with ErrSetFull when the set already holds max members.
	AddToSetCapped(ctx context.Context, collection, id, field, value string, max int) error
	RemoveFromSet(ctx context.Context, collection, id, field, value string) error

	// Increment atomically adds amount to a numeric field, creating the
	// document and field as needed.
	Increment(ctx context.Context, collection, id, field string, amount int) error

	List(ctx context.Context, q Query) ([]Document, error)

	// Subscribe delivers the full current result set of q immediately and
	// again after every change in the collection. The channel closes on
	// cancel or store shutdown.
	Subscribe(q Query) (<-chan []Document, func())
	// SubscribeDocument is Subscribe for a single document.
	SubscribeDocument(collection, id string) (<-chan Document, func())
}
