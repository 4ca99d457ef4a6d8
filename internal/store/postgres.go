package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"spot-service/internal/live"
)

// PostgresStore keeps every collection in one jsonb-backed table and fans
// change signals out through a broker so subscriptions can requery.
type PostgresStore struct {
	db     *sqlx.DB
	broker *live.Broker
}

// NewPostgresStore wraps an sqlx handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, broker: live.NewBroker()}
}

// Close shuts down change fan-out; open subscription channels are closed.
func (s *PostgresStore) Close() {
	s.broker.Close()
}

var _ Store = (*PostgresStore)(nil)

// Get fetches one document.
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT doc FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return decodeDocument(id, raw)
}

// Set upserts the document, merging top-level fields when merge is set.
func (s *PostgresStore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	query := `INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
        ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`
	if merge {
		query = `INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
            ON CONFLICT (collection, id) DO UPDATE SET doc = documents.doc || EXCLUDED.doc, updated_at = NOW()`
	}
	if _, err := s.db.ExecContext(ctx, query, collection, id, body); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	s.broker.Publish(collection)
	return nil
}

// Update overwrites the given top-level fields of an existing document.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET doc = doc || $3, updated_at = NOW() WHERE collection=$1 AND id=$2`,
		collection, id, body)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	s.broker.Publish(collection)
	return nil
}

// Delete removes the document for every viewer.
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	s.broker.Publish(collection)
	return nil
}

// AddToSet atomically adds value to the array field unless already present.
func (s *PostgresStore) AddToSet(ctx context.Context, collection, id, field, value string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents
        SET doc = jsonb_set(doc, ARRAY[$3], COALESCE(doc->$3, '[]'::jsonb) || to_jsonb($4::text), true),
            updated_at = NOW()
        WHERE collection=$1 AND id=$2
          AND NOT COALESCE(doc->$3, '[]'::jsonb) @> to_jsonb($4::text)`,
		collection, id, field, value)
	if err != nil {
		return fmt.Errorf("add to set %s/%s.%s: %w", collection, id, field, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		// Either the document is missing or the value was already a member.
		if _, err := s.Get(ctx, collection, id); err != nil {
			return err
		}
		return nil
	}
	s.broker.Publish(collection)
	return nil
}

// AddToSetCapped adds value with the capacity predicate evaluated inside the
// same statement, so two concurrent adds racing for the last slot cannot
// both win.
func (s *PostgresStore) AddToSetCapped(ctx context.Context, collection, id, field, value string, max int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents
        SET doc = jsonb_set(doc, ARRAY[$3], COALESCE(doc->$3, '[]'::jsonb) || to_jsonb($4::text), true),
            updated_at = NOW()
        WHERE collection=$1 AND id=$2
          AND NOT COALESCE(doc->$3, '[]'::jsonb) @> to_jsonb($4::text)
          AND jsonb_array_length(COALESCE(doc->$3, '[]'::jsonb)) < $5`,
		collection, id, field, value, max)
	if err != nil {
		return fmt.Errorf("add to set %s/%s.%s: %w", collection, id, field, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		doc, err := s.Get(ctx, collection, id)
		if err != nil {
			return err
		}
		if setContains(doc.Data[field], value) {
			return nil
		}
		return ErrSetFull
	}
	s.broker.Publish(collection)
	return nil
}

// RemoveFromSet atomically removes value from the array field.
func (s *PostgresStore) RemoveFromSet(ctx context.Context, collection, id, field, value string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents
        SET doc = jsonb_set(doc, ARRAY[$3], COALESCE(doc->$3, '[]'::jsonb) - $4::text, true),
            updated_at = NOW()
        WHERE collection=$1 AND id=$2
          AND COALESCE(doc->$3, '[]'::jsonb) @> to_jsonb($4::text)`,
		collection, id, field, value)
	if err != nil {
		return fmt.Errorf("remove from set %s/%s.%s: %w", collection, id, field, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		if _, err := s.Get(ctx, collection, id); err != nil {
			return err
		}
		return nil
	}
	s.broker.Publish(collection)
	return nil
}

// Increment atomically adds amount to a numeric field, creating the document
// when absent.
func (s *PostgresStore) Increment(ctx context.Context, collection, id, field string, amount int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (collection, id, doc)
        VALUES ($1, $2, jsonb_build_object($3::text, $4::bigint))
        ON CONFLICT (collection, id) DO UPDATE
        SET doc = jsonb_set(documents.doc, ARRAY[$3],
                to_jsonb(COALESCE((documents.doc->>$3)::bigint, 0) + $4), true),
            updated_at = NOW()`,
		collection, id, field, amount)
	if err != nil {
		return fmt.Errorf("increment %s/%s.%s: %w", collection, id, field, err)
	}
	s.broker.Publish(collection)
	return nil
}

// List runs the query. The order field is cast to timestamptz; see Query.
func (s *PostgresStore) List(ctx context.Context, q Query) ([]Document, error) {
	query := `SELECT id, doc FROM documents WHERE collection=$1`
	args := []any{q.Collection}

	if len(q.Where) > 0 {
		filter, err := json.Marshal(q.Where)
		if err != nil {
			return nil, err
		}
		args = append(args, filter)
		query += fmt.Sprintf(` AND doc @> $%d`, len(args))
	}
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		query += fmt.Sprintf(` ORDER BY (doc->>$%d)::timestamptz ASC, id ASC`, len(args))
	} else {
		query += ` ORDER BY id ASC`
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Subscribe redelivers the full query result on every collection change.
func (s *PostgresStore) Subscribe(q Query) (<-chan []Document, func()) {
	return subscribeList(s.broker, q.Collection, func(ctx context.Context) ([]Document, error) {
		return s.List(ctx, q)
	})
}

// SubscribeDocument redelivers one document on every collection change.
func (s *PostgresStore) SubscribeDocument(collection, id string) (<-chan Document, func()) {
	return subscribeDocument(s.broker, collection, func(ctx context.Context) (Document, error) {
		return s.Get(ctx, collection, id)
	})
}

func decodeDocument(id string, raw []byte) (Document, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return Document{ID: id, Data: data}, nil
}

func setContains(field any, value string) bool {
	arr, ok := field.([]any)
	if !ok {
		return false
	}
	for _, v := range arr {
		if s, ok := v.(string); ok && s == value {
			return true
		}
	}
	return false
}
