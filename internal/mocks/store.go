package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"spot-service/internal/store"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Get(ctx context.Context, collection, id string) (store.Document, error) {
	args := m.Called(ctx, collection, id)
	var doc store.Document
	if val := args.Get(0); val != nil {
		doc = val.(store.Document)
	}
	return doc, args.Error(1)
}

func (m *StoreMock) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	args := m.Called(ctx, collection, id, data, merge)
	return args.Error(0)
}

func (m *StoreMock) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

func (m *StoreMock) Delete(ctx context.Context, collection, id string) error {
	args := m.Called(ctx, collection, id)
	return args.Error(0)
}

func (m *StoreMock) AddToSet(ctx context.Context, collection, id, field, value string) error {
	args := m.Called(ctx, collection, id, field, value)
	return args.Error(0)
}

func (m *StoreMock) AddToSetCapped(ctx context.Context, collection, id, field, value string, max int) error {
	args := m.Called(ctx, collection, id, field, value, max)
	return args.Error(0)
}

func (m *StoreMock) RemoveFromSet(ctx context.Context, collection, id, field, value string) error {
	args := m.Called(ctx, collection, id, field, value)
	return args.Error(0)
}

func (m *StoreMock) Increment(ctx context.Context, collection, id, field string, amount int) error {
	args := m.Called(ctx, collection, id, field, amount)
	return args.Error(0)
}

func (m *StoreMock) List(ctx context.Context, q store.Query) ([]store.Document, error) {
	args := m.Called(ctx, q)
	var docs []store.Document
	if val := args.Get(0); val != nil {
		docs = val.([]store.Document)
	}
	return docs, args.Error(1)
}

func (m *StoreMock) Subscribe(q store.Query) (<-chan []store.Document, func()) {
	args := m.Called(q)
	var ch <-chan []store.Document
	if val := args.Get(0); val != nil {
		ch = val.(<-chan []store.Document)
	}
	cancel := func() {}
	if val := args.Get(1); val != nil {
		cancel = val.(func())
	}
	return ch, cancel
}

func (m *StoreMock) SubscribeDocument(collection, id string) (<-chan store.Document, func()) {
	args := m.Called(collection, id)
	var ch <-chan store.Document
	if val := args.Get(0); val != nil {
		ch = val.(<-chan store.Document)
	}
	cancel := func() {}
	if val := args.Get(1); val != nil {
		cancel = val.(func())
	}
	return ch, cancel
}
