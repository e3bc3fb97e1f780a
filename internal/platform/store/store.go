package store

import (
	"context"
	"errors"
)

// Document is a flat, schema-less field mapping as held by the record store.
type Document map[string]any

// Record pairs a store-assigned id with its document fields.
type Record struct {
	ID  string   `json:"id"`
	Doc Document `json:"doc"`
}

var ErrNotFound = errors.New("store: document not found")

// Client is the record store contract shared by all drivers. Insert returns
// the generated document id. Update merges only the supplied fields into the
// stored document. ListAll returns documents in insertion order.
type Client interface {
	ListAll(ctx context.Context, collection string) ([]Record, error)
	Get(ctx context.Context, collection, id string) (*Record, error)
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	Update(ctx context.Context, collection, id string, partial Document) error
	Delete(ctx context.Context, collection, id string) error
	FindOne(ctx context.Context, collection, field, value string) (*Record, error)
	Ping(ctx context.Context) error
	Close() error
}
