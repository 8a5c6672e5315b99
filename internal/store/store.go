// Package store provides the knowledge store interface and its SQLite implementation.
//
// The store is a small document database: every document is a model.Doc
// envelope carrying an id, a revision token, a kind and a normalized key.
// Reads go through named views; writes are batched and atomic.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/brick/internal/model"
)

var (
	// ErrNotFound is returned when a document id does not exist or was deleted.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a write carries a stale revision.
	ErrConflict = errors.New("document update conflict")
)

// View names a predefined query over the documents.
type View string

const (
	// ViewSubjects returns fact docs for a subject key.
	ViewSubjects View = "subjects"
	// ViewCached returns cached fact values keyed by subject key.
	ViewCached View = "cached"
	// ViewNonAlias returns non-alias facts ordered by subject key.
	ViewNonAlias View = "nonalias"
	// ViewNonAliasCount counts non-alias facts, optionally grouped by subject key.
	ViewNonAliasCount View = "nonalias_count"
	// ViewVars returns variable values, optionally for a single var.
	ViewVars View = "vars"
	// ViewUsers returns known users.
	ViewUsers View = "users"
	// ViewSyllables returns taught syllable counts keyed by word.
	ViewSyllables View = "syllables"
	// ViewStates returns persisted session snapshots.
	ViewStates View = "states"
)

// QueryParams holds parameters for a view query.
type QueryParams struct {
	View     View
	Key      string // normalized key filter; empty matches all
	FullDocs bool
	Limit    int
	Skip     int
	Group    bool
}

// Row is one result of a view query.
type Row struct {
	ID    string     `json:"id,omitempty"`
	Key   string     `json:"key"`
	Value string     `json:"value,omitempty"`
	Count int        `json:"count,omitempty"`
	Doc   *model.Doc `json:"doc,omitempty"`
}

// PostResult reports the identity assigned to a written document.
type PostResult struct {
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// Store defines the knowledge store contract used by the engine.
type Store interface {
	// Query runs a named view.
	Query(ctx context.Context, p QueryParams) ([]Row, error)

	// Fetch returns the live documents with the given ids, in order.
	Fetch(ctx context.Context, ids ...string) ([]model.Doc, error)

	// Post creates, updates, tombstones or resurrects documents atomically.
	// Documents with an id that is live must carry its current revision.
	Post(ctx context.Context, docs ...model.Doc) ([]PostResult, error)

	// Update writes changed documents. Documents without a revision are
	// merged field by field into the current stored version first.
	Update(ctx context.Context, docs ...model.Doc) ([]PostResult, error)

	// Delete tombstones documents and returns their previous values.
	Delete(ctx context.Context, docs ...model.Doc) ([]model.Doc, error)

	// Search matches a document field against a substring.
	Search(ctx context.Context, index, field, value string) ([]model.Doc, error)

	// Close closes the store.
	Close() error
}
