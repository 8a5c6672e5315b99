// Package model defines the core document types stored by the bot.
package model

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the type of a stored document.
type Kind string

const (
	KindFact     Kind = "fact"
	KindVar      Kind = "var"
	KindUser     Kind = "user"
	KindSyllable Kind = "syllable"
	KindState    Kind = "state"
)

// ValidKinds are the allowed document kinds.
var ValidKinds = map[Kind]bool{
	KindFact:     true,
	KindVar:      true,
	KindUser:     true,
	KindSyllable: true,
	KindState:    true,
}

// Doc is the envelope every document is stored in.
// Key is the normalized lookup key (subject key, var name, user id, word).
type Doc struct {
	ID      string          `json:"_id,omitempty"`
	Rev     string          `json:"_rev,omitempty"`
	Kind    Kind            `json:"kind"`
	Key     string          `json:"key"`
	Deleted bool            `json:"_deleted,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Tombstone returns a copy of d marked for deletion.
func (d Doc) Tombstone() Doc {
	d.Deleted = true
	return d
}

// Decode unmarshals the document body into v.
func (d Doc) Decode(v any) error {
	if len(d.Data) == 0 {
		return fmt.Errorf("doc %s: empty body", d.ID)
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("doc %s: %w", d.ID, err)
	}
	return nil
}

func encode(id, rev string, kind Kind, key string, body any) Doc {
	b, _ := json.Marshal(body)
	return Doc{ID: id, Rev: rev, Kind: kind, Key: key, Data: b}
}
