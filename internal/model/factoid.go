package model

import (
	"strings"
	"time"
)

// Fixed relations. Any other `<verb>` is an open verb relation.
const (
	RelReply = "<reply>"
	RelAlias = "<alias>"
	RelIs    = "<is>"
)

// Factoid is a stored subject/relation/value triple.
type Factoid struct {
	ID         string    `json:"-"`
	Rev        string    `json:"-"`
	Subject    string    `json:"subject"`
	SubjectKey string    `json:"subject_lc"`
	Relation   string    `json:"mode"`
	Value      string    `json:"factoid"`
	Cached     bool      `json:"cached"`
	Protected  bool      `json:"protected"`
	AddedBy    string    `json:"added_by"`
	Added      time.Time `json:"added"`
}

// IsAlias reports whether f redirects to another subject.
func (f Factoid) IsAlias() bool { return f.Relation == RelAlias }

// Verb returns the relation without its angle brackets.
func (f Factoid) Verb() string {
	return strings.TrimSuffix(strings.TrimPrefix(f.Relation, "<"), ">")
}

// Doc wraps f in a document envelope.
func (f Factoid) Doc() Doc {
	return encode(f.ID, f.Rev, KindFact, f.SubjectKey, f)
}

// FactoidFromDoc decodes a fact document.
func FactoidFromDoc(d Doc) (Factoid, error) {
	var f Factoid
	if err := d.Decode(&f); err != nil {
		return f, err
	}
	f.ID, f.Rev = d.ID, d.Rev
	return f, nil
}

// Variable is one value of a named variable list.
type Variable struct {
	ID        string    `json:"-"`
	Rev       string    `json:"-"`
	Name      string    `json:"var"`
	Value     string    `json:"value"`
	Protected bool      `json:"protected"`
	AddedBy   string    `json:"added_by"`
	Added     time.Time `json:"added"`
}

func (v Variable) Doc() Doc {
	return encode(v.ID, v.Rev, KindVar, v.Name, v)
}

// VariableFromDoc decodes a var document.
func VariableFromDoc(d Doc) (Variable, error) {
	var v Variable
	if err := d.Decode(&v); err != nil {
		return v, err
	}
	v.ID, v.Rev = d.ID, d.Rev
	return v, nil
}

// ReservedVars are computed at response time and cannot be stored.
var ReservedVars = map[string]bool{
	"who":      true,
	"to":       true,
	"someone":  true,
	"somebody": true,
}

// User is a chat participant known to the bot.
type User struct {
	ID         string    `json:"-"`
	Rev        string    `json:"-"`
	ExternalID string    `json:"user_id"`
	Name       string    `json:"subject"`
	Role       Role      `json:"role"`
	LastSeen   time.Time `json:"last"`
}

func (u User) Doc() Doc {
	return encode(u.ID, u.Rev, KindUser, u.ExternalID, u)
}

// UserFromDoc decodes a user document.
func UserFromDoc(d Doc) (User, error) {
	var u User
	if err := d.Decode(&u); err != nil {
		return u, err
	}
	u.ID, u.Rev = d.ID, d.Rev
	return u, nil
}

// Syllable is a taught syllable count for a single word.
type Syllable struct {
	ID    string `json:"-"`
	Rev   string `json:"-"`
	Word  string `json:"subject"`
	Count int    `json:"syllables"`
}

func (s Syllable) Doc() Doc {
	return encode(s.ID, s.Rev, KindSyllable, s.Word, s)
}

// SyllableFromDoc decodes a syllable document.
func SyllableFromDoc(d Doc) (Syllable, error) {
	var s Syllable
	if err := d.Decode(&s); err != nil {
		return s, err
	}
	s.ID, s.Rev = d.ID, d.Rev
	return s, nil
}

// StateDoc wraps an opaque session snapshot body.
func StateDoc(id, rev, signature string, body any) Doc {
	return encode(id, rev, KindState, signature, body)
}
