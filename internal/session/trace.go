// Package session holds the bot's process-wide mutable state: the reference
// trace, the undo slot, mute and outburst timers and the message history.
package session

import "errors"

var (
	// ErrNoTarget means the trace cannot resolve the requested item.
	ErrNoTarget = errors.New("no valid target")
	// ErrAmbiguous means "that" was used against a list of several items.
	ErrAmbiguous = errors.New("ambiguous target")
)

// Source is the origin kind of a trace.
type Source string

const (
	SourceInternal Source = "internal"
	SourceCached   Source = "cached"
	SourceDatabase Source = "database"
	SourceList     Source = "list"
	SourceVarList  Source = "varlist"
	SourceUserList Source = "userlist"
)

var knownSources = map[Source]bool{
	SourceInternal: true,
	SourceCached:   true,
	SourceDatabase: true,
	SourceList:     true,
	SourceVarList:  true,
	SourceUserList: true,
}

// IsList reports whether s carries an ordered set of ids.
func (s Source) IsList() bool {
	return s == SourceList || s == SourceVarList || s == SourceUserList
}

// Sub records one placeholder substitution made while rendering a response.
type Sub struct {
	Var string `json:"var"`
	Val string `json:"val"`
}

// Trace points at the most recent referenceable result.
type Trace struct {
	Source   Source   `json:"source"`
	IDs      []string `json:"ids,omitempty"`
	Response string   `json:"response,omitempty"`
	Pages    []string `json:"pages,omitempty"`
	Bookmark int      `json:"bookmark,omitempty"`
	Subs     []Sub    `json:"subs,omitempty"`
}

// Target is a trace resolved to a single item.
type Target struct {
	Source   Source
	ID       string
	Response string
	Subs     []Sub
}

// Internal traces an ephemeral response.
func Internal(response string) *Trace {
	return &Trace{Source: SourceInternal, Response: response}
}

// Database traces a single stored factoid.
func Database(id string) *Trace {
	return &Trace{Source: SourceDatabase, IDs: []string{id}}
}

// Cached traces a canned reply.
func Cached(id string) *Trace {
	return &Trace{Source: SourceCached, IDs: []string{id}}
}

// List traces a rendered, paged listing.
func List(src Source, ids []string, pages []string) *Trace {
	return &Trace{Source: src, IDs: ids, Pages: pages}
}

// Resolve picks the item at index. Index -1 means "that": the only item of
// the trace, which is ambiguous when a list holds more than one.
func (t *Trace) Resolve(index int) (Target, error) {
	if t == nil || !knownSources[t.Source] {
		return Target{}, ErrNoTarget
	}
	if t.Source == SourceInternal {
		return Target{Source: t.Source, Response: t.Response, Subs: t.Subs}, nil
	}

	if index == -1 {
		if t.Source.IsList() && len(t.IDs) > 1 {
			return Target{}, ErrAmbiguous
		}
		index = 0
	}
	if index > 0 && !t.Source.IsList() {
		return Target{}, ErrNoTarget
	}
	if index < 0 || index >= len(t.IDs) {
		return Target{}, ErrNoTarget
	}
	return Target{Source: t.Source, ID: t.IDs[index], Response: t.Response, Subs: t.Subs}, nil
}

// Paged reports whether the trace has more than one page to iterate.
func (t *Trace) Paged() bool {
	return t != nil && len(t.Pages) > 1
}

// Iterate advances to the next page, wrapping to the first, and returns it.
func (t *Trace) Iterate() string {
	if len(t.Pages) == 0 {
		return ""
	}
	t.Bookmark++
	if t.Bookmark >= len(t.Pages) {
		t.Bookmark = 0
	}
	return t.Pages[t.Bookmark]
}
