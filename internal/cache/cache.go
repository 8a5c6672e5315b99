// Package cache holds the in-memory indexes the engine answers from:
// canned replies, variable values, known users and taught syllables.
// Every cache is rebuilt wholesale from the store; there are no partial updates.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/store"
	"github.com/rcliao/brick/internal/syllable"
)

// Fallback tags and text.
const (
	TagDontKnow = "[don't know]"
	DontKnow    = "I don't know."
)

// Reply is one canned response.
type Reply struct {
	ID   string
	Text string
}

// Replies indexes cached factoid values by subject key.
type Replies struct {
	mu   sync.RWMutex
	tags map[string][]Reply
}

func NewReplies() *Replies {
	return &Replies{tags: map[string][]Reply{}}
}

// Rebuild reloads every cached factoid.
func (r *Replies) Rebuild(ctx context.Context, st store.Store) (int, error) {
	rows, err := st.Query(ctx, store.QueryParams{View: store.ViewCached})
	if err != nil {
		return 0, fmt.Errorf("rebuild replies: %w", err)
	}
	tags := map[string][]Reply{}
	for _, row := range rows {
		tags[row.Key] = append(tags[row.Key], Reply{ID: row.ID, Text: row.Value})
	}
	r.mu.Lock()
	r.tags = tags
	r.mu.Unlock()
	return len(rows), nil
}

// Pick returns a random reply for tag, falling back to the "don't know"
// replies. ok is false when neither exists and the built-in text is used.
func (r *Replies) Pick(tag string, intn func(int) int) (reply Reply, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range []string{strings.ToLower(tag), TagDontKnow} {
		if list := r.tags[t]; len(list) > 0 {
			return list[intn(len(list))], true
		}
	}
	return Reply{Text: DontKnow}, false
}

// Has reports whether tag has replies of its own.
func (r *Replies) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tags[strings.ToLower(tag)]) > 0
}

// Len returns the number of cached tags.
func (r *Replies) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tags)
}

// Value is one stored value of a variable.
type Value struct {
	ID        string
	Text      string
	Protected bool
}

// Vars indexes variable values by name.
type Vars struct {
	mu   sync.RWMutex
	vars map[string][]Value
}

func NewVars() *Vars {
	return &Vars{vars: map[string][]Value{}}
}

// Rebuild reloads every variable value.
func (v *Vars) Rebuild(ctx context.Context, st store.Store) (int, error) {
	rows, err := st.Query(ctx, store.QueryParams{View: store.ViewVars, FullDocs: true})
	if err != nil {
		return 0, fmt.Errorf("rebuild vars: %w", err)
	}
	vars := map[string][]Value{}
	for _, row := range rows {
		val, err := model.VariableFromDoc(*row.Doc)
		if err != nil {
			return 0, err
		}
		vars[val.Name] = append(vars[val.Name], Value{ID: val.ID, Text: val.Value, Protected: val.Protected})
	}
	v.mu.Lock()
	v.vars = vars
	v.mu.Unlock()
	return len(rows), nil
}

// Has reports whether name has any values.
func (v *Vars) Has(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vars[name]) > 0
}

// Entries returns the values of name.
func (v *Vars) Entries(name string) []Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Value(nil), v.vars[name]...)
}

// Values returns the value texts of name.
func (v *Vars) Values(name string) []string {
	entries := v.Entries(name)
	if entries == nil {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

// Names returns all variable names, sorted.
func (v *Vars) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.vars))
	for n := range v.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Users indexes known users by external id.
type Users struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUsers() *Users {
	return &Users{users: map[string]model.User{}}
}

// Rebuild reloads every user.
func (u *Users) Rebuild(ctx context.Context, st store.Store) (int, error) {
	rows, err := st.Query(ctx, store.QueryParams{View: store.ViewUsers, FullDocs: true})
	if err != nil {
		return 0, fmt.Errorf("rebuild users: %w", err)
	}
	users := map[string]model.User{}
	for _, row := range rows {
		user, err := model.UserFromDoc(*row.Doc)
		if err != nil {
			return 0, err
		}
		users[user.ExternalID] = user
	}
	u.mu.Lock()
	u.users = users
	u.mu.Unlock()
	return len(users), nil
}

// Get returns the user with external id id.
func (u *Users) Get(id string) (model.User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.users[id]
	return user, ok
}

// Put stores user in the cache only.
func (u *Users) Put(user model.User) {
	u.mu.Lock()
	u.users[user.ExternalID] = user
	u.mu.Unlock()
}

// All returns every user sorted by name.
func (u *Users) All() []model.User {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]model.User, 0, len(u.users))
	for _, user := range u.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ExternalID < out[j].ExternalID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Names returns every user's display name sorted.
func (u *Users) Names() []string {
	all := u.All()
	names := make([]string, len(all))
	for i, user := range all {
		names[i] = user.Name
	}
	return names
}

// Len returns the number of known users.
func (u *Users) Len() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.users)
}

// RebuildSyllables reloads taught syllable counts into o.
func RebuildSyllables(ctx context.Context, st store.Store, o *syllable.Overrides) (int, error) {
	rows, err := st.Query(ctx, store.QueryParams{View: store.ViewSyllables})
	if err != nil {
		return 0, fmt.Errorf("rebuild syllables: %w", err)
	}
	words := make(map[string]int, len(rows))
	for _, row := range rows {
		words[row.Key] = row.Count
	}
	o.Replace(words)
	return len(words), nil
}
