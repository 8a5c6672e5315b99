package session

import (
	"time"

	"github.com/rcliao/brick/internal/model"
)

// MuteForever is the mute value for an indefinite mute.
const MuteForever int64 = -1

// Refresh names the cache an undo must rebuild.
type Refresh string

const (
	RefreshNone      Refresh = ""
	RefreshVars      Refresh = "vars"
	RefreshSyllables Refresh = "syllables"
	RefreshUsers     Refresh = "users"
	RefreshFacts     Refresh = "facts"
)

// Undo is the single retained inverse operation.
type Undo struct {
	Actor    string      `json:"actor"`
	Docs     []model.Doc `json:"docs"`
	Floor    model.Role  `json:"floor"`
	Response string      `json:"response"`
	Refresh  Refresh     `json:"refresh,omitempty"`
}

// Post is one message in the rolling history.
type Post struct {
	Name   string    `json:"name"`
	UserID string    `json:"user_id"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

// Reminder is the recurring day-of-month post.
type Reminder struct {
	Day           int       `json:"day"`
	CooldownHours int       `json:"cooldown"`
	Reset         time.Time `json:"reset"`
	Subject       string    `json:"subject"`
}

// State is the process-wide session. It is not safe for concurrent use;
// the engine serializes all access.
type State struct {
	ID  string `json:"-"`
	Rev string `json:"-"`

	Version   string         `json:"version"`
	Signature string         `json:"signature"`
	Saved     time.Time      `json:"saved"`
	Uptime    time.Time      `json:"uptime"`
	History   []Post         `json:"history"`
	Outburst  time.Time      `json:"outburst"`
	Mute      int64          `json:"mute"`
	Reminder  Reminder       `json:"reminder"`
	Trace     *Trace         `json:"trace,omitempty"`
	Undo      *Undo          `json:"undo,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
}

// New returns a fresh session.
func New(version, signature string, now time.Time, reminder Reminder) *State {
	return &State{
		Version:   version,
		Signature: signature,
		Uptime:    now,
		Reminder:  reminder,
	}
}

// Record appends p to the history, evicting the oldest posts beyond capacity.
func (s *State) Record(p Post, capacity int) {
	if capacity <= 0 {
		s.History = nil
		return
	}
	s.History = append(s.History, p)
	if over := len(s.History) - capacity; over > 0 {
		s.History = append([]Post(nil), s.History[over:]...)
	}
}

// Muted reports whether the bot is muted at now.
func (s *State) Muted(now time.Time) bool {
	return s.Mute < 0 || s.Mute > now.Unix()
}

// MuteFor mutes for d, extending a running mute by d.
func (s *State) MuteFor(d time.Duration, now time.Time) {
	if s.Mute < 0 {
		return
	}
	secs := int64(d / time.Second)
	if s.Mute < now.Unix() {
		s.Mute = now.Unix() + secs
		return
	}
	s.Mute += secs
}

// Unmute clears any mute.
func (s *State) Unmute() { s.Mute = 0 }

// MuteRemaining returns how long a timed mute has left.
func (s *State) MuteRemaining(now time.Time) time.Duration {
	if s.Mute <= now.Unix() {
		return 0
	}
	return time.Duration(s.Mute-now.Unix()) * time.Second
}

// SetTrace replaces the trace.
func (s *State) SetTrace(t *Trace) { s.Trace = t }

// SetUndo replaces the undo slot unconditionally.
func (s *State) SetUndo(u *Undo) { s.Undo = u }

// TakeUndo empties the undo slot and returns what it held.
func (s *State) TakeUndo() *Undo {
	u := s.Undo
	s.Undo = nil
	return u
}

// ReminderDue reports whether the reminder may fire on day at now.
func (s *State) ReminderDue(day int, now time.Time) bool {
	if s.Reminder.Day <= 0 || s.Reminder.Subject == "" {
		return false
	}
	if now.Before(s.Reminder.Reset) {
		return false
	}
	return s.Reminder.Day == day
}

// LockReminder starts the reminder cooldown.
func (s *State) LockReminder(now time.Time) {
	s.Reminder.Reset = now.Add(time.Duration(s.Reminder.CooldownHours) * time.Hour)
}
