package engine

import (
	"errors"
	"time"

	"github.com/rcliao/brick/internal/model"
	"github.com/rcliao/brick/internal/session"
)

// Code classifies the outcome of an operation.
type Code int

const (
	Success Code = iota
	Failed
	Denied
	Missing
	Conflict
)

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Denied:
		return "denied"
	case Missing:
		return "missing"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

// Result is what an operation hands back to be said.
type Result struct {
	Code  Code
	Text  string
	Trace *session.Trace
	// Raw results are posted without placeholder substitution.
	Raw bool
}

func ok(text string, t *session.Trace) Result {
	return Result{Code: Success, Text: text, Trace: t}
}

func fail(c Code, text string) Result {
	return Result{Code: c, Text: text}
}

// Internal sentinels mapped to canned replies by Engine.resultOf.
var (
	errMissing  = errors.New("nothing found")
	errConflict = errors.New("inconsistent records")
)

// bag is one message as the engine sees it.
type bag struct {
	Name      string
	UserID    string
	Text      string
	Msg       string
	To        string
	Addressed bool
	Role      model.Role
	Syllables int
	Time      time.Time
}
