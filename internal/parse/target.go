// Package parse recognizes the fixed message grammars the bot understands.
// Matchers are stateless; the engine decides what a match means.
package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reAddressee = regexp.MustCompile(`(?s)^\s*(\w+)\s*[:,]\s+(.+)$`)

// Target is a message split into addressee and payload.
type Target struct {
	To        string
	Msg       string
	Addressed bool
}

// Address splits a leading "name:" or "name," from text. The message is
// addressed when name is the bot's, in which case To is the canonical name.
func Address(text, botName string) Target {
	var t Target
	if m := reAddressee.FindStringSubmatch(text); m != nil {
		t.To, t.Msg = m[1], m[2]
	} else {
		t.Msg = text
	}
	t.Msg = strings.TrimSpace(t.Msg)
	if t.To != "" && strings.EqualFold(t.To, botName) {
		t.To = botName
		t.Addressed = true
	}
	return t
}

var reIndex = regexp.MustCompile(`^#(\d+)$`)

// Index parses "#N" or "that" (-1). ok is false for anything else.
// An N too large for an int parses as math.MaxInt, which no list holds.
func Index(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "that") {
		return -1, true
	}
	m := reIndex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return math.MaxInt, true
	}
	return n, true
}
