// Package syllable provides a pluggable interface for syllable counting.
package syllable

import (
	"regexp"
	"strings"
	"sync"
)

// Counter counts syllables in a single word.
type Counter interface {
	Count(word string) int
}

// Overrides is a word -> count table consulted before a fallback Counter.
// It is safe for concurrent use.
type Overrides struct {
	mu       sync.RWMutex
	words    map[string]int
	fallback Counter
}

// NewOverrides returns an override table backed by fallback.
// A nil fallback uses Heuristic.
func NewOverrides(fallback Counter) *Overrides {
	if fallback == nil {
		fallback = Heuristic{}
	}
	return &Overrides{words: map[string]int{}, fallback: fallback}
}

// Replace swaps the whole override table.
func (o *Overrides) Replace(words map[string]int) {
	m := make(map[string]int, len(words))
	for w, n := range words {
		m[strings.ToLower(w)] = n
	}
	o.mu.Lock()
	o.words = m
	o.mu.Unlock()
}

// Lookup returns the taught count for word, if any.
func (o *Overrides) Lookup(word string) (int, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n, ok := o.words[strings.ToLower(word)]
	return n, ok
}

// Len returns the number of taught words.
func (o *Overrides) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.words)
}

func (o *Overrides) Count(word string) int {
	if n, ok := o.Lookup(word); ok {
		return n
	}
	return o.fallback.Count(word)
}

var (
	reCamel    = regexp.MustCompile(`([a-z])([A-Z])`)
	reAlphaNum = regexp.MustCompile(`([a-zA-Z])(\d)`)
	reNumAlpha = regexp.MustCompile(`(\d)([a-zA-Z])`)
	reYear     = regexp.MustCompile(`\b(1[89]|20)(\d\d)\b`)
	reDomain   = regexp.MustCompile(`\.(com|org|net|info|biz|us)`)
	reSplit    = regexp.MustCompile(`[:,/*.!?]`)
	reHyphen   = regexp.MustCompile(`-(\D|$)`)
)

// Text counts the syllables of a whole message using c for each word.
func Text(c Counter, msg string) int {
	msg = reCamel.ReplaceAllString(msg, "$1 $2")
	msg = strings.ToLower(msg)
	msg = reAlphaNum.ReplaceAllString(msg, "$1 $2")
	msg = reNumAlpha.ReplaceAllString(msg, "$1 $2")
	msg = reYear.ReplaceAllString(msg, "$1 $2")
	msg = strings.ReplaceAll(msg, "www.", "www dot ")
	msg = reDomain.ReplaceAllString(msg, " dot $1")
	msg = reSplit.ReplaceAllString(msg, " ")
	msg = strings.ReplaceAll(msg, "&", " and ")
	msg = reHyphen.ReplaceAllString(msg, " $1")

	total := 0
	for _, w := range strings.Fields(msg) {
		total += c.Count(w)
	}
	return total
}
