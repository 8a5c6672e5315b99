// Package chunker splits outgoing posts so each fits a platform's length limit.
package chunker

import (
	"regexp"
	"strings"
)

const DefaultMaxSize = 400

// Options configures chunking behavior.
type Options struct {
	MaxSize int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{MaxSize: DefaultMaxSize}
}

var (
	lineSplit     = regexp.MustCompile(`\n`)
	sentenceSplit = regexp.MustCompile(`[.!?] `)
	wordSplit     = regexp.MustCompile(` `)
)

// Chunk splits text into posts of at most opts.MaxSize bytes. Short text
// returns a single post. Long text breaks on lines first, then sentences,
// then words, then characters.
func Chunk(text string, opts Options) []string {
	if opts.MaxSize <= 0 {
		opts = DefaultOptions()
	}
	if text == "" {
		return nil
	}
	if len(text) <= opts.MaxSize {
		return []string{text}
	}

	var pieces []string
	for _, line := range splitKeep(text, lineSplit) {
		pieces = append(pieces, split(line, opts.MaxSize, sentenceSplit, wordSplit)...)
	}
	return pack(pieces, opts.MaxSize)
}

// split breaks s with each separator in turn until every piece fits.
func split(s string, limit int, seps ...*regexp.Regexp) []string {
	if len(s) <= limit {
		return []string{s}
	}
	if len(seps) == 0 {
		var chars []string
		for _, r := range s {
			chars = append(chars, string(r))
		}
		return chars
	}
	var out []string
	for _, p := range splitKeep(s, seps[0]) {
		out = append(out, split(p, limit, seps[1:]...)...)
	}
	return out
}

// splitKeep splits s after every match of re, keeping the separator
// attached to the preceding piece.
func splitKeep(s string, re *regexp.Regexp) []string {
	var out []string
	last := 0
	for _, loc := range re.FindAllStringIndex(s, -1) {
		out = append(out, s[last:loc[1]])
		last = loc[1]
	}
	if last < len(s) {
		out = append(out, s[last:])
	}
	return out
}

// pack greedily joins pieces into posts no longer than limit.
func pack(pieces []string, limit int) []string {
	posts := []string{""}
	for _, p := range pieces {
		cur := posts[len(posts)-1]
		if len(cur)+len(p) <= limit {
			posts[len(posts)-1] = cur + p
			continue
		}
		posts = append(posts, p)
	}
	for i := range posts {
		posts[i] = strings.TrimSpace(posts[i])
	}
	return posts
}
