// Package textfmt holds the small text helpers shared by the parser and engine:
// key normalization, case matching, indexed tables and paging.
package textfmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var punct = regexp.MustCompile(`[!.?,:;-]+`)

// Depunctuate lower-cases s and strips surrounding space and punctuation.
// It produces the normalized key used for subjects and variable names.
func Depunctuate(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSpace(punct.ReplaceAllString(s, ""))
}

// Quote wraps s in single quotes.
func Quote(s string) string { return "'" + s + "'" }

// MatchCase reformats txt to follow the casing of src: title, upper or lower.
// Uncased or mixed sources leave txt unchanged.
func MatchCase(txt, src string) string {
	switch {
	case isTitle(src):
		return title(txt)
	case isUpper(src):
		return strings.ToUpper(txt)
	case isLower(src):
		return strings.ToLower(txt)
	}
	return txt
}

func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func isLower(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// isTitle reports whether every word starts upper case followed by lower case.
func isTitle(s string) bool {
	cased, prevCased := false, false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased = true
		default:
			prevCased = false
		}
	}
	return cased
}

func title(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

// Table renders an indexed list with aligned columns.
// col1 and col2 may be nil.
func Table(items, col1, col2 []string) []string {
	width := 0
	for _, it := range items {
		if len(it) > width {
			width = len(it)
		}
	}
	width += len(strconv.Itoa(len(items))) + 1
	width1 := 0
	for _, c := range col1 {
		if len(c) > width1 {
			width1 = len(c)
		}
	}

	rows := make([]string, 0, len(items))
	for i, it := range items {
		idx := strconv.Itoa(i)
		row := idx + ") " + it
		if i < len(col1) {
			row += strings.Repeat(" ", max(1, width-len(it)-len(idx))) + col1[i]
			if i < len(col2) && col2[i] != "" {
				row += strings.Repeat(" ", width1-len(col1[i])+1) + col2[i]
			}
		}
		rows = append(rows, strings.TrimRight(row, " "))
	}
	return rows
}

// Page joins rows into pages of at most size rows. Every page but the last
// ends with a note of how many rows remain.
func Page(rows []string, size int) []string {
	if size <= 0 || len(rows) <= size {
		return []string{strings.Join(rows, "\n")}
	}
	var pages []string
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		page := append([]string(nil), rows[start:end]...)
		if rest := len(rows) - end; rest > 0 {
			page = append(page, fmt.Sprintf("and %d more...", rest))
		}
		pages = append(pages, strings.Join(page, "\n"))
	}
	return pages
}

// Duration renders d as "1h 2m 3s", dropping zero units.
func Duration(d time.Duration) string {
	secs := int(d.Seconds())
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	var parts []string
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	if s > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", s))
	}
	return strings.Join(parts, " ")
}
