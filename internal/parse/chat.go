package parse

import (
	"regexp"
	"strings"
)

var (
	reRandom   = regexp.MustCompile(`(?i)^something\s*random\s*[.!]?$`)
	reChoice   = regexp.MustCompile(`(?i)^(?:choose\s+)?(?:([^,]+?)(?:\s+or|,)\s+)?([^,]+?),?\s+or\s+([^,]+?)\??$`)
	reHardXisY = regexp.MustCompile(`(?s)^(.+)\s+(<\w+>)\s+(.+)$`)
	reSoftXisY = regexp.MustCompile(`(?i)^(.+?)\s+(is|are|am)(?:\s+also)?\s+([^?]+)$`)
	reYesNo    = regexp.MustCompile(`(?is)^(?:(?:is|does|can|are)\s+\w+|.+\?+$)`)
	reNotYesNo = regexp.MustCompile(`(?is)^(?:(?:where|when|why|how|what|who)\b|.+\s+<\w+>\s+.+|.+\s+or\s+.+)`)
	reRemember = regexp.MustCompile(`(?is)^remember\s+(\S+)\s+(.+)$`)
	reQuestion = regexp.MustCompile(`(?i)^(?:what\s+is|what's|the|who\s+is)\s+(.+?)[!.?]*$`)
)

// Random matches "something random".
func Random(msg string) bool {
	return reRandom.MatchString(msg)
}

// Choice returns the options of "a, b or c" style messages.
func Choice(msg string) []string {
	if reHardXisY.MatchString(msg) {
		return nil
	}
	m := reChoice.FindStringSubmatch(msg)
	if m == nil {
		return nil
	}
	var out []string
	for _, c := range m[1:] {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// YesNo matches questions that can be answered with yes or no.
func YesNo(msg string) bool {
	return reYesNo.MatchString(msg) && !reNotYesNo.MatchString(msg)
}

// Quote is a "remember NAME TEXT" request.
type Quote struct {
	Name string
	Text string
}

// Remember matches "remember NAME TEXT".
func Remember(msg string) (Quote, bool) {
	m := reRemember.FindStringSubmatch(msg)
	if m == nil {
		return Quote{}, false
	}
	return Quote{Name: m[1], Text: strings.TrimSpace(m[2])}, true
}

// Fact is a "X is Y" statement.
type Fact struct {
	Subject  string
	Relation string
	Value    string
	// Soft is true for the plain "is/are/am" form rather than "<verb>".
	Soft bool
}

var questionWords = map[string]bool{"what": true, "where": true, "when": true}

// XisY matches "X <verb> Y" and the softer "X is|are|am [also] Y".
func XisY(msg string) (Fact, bool) {
	var f Fact
	if m := reHardXisY.FindStringSubmatch(msg); m != nil {
		f = Fact{Subject: m[1], Relation: strings.ToLower(m[2]), Value: m[3]}
	} else if m := reSoftXisY.FindStringSubmatch(msg); m != nil {
		f = Fact{Subject: m[1], Relation: "<" + strings.ToLower(m[2]) + ">", Value: m[3], Soft: true}
	} else {
		return Fact{}, false
	}
	f.Subject = strings.TrimSpace(f.Subject)
	f.Value = strings.TrimSpace(f.Value)
	if questionWords[strings.ToLower(f.Subject)] {
		return Fact{}, false
	}
	return f, true
}

// Question returns the subject of "what is X" style questions.
func Question(msg string) (string, bool) {
	m := reQuestion.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return m[1], true
}
