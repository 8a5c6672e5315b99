package plugin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	reCommandish = regexp.MustCompile(`<\w+>|=>`)
	reURL        = regexp.MustCompile(`(?i)www\.|\S+\.\S+`)
	reQuestion   = regexp.MustCompile(`(?s)^.+\?`)
	reBandStrip  = regexp.MustCompile(`[<>=#@]`)
)

// BandName learns three word messages as band names.
type BandName struct{}

func (BandName) Name() string { return "bandname" }

func (BandName) Respond(c Context) (*Directive, error) {
	if reCommandish.MatchString(c.Msg) || reURL.MatchString(c.Msg) || reQuestion.MatchString(c.Msg) {
		return nil, nil
	}
	if len(strings.Fields(c.Msg)) != 3 {
		return nil, nil
	}
	phrase := titleWords(reBandStrip.ReplaceAllString(c.Msg, ""))
	return &Directive{AddValue: &AddValue{
		Var:     "band",
		Value:   phrase,
		Success: `"` + phrase + `" would be a good name for a band.`,
	}}, nil
}

// titleWords upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleWords(s string) string {
	var b strings.Builder
	prev := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prev {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prev = true
			continue
		}
		prev = false
		b.WriteRune(r)
	}
	return b.String()
}

var reAllCaps = regexp.MustCompile(`^[\sA-Z]*[A-Z]{4,}\s+[\sA-Z]{4,}[?!.]*$`)

// AllCaps answers shouting with the "[allcaps]" factoid.
type AllCaps struct{}

func (AllCaps) Name() string { return "allcaps" }

func (AllCaps) Respond(c Context) (*Directive, error) {
	if reAllCaps.MatchString(c.Msg) {
		return &Directive{Lookup: "[allcaps]"}, nil
	}
	return nil, nil
}

var (
	reTLA      = regexp.MustCompile(`^([A-Z])([A-Z])([A-Z])\??$`)
	reBandInit = regexp.MustCompile(`^(\w)\w*\s+(\w)\w*\s+(\w)\w*`)
)

// TLA expands a three letter acronym into a known band name.
type TLA struct{}

func (TLA) Name() string { return "tla" }

func (TLA) Respond(c Context) (*Directive, error) {
	if reTLA.MatchString(c.Msg) {
		return &Directive{Call: &Call{Source: SourceVar, Arg: "band"}}, nil
	}
	return nil, nil
}

func (TLA) Recall(c Context, bands []string) (*Directive, error) {
	m := reTLA.FindStringSubmatch(c.Msg)
	if m == nil || len(bands) == 0 {
		return nil, nil
	}
	for _, band := range bands {
		b := reBandInit.FindStringSubmatch(strings.ToUpper(band))
		if b != nil && b[1] == m[1] && b[2] == m[2] && b[3] == m[3] {
			return Say(`$Who, "` + band + `"?`), nil
		}
	}
	return nil, nil
}

var reDoYouKnow = regexp.MustCompile(`(?i)^(?:Do\s+you|Does\s+anyone)\s+know\s+(\w+)`)

// DoYouKnow answers "do you know ..." with a joke.
type DoYouKnow struct{}

func (DoYouKnow) Name() string { return "doyouknow" }

func (DoYouKnow) Respond(c Context) (*Directive, error) {
	if reDoYouKnow.MatchString(c.Msg) {
		return Say("No, but if you hum a few bars I can fake it."), nil
	}
	return nil, nil
}

var reClock = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?([ap])m\b`)

// MilitaryTime converts a 12 hour clock time to 24 hour notation.
type MilitaryTime struct{}

func (MilitaryTime) Name() string { return "militarytime" }

func (MilitaryTime) Respond(c Context) (*Directive, error) {
	m := reClock.FindStringSubmatch(c.Msg)
	if m == nil {
		return nil, nil
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return nil, nil
	}
	minute := m[2]
	if minute == "" {
		minute = "00"
	}
	pm := strings.EqualFold(m[3], "p")

	var h string
	switch {
	case pm && hour < 12:
		h = strconv.Itoa(hour + 12)
	case !pm && hour == 12:
		h = "00"
	default:
		h = fmt.Sprintf("%02d", hour)
	}
	return Say("That's " + h + minute + " for you military types."), nil
}

var reHyphenAss = regexp.MustCompile(`(?i)(\w+)-ass\s+(\w+)`)

// HyphenSwap moves the hyphen of "x-ass y" phrases.
type HyphenSwap struct{}

func (HyphenSwap) Name() string { return "hyphenswap" }

func (HyphenSwap) Respond(c Context) (*Directive, error) {
	if !reHyphenAss.MatchString(c.Msg) {
		return nil, nil
	}
	return Say(reHyphenAss.ReplaceAllString(c.Msg, "$1 ass-$2")), nil
}

// Haiku notices three posts in a row with 5, 7 and 5 syllables.
type Haiku struct{}

func (Haiku) Name() string { return "haiku" }

func (Haiku) Respond(c Context) (*Directive, error) {
	n := len(c.History)
	if c.Syllables != 5 || n < 2 {
		return nil, nil
	}
	first, second := c.History[n-2], c.History[n-1]
	if first.Syllables != 5 || second.Syllables != 7 {
		return nil, nil
	}
	return &Directive{
		Texts: []string{"Was that a Haiku?"},
		Learn: &Learn{
			Subject:  "haiku",
			Relation: "<reply>",
			Value:    first.Text + "\n" + second.Text + "\n" + c.Text,
		},
	}, nil
}

var reDontQuote = regexp.MustCompile(`(?is)^don't quote me(?: on this)?, but (.+)`)

// QuoteMe quotes people who ask not to be quoted.
type QuoteMe struct{}

func (QuoteMe) Name() string { return "quoteme" }

func (QuoteMe) Respond(c Context) (*Directive, error) {
	if reCommandish.MatchString(c.Msg) || reURL.MatchString(c.Msg) {
		return nil, nil
	}
	m := reDontQuote.FindStringSubmatch(c.Msg)
	if m == nil {
		return nil, nil
	}
	return &Directive{
		Texts: []string{`"` + m[1] + `" --` + c.Name},
		Learn: &Learn{
			Subject:  c.Name + " quote",
			Relation: "<reply>",
			Value:    c.Name + `: "` + m[1] + `"`,
		},
	}, nil
}

var reIsStatement = regexp.MustCompile(`(?is)^(.+)\s+is(?:\s+also)?\s+[^?]+$`)

// YourMom replaces the subject of an "X is Y" statement.
type YourMom struct{}

func (YourMom) Name() string { return "yourmom" }

func (YourMom) Respond(c Context) (*Directive, error) {
	m := reIsStatement.FindStringSubmatch(c.Msg)
	if m == nil {
		return nil, nil
	}
	return Say(strings.Replace(c.Msg, m[1], "Your mom", 1)), nil
}

// DefaultCatFactAccount is the account CatFact reads from.
const DefaultCatFactAccount = "catfacts101"

var (
	reCatFact  = regexp.MustCompile(`(?i)^cat\s*fact`)
	reTagsMent = regexp.MustCompile(`[#@]\w+`)
	reSpaces   = regexp.MustCompile(`\s{2,}`)
)

// CatFact relays posts from a cat fact account when asked.
type CatFact struct {
	Account string
}

func (CatFact) Name() string { return "catfact" }

func (p CatFact) Respond(c Context) (*Directive, error) {
	if !c.Addressed || !reCatFact.MatchString(c.Msg) {
		return nil, nil
	}
	return &Directive{Call: &Call{Source: SourceSocial, Arg: p.Account}}, nil
}

func (CatFact) Recall(c Context, posts []string) (*Directive, error) {
	var out []string
	for _, p := range posts {
		p = reTagsMent.ReplaceAllString(p, "")
		p = strings.TrimSpace(reSpaces.ReplaceAllString(p, " "))
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return Say(out...), nil
}
