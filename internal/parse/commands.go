package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rcliao/brick/internal/textfmt"
)

// Kind names a recognized command.
type Kind string

const (
	KindMute          Kind = "mute"
	KindUnmute        Kind = "unmute"
	KindRestart       Kind = "restart"
	KindCache         Kind = "cache"
	KindProtectVar    Kind = "protect_var"
	KindProtect       Kind = "protect"
	KindSyllableTeach Kind = "syllable_teach"
	KindSyllableQuery Kind = "syllable_query"
	KindKeyQuery      Kind = "key_query"
	KindLookup        Kind = "lookup"
	KindLiteral       Kind = "literal"
	KindWhatWasThat   Kind = "what_was_that"
	KindEdit          Kind = "edit"
	KindDelete        Kind = "delete"
	KindAlias         Kind = "alias"
	KindUnalias       Kind = "unalias"
	KindMerge         Kind = "merge"
	KindVersion       Kind = "version"
	KindStats         Kind = "stats"
	KindListUsers     Kind = "list_users"
	KindListVars      Kind = "list_vars"
	KindMore          Kind = "more"
	KindConfig        Kind = "config"
	KindPromote       Kind = "promote"
	KindAddValue      Kind = "add_value"
	KindRemoveValue   Kind = "remove_value"
	KindRemoveVar     Kind = "remove_var"
	KindUndo          Kind = "undo"
	KindRefresh       Kind = "refresh"
	KindEcho          Kind = "echo"
	KindCrash         Kind = "crash"
)

// Command is the structured result of a match. Fields are used per Kind.
type Command struct {
	Kind Kind

	// Index is the "#N"/"that" reference. HasIndex is false when a subject
	// was written instead.
	Index    int
	HasIndex bool

	Subject string
	Key     string
	Value   string
	Old     string
	Var     string
	Mode    string

	// On distinguishes cache/uncache, protect/unprotect, promote/demote.
	On bool
	// All lists every var rather than one var's values.
	All bool
	// Count is a syllable count, or a mute duration in seconds.
	Count int
	// Span is a subjective mute duration: bit, moment, while.
	Span string
	// Exact marks a mute with an explicit duration.
	Exact bool
	// Dev marks development-only commands.
	Dev bool
}

// Matcher tests a message for one command shape.
type Matcher struct {
	Kind Kind
	// Passive matchers also apply to messages not addressed to the bot.
	Passive bool
	Match   func(msg string) (Command, bool)
}

// Commands is evaluated in order and the first match wins. Order matters:
// protect var before protect, indexed edit before delete, list users and
// list vars before the generic config "list KEY", remove var after the
// add/remove value form that needs a trailing value.
var Commands = []Matcher{
	{Kind: KindMute, Match: matchMute},
	{Kind: KindUnmute, Match: simple(KindUnmute, `(?i)^(?:un[-\s]?shut[-\s]?up|come[-\s]?back)\s*[.,!]?\s*$`)},
	{Kind: KindRestart, Match: simple(KindRestart, `(?i)^restart\s*[.,!]?\s*$`)},
	{Kind: KindCache, Match: matchToggle(KindCache, `(?i)^(un)?cache\s+(.+)$`)},
	{Kind: KindProtectVar, Match: matchProtectVar},
	{Kind: KindProtect, Match: matchToggle(KindProtect, `(?i)^(un)?protect\s+(.+)$`)},
	{Kind: KindSyllableTeach, Match: matchSyllableTeach},
	{Kind: KindSyllableQuery, Match: matchSyllableQuery},
	{Kind: KindKeyQuery, Passive: true, Match: matchKeyQuery},
	{Kind: KindLookup, Match: rest(KindLookup, `(?is)^lookup\s+(.+)$`)},
	{Kind: KindLiteral, Match: rest(KindLiteral, `(?is)^literal\s+(.+)$`)},
	{Kind: KindWhatWasThat, Match: simple(KindWhatWasThat, `(?i)^what\s+was\s+that\s*\?`)},
	{Kind: KindEdit, Match: matchEdit},
	{Kind: KindDelete, Match: matchDelete},
	{Kind: KindAlias, Match: arrow(KindAlias, `(?i)^alias\s+(.+?)\s*=>\s*(.+)$`)},
	{Kind: KindUnalias, Match: rest(KindUnalias, `(?i)^un-?alias\s+(.+)$`)},
	{Kind: KindMerge, Match: arrow(KindMerge, `(?i)^merge\s+(.+?)\s*=>\s*(.+)$`)},
	{Kind: KindVersion, Match: simple(KindVersion, `(?i)^(?:what\s+)?version(?:\s+are\s+you)?\s*[?.!]?\s*$`)},
	{Kind: KindStats, Match: simple(KindStats, `(?i)^(?:stats|status)\s*[!.?]?\s*$`)},
	{Kind: KindListUsers, Match: simple(KindListUsers, `(?i)^list\s*users\s*[.!]?$`)},
	{Kind: KindListVars, Match: matchListVars},
	{Kind: KindMore, Match: simple(KindMore, `(?i)^(?:more|next|continue)\s*[.!]?\s*$`)},
	{Kind: KindConfig, Match: matchConfig},
	{Kind: KindPromote, Match: matchPromote},
	{Kind: KindAddValue, Match: matchAddValue},
	{Kind: KindRemoveVar, Match: matchRemoveVar},
	{Kind: KindUndo, Match: simple(KindUndo, `(?i)^undo(?:[\s-]*(?:last|that))?\s*[.!]?\s*$`)},
	{Kind: KindRefresh, Match: simple(KindRefresh, `(?i)^refresh\s*[.,!]?\s*$`)},
	{Kind: KindEcho, Match: dev(rest(KindEcho, `(?s)^echo\s+(.+)$`))},
	{Kind: KindCrash, Match: dev(simple(KindCrash, `(?i)^crash$`))},
}

// MatchCommand returns the first command matching msg. Unaddressed messages
// only see passive matchers.
func MatchCommand(msg string, addressed bool) (Command, bool) {
	msg = strings.TrimSpace(msg)
	for _, m := range Commands {
		if !addressed && !m.Passive {
			continue
		}
		if cmd, ok := m.Match(msg); ok {
			return cmd, true
		}
	}
	return Command{}, false
}

func simple(kind Kind, pattern string) func(string) (Command, bool) {
	re := regexp.MustCompile(pattern)
	return func(msg string) (Command, bool) {
		if !re.MatchString(msg) {
			return Command{}, false
		}
		return Command{Kind: kind}, true
	}
}

func rest(kind Kind, pattern string) func(string) (Command, bool) {
	re := regexp.MustCompile(pattern)
	return func(msg string) (Command, bool) {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			return Command{}, false
		}
		return Command{Kind: kind, Subject: strings.TrimSpace(m[1])}, true
	}
}

func arrow(kind Kind, pattern string) func(string) (Command, bool) {
	re := regexp.MustCompile(pattern)
	return func(msg string) (Command, bool) {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			return Command{}, false
		}
		return Command{Kind: kind, Subject: strings.TrimSpace(m[1]), Value: strings.TrimSpace(m[2])}, true
	}
}

func dev(f func(string) (Command, bool)) func(string) (Command, bool) {
	return func(msg string) (Command, bool) {
		cmd, ok := f(msg)
		cmd.Dev = ok
		return cmd, ok
	}
}

// matchToggle handles "[un]verb <#N|that|subject>".
func matchToggle(kind Kind, pattern string) func(string) (Command, bool) {
	re := regexp.MustCompile(pattern)
	return func(msg string) (Command, bool) {
		m := re.FindStringSubmatch(msg)
		if m == nil {
			return Command{}, false
		}
		cmd := Command{Kind: kind, On: m[1] == ""}
		target := strings.TrimSpace(m[2])
		if idx, ok := Index(target); ok {
			cmd.Index, cmd.HasIndex = idx, true
		} else {
			cmd.Subject = target
		}
		return cmd, true
	}
}

var reMute = regexp.MustCompile(`(?i)^(?:shut[-\s]?up|go\s+away)(?:\s+for\s+a\s+(bit|moment|while|min(?:ute)?)|\s+for\s+(\d+)\s*([smh]))?\s*[.,!]?\s*$`)

func matchMute(msg string) (Command, bool) {
	m := reMute.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	cmd := Command{Kind: KindMute}
	switch strings.ToLower(m[1]) {
	case "bit", "moment", "while":
		cmd.Span = strings.ToLower(m[1])
	case "min", "minute":
		cmd.Count = 60
	}
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		switch strings.ToLower(m[3]) {
		case "m":
			n *= 60
		case "h":
			n *= 3600
		}
		cmd.Count, cmd.Exact = n, true
	}
	return cmd, true
}

var reProtectVar = regexp.MustCompile(`(?i)^(un)?protect\s+var\s+(\w+)\s*[!.]?$`)

func matchProtectVar(msg string) (Command, bool) {
	m := reProtectVar.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	return Command{Kind: KindProtectVar, On: m[1] == "", Var: textfmt.Depunctuate(m[2])}, true
}

var reSyllableTeach = regexp.MustCompile(`(?i)^([\w'\s]+?)\s+has\s+(\d+)\s+syllables?\s*[.,!]?$`)

func matchSyllableTeach(msg string) (Command, bool) {
	m := reSyllableTeach.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Command{}, false
	}
	return Command{Kind: KindSyllableTeach, Subject: strings.TrimSpace(m[1]), Count: n}, true
}

var reSyllableQuery = regexp.MustCompile(`(?is)^how\s+many\s+syllables\s+(?:does|are\s+in)\s+(.+?)(?:\s+have)?(?:\s*\?)?$`)

func matchSyllableQuery(msg string) (Command, bool) {
	m := reSyllableQuery.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	return Command{Kind: KindSyllableQuery, Subject: strings.Trim(m[1], `"' `)}, true
}

var reKeyQuery = regexp.MustCompile(`(?s)^(.+?)\s*~=\s*(.+)$`)

func matchKeyQuery(msg string) (Command, bool) {
	m := reKeyQuery.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	return Command{Kind: KindKeyQuery, Subject: strings.TrimSpace(m[1]), Key: strings.TrimSpace(m[2])}, true
}

var reEdit = regexp.MustCompile(`(?i)^(?:#(\d+)\s+)?sub\s+(.+?)\s*=>\s*(.+)$`)

// matchEdit parses "[#N] sub NEW => OLD".
func matchEdit(msg string) (Command, bool) {
	m := reEdit.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	cmd := Command{Kind: KindEdit, Index: -1, HasIndex: true, Value: strings.TrimSpace(m[2]), Old: strings.TrimSpace(m[3])}
	if m[1] != "" {
		cmd.Index, _ = Index("#" + m[1])
	}
	return cmd, true
}

var reDelete = regexp.MustCompile(`(?i)^(?:forget|remove|delete)\s+(that|#\d+)\s*[.!]?\s*$`)

func matchDelete(msg string) (Command, bool) {
	m := reDelete.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	idx, _ := Index(m[1])
	return Command{Kind: KindDelete, Index: idx, HasIndex: true}, true
}

var reListVars = regexp.MustCompile(`(?i)^list\s+var(s)?(?:\s+(\w+))?\s*$`)

func matchListVars(msg string) (Command, bool) {
	m := reListVars.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	cmd := Command{Kind: KindListVars, All: m[1] != ""}
	if m[2] != "" {
		cmd.Var = textfmt.Depunctuate(m[2])
		cmd.All = false
	}
	if !cmd.All && cmd.Var == "" {
		cmd.All = true
	}
	return cmd, true
}

var reConfig = regexp.MustCompile(`(?i)^(get|list|set|disable|enable|reset)\s+(\w+)(?:\s+(\S+))?\s*$`)

func matchConfig(msg string) (Command, bool) {
	m := reConfig.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	return Command{
		Kind:  KindConfig,
		Mode:  strings.ToLower(m[1]),
		Key:   strings.ToLower(m[2]),
		Value: strings.TrimSpace(m[3]),
	}, true
}

var rePromote = regexp.MustCompile(`(?i)^(pro|de)mote\s+(that|#\d+)\s*[!.]?$`)

func matchPromote(msg string) (Command, bool) {
	m := rePromote.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	idx, _ := Index(m[2])
	return Command{Kind: KindPromote, On: strings.EqualFold(m[1], "pro"), Index: idx, HasIndex: true}, true
}

var reAddValue = regexp.MustCompile(`(?is)^(add|remove)\s+(?:value|var)\s+(\w+)\s+(.+)$`)

func matchAddValue(msg string) (Command, bool) {
	m := reAddValue.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	kind := KindAddValue
	if strings.EqualFold(m[1], "remove") {
		kind = KindRemoveValue
	}
	return Command{Kind: kind, Var: textfmt.Depunctuate(m[2]), Value: strings.TrimSpace(m[3])}, true
}

var reRemoveVar = regexp.MustCompile(`(?i)^(?:forget|remove|delete)\s+var\s+(\w+)\s*$`)

func matchRemoveVar(msg string) (Command, bool) {
	m := reRemoveVar.FindStringSubmatch(msg)
	if m == nil {
		return Command{}, false
	}
	return Command{Kind: KindRemoveVar, Var: textfmt.Depunctuate(m[1])}, true
}
