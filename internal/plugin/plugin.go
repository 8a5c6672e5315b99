// Package plugin defines the response contributor contract and the built-in
// contributors. A plugin sees one message and may answer with text or with a
// directive asking the engine to store, look up or fetch something for it.
package plugin

import "context"

// Post is one message of recent history as plugins see it.
type Post struct {
	Name      string
	Text      string
	Syllables int
}

// Context is the message a plugin is asked about.
type Context struct {
	Name      string
	UserID    string
	Text      string
	Msg       string
	To        string
	Addressed bool
	Syllables int
	// History holds earlier posts, oldest first, excluding this one.
	History []Post
}

// AddValue asks the engine to add a value to a variable.
type AddValue struct {
	Var     string
	Value   string
	Success string
}

// Learn asks the engine to store a new factoid.
type Learn struct {
	Subject  string
	Relation string
	Value    string
	Success  string
}

// Source names what a deferred call fetches.
type Source string

const (
	// SourceVar fetches the values of the variable named by Arg.
	SourceVar Source = "var"
	// SourceSocial fetches recent posts of the account named by Arg.
	SourceSocial Source = "social"
)

// Call asks the host to fetch data and hand it to the plugin's Recall.
type Call struct {
	Source Source
	Arg    string
}

// Directive is a plugin's answer. Any combination of fields may be set.
type Directive struct {
	Texts    []string
	AddValue *AddValue
	Learn    *Learn
	Lookup   string
	Call     *Call
}

// Say is a directive carrying plain text.
func Say(texts ...string) *Directive {
	return &Directive{Texts: texts}
}

// Plugin contributes candidate responses. A nil directive means no opinion.
type Plugin interface {
	Name() string
	Respond(c Context) (*Directive, error)
}

// Recaller is implemented by plugins that issue a Call.
type Recaller interface {
	Recall(c Context, values []string) (*Directive, error)
}

// PostFetcher fetches recent posts from an external social account.
type PostFetcher interface {
	Posts(ctx context.Context, account string) ([]string, error)
}

// Builtins returns the built-in plugins in evaluation order.
func Builtins() []Plugin {
	return []Plugin{
		BandName{},
		AllCaps{},
		TLA{},
		DoYouKnow{},
		MilitaryTime{},
		HyphenSwap{},
		Haiku{},
		QuoteMe{},
		YourMom{},
		CatFact{Account: DefaultCatFactAccount},
	}
}

// Names returns the names of ps in order.
func Names(ps []Plugin) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}
