// Package commands implements the bot's administrative directives.
package commands

import (
	"strings"
	"unicode"
)

// Prefix starts every textual directive.
const Prefix = "!"

type Kind int

const (
	Register Kind = iota + 1
	Unregister
	Amnesia
	SetPrompt
	Nuke
	SuperNuke
	Regenerate
)

type Command struct {
	Kind Kind
	Arg  string
}

// Definition describes a directive for platforms that register structured
// commands up front.
type Definition struct {
	Name        string
	Kind        Kind
	Description string
	// ArgName is set for directives that take a string argument.
	ArgName        string
	ArgDescription string
}

var definitions = []Definition{
	{Name: "register", Kind: Register, Description: "Start responding to messages in this channel"},
	{Name: "unregister", Kind: Unregister, Description: "Stop responding in this channel and forget it"},
	{Name: "amnesia", Kind: Amnesia, Description: "Reset the chat history and system prompt"},
	{Name: "setprompt", Kind: SetPrompt, Description: "Replace the system prompt", ArgName: "prompt", ArgDescription: "The new system prompt"},
	{Name: "nuke", Kind: Nuke, Description: "Delete my recent messages in this channel"},
	{Name: "supernuke", Kind: SuperNuke, Description: "Delete all recent messages in this channel"},
	{Name: "regenerate", Kind: Regenerate, Description: "Answer the last message again"},
}

// Definitions returns the directive table.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func (k Kind) String() string {
	for _, d := range definitions {
		if d.Kind == k {
			return d.Name
		}
	}
	return "unknown"
}

// Parse recognizes a textual directive at the start of text. Names are case
// sensitive. Directives without an argument must stand alone; setprompt takes
// the rest of the text as its argument.
func Parse(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, Prefix) {
		return Command{}, false
	}
	name, rest := text[len(Prefix):], ""
	if i := strings.IndexFunc(name, unicode.IsSpace); i >= 0 {
		name, rest = name[:i], name[i:]
	}
	for _, d := range definitions {
		if d.Name != name {
			continue
		}
		if d.ArgName == "" {
			if strings.TrimSpace(rest) != "" {
				return Command{}, false
			}
			return Command{Kind: d.Kind}, true
		}
		return Command{Kind: d.Kind, Arg: strings.TrimSpace(rest)}, true
	}
	return Command{}, false
}

// Lookup maps a structured directive to a Command.
func Lookup(name, arg string) (Command, bool) {
	for _, d := range definitions {
		if d.Name == name {
			if d.ArgName == "" {
				arg = ""
			}
			return Command{Kind: d.Kind, Arg: strings.TrimSpace(arg)}, true
		}
	}
	return Command{}, false
}
