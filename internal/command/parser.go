// Package command extracts structured trigger commands from free-text
// comment bodies.
package command

import (
	"strings"

	"github.com/reelforge/hookrelay/internal/core"
)

// spec binds one command kind to the phrases that invoke it and the way its
// arguments are extracted from the rest of the line.
type spec struct {
	kind    core.CommandKind
	phrases []string
	extract func(rest string, cmd *core.TriggerCommand)
}

// Parser matches comment bodies against a fixed command table. The table is
// ordered by precedence: an explicit generation command always wins over
// showcase/demo, which win over search, which wins over the generic list.
// Only the first matching entry is consulted.
type Parser struct {
	table []spec
}

// NewParser builds a parser for the given bot handle (e.g. "reelforge").
// Each command accepts the mention variants "@handle <cmd>", "@handle-<cmd>"
// and "@handle<cmd>"; the generation command additionally accepts a
// plain-English fallback phrase.
func NewParser(handle string) *Parser {
	handle = strings.ToLower(strings.TrimPrefix(handle, "@"))

	mention := func(word string) []string {
		return []string{
			"@" + handle + " " + word,
			"@" + handle + "-" + word,
			"@" + handle + word,
		}
	}

	return &Parser{table: []spec{
		{
			kind:    core.CommandGenerate,
			phrases: append(mention("changelog"), "generate a changelog video"),
		},
		{
			kind:    core.CommandShowcase,
			phrases: mention("showcase"),
			extract: extractTarget,
		},
		{
			kind:    core.CommandDemo,
			phrases: mention("demo"),
			extract: extractTarget,
		},
		{
			kind:    core.CommandSearch,
			phrases: mention("search"),
			extract: extractQuery,
		},
		{
			kind:    core.CommandList,
			phrases: mention("list"),
		},
	}}
}

// Parse returns the command invoked by body, or nil when no trigger phrase is
// present. Matching is case-insensitive. Parse does not judge applicability;
// the router decides whether the surrounding thread may act on the command.
func (p *Parser) Parse(body string) *core.TriggerCommand {
	// Trigger phrases are pure ASCII, so folding only ASCII letters keeps
	// every byte offset valid in the original body. strings.ToLower would
	// not: some runes change byte length when lowercased, which skews the
	// slice below into neighboring bytes or past the end.
	lowered := lowerASCII(body)

	for _, s := range p.table {
		for _, phrase := range s.phrases {
			idx := strings.Index(lowered, phrase)
			if idx < 0 {
				continue
			}

			cmd := &core.TriggerCommand{Kind: s.kind}
			if s.extract != nil {
				rest := body[idx+len(phrase):]
				// Arguments end at the line break.
				if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
					rest = rest[:nl]
				}
				s.extract(strings.TrimSpace(rest), cmd)
			}
			return cmd
		}
	}
	return nil
}

// lowerASCII lowercases only the ASCII letters of s, leaving every other
// byte, and therefore the length and all offsets, untouched.
func lowerASCII(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// extractTarget takes the first whitespace-delimited token after the command
// word.
func extractTarget(rest string, cmd *core.TriggerCommand) {
	if fields := strings.Fields(rest); len(fields) > 0 {
		cmd.Target = fields[0]
	}
}

// extractQuery keeps the remainder of the line as free text.
func extractQuery(rest string, cmd *core.TriggerCommand) {
	cmd.Query = rest
}
