// Package command tokenizes and classifies the lines read from stdin
// into the executor's command verbs (§4.A).
package command

import "strings"

// Verb names a recognized command.
type Verb string

const (
	Run   Verb = "run"
	Out   Verb = "out"
	Err   Verb = "err"
	Kill  Verb = "kill"
	Sleep Verb = "sleep"
	Quit  Verb = "quit"
	Empty Verb = "" // a blank line: no verb, no-op
)

// Command is one parsed input line: a verb plus its remaining tokens.
type Command struct {
	Verb Verb
	Args []string
}

// Tokenize splits line strictly on single ASCII space characters, exactly
// as the original executor's tokenizer does: a run of spaces, or a
// leading or trailing space, produces empty tokens rather than being
// collapsed, and an empty line yields one empty token. Tabs and other
// whitespace are ordinary, non-separator characters.
func Tokenize(line string) []string {
	return strings.Split(line, " ")
}

// Parse tokenizes line and classifies its first token as a verb. An
// empty line (Tokenize returns a single empty token) parses as Empty.
func Parse(line string) Command {
	toks := Tokenize(line)
	verb := Verb(toks[0])
	args := toks[1:]
	if toks[0] == "" && len(toks) == 1 {
		return Command{Verb: Empty}
	}
	switch verb {
	case Run, Out, Err, Kill, Sleep, Quit:
		return Command{Verb: verb, Args: args}
	default:
		return Command{Verb: verb, Args: args}
	}
}
