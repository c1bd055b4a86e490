package cmdshell

import (
	"strings"
	"unicode"
	"unicode/utf8"

	runewidth "github.com/mattn/go-runewidth"
)

const (
	inverseOn  = "\x1b[7m"
	inverseOff = "\x1b[27m"
)

// Completion holds the candidates for the argument being typed and the one the
// user has cycled to, if any. The candidate list is fixed once populated.
type Completion struct {
	options  []string
	selected int // -1 means nothing is selected.
}

// PopulateCompletion builds a Completion for args, the whitespace-split input.
//
// The last element of args is the argument in progress. Candidates that start
// with it are kept; when none do, the argument is treated as unrelated and every
// candidate is offered. A single remaining candidate is selected right away,
// since it is going to be filled in anyway.
//
// args is not modified.
func PopulateCompletion(args, candidates []string) *Completion {
	last := ""
	if len(args) > 0 {
		last = args[len(args)-1]
	}

	filtered := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.HasPrefix(candidate, last) {
			filtered = append(filtered, candidate)
		}
	}
	if len(filtered) == 0 {
		filtered = append(filtered, candidates...)
	}

	c := &Completion{
		options:  filtered,
		selected: -1,
	}
	if len(filtered) == 1 {
		c.selected = 0
	}
	return c
}

// Selection returns the selected candidate.
func (c *Completion) Selection() (string, bool) {
	if c.selected < 0 || c.selected >= len(c.options) {
		return "", false
	}
	return c.options[c.selected], true
}

// PossibleCompletionCount returns the number of candidates.
func (c *Completion) PossibleCompletionCount() int {
	return len(c.options)
}

// Options returns a copy of the candidates.
func (c *Completion) Options() []string {
	return append([]string{}, c.options...)
}

// SelectNext moves the selection forward, wrapping to the first candidate.
func (c *Completion) SelectNext() {
	if len(c.options) == 0 {
		return
	}
	if c.selected < 0 || c.selected >= len(c.options)-1 {
		c.selected = 0
		return
	}
	c.selected++
}

// SelectPrevious moves the selection backward, wrapping to the last candidate.
func (c *Completion) SelectPrevious() {
	if len(c.options) == 0 {
		return
	}
	if c.selected <= 0 {
		c.selected = len(c.options) - 1
		return
	}
	c.selected--
}

// RenderCommand returns command with the selection filled in.
//
//   - command ends in whitespace (or is empty): the selection is appended.
//   - the selection starts with the last argument: the argument is replaced.
//   - otherwise the selection is added as a new argument after a space.
func (c *Completion) RenderCommand(command string) string {
	selection, ok := c.Selection()
	if !ok {
		return command
	}

	last := lastArgument(command)
	switch {
	case strings.TrimSpace(last) == "":
		return command + selection
	case strings.HasPrefix(selection, last):
		return command[:len(command)-len(last)] + selection
	default:
		return command + " " + selection
	}
}

// RenderOptions returns the candidates padded to the display width of the
// widest one, with the selected candidate shown inverted.
func (c *Completion) RenderOptions() []string {
	width := 0
	for _, option := range c.options {
		width = max(width, runewidth.StringWidth(option))
	}

	rendered := make([]string, len(c.options))
	for i, option := range c.options {
		padded := runewidth.FillRight(option, width)
		if i == c.selected {
			padded = inverseOn + padded + inverseOff
		}
		rendered[i] = padded
	}
	return rendered
}

// lastArgument returns the text after the last whitespace rune of command.
func lastArgument(command string) string {
	i := strings.LastIndexFunc(command, unicode.IsSpace)
	if i < 0 {
		return command
	}
	_, size := utf8.DecodeRuneInString(command[i:])
	return command[i+size:]
}

// splitArgs splits input on runs of whitespace the way the completion resolver
// sees it: leading whitespace yields a leading empty argument, and a trailing
// separator yields a trailing empty argument, which is the argument about to be
// typed.
func splitArgs(input string) []string {
	if input == "" {
		return []string{""}
	}
	fields := strings.FieldsFunc(input, unicode.IsSpace)
	if first, _ := utf8.DecodeRuneInString(input); unicode.IsSpace(first) {
		fields = append([]string{""}, fields...)
	}
	if last, _ := utf8.DecodeLastRuneInString(input); unicode.IsSpace(last) {
		fields = append(fields, "")
	}
	return fields
}
