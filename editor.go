package cmdshell

import (
	"strings"
	"unicode"
)

// lineEditor holds the raw text of the line being typed. The cursor is always
// at the end of the line.
type lineEditor struct {
	line []rune
}

// text returns the current line.
func (e *lineEditor) text() string {
	return string(e.line)
}

// set replaces the whole line, like clearing it with Ctrl+U and typing text.
func (e *lineEditor) set(text string) {
	e.line = []rune(text)
}

// apply edits the line with the raw text of one keypress.
func (e *lineEditor) apply(data string) {
	if strings.HasPrefix(data, "\x1b") {
		// Escape sequences move the cursor or are unbound; the cursor stays put.
		return
	}
	for _, r := range data {
		switch r {
		case '\x7f', '\b': // Backspace
			if len(e.line) > 0 {
				e.line = e.line[:len(e.line)-1]
			}
		case '\x15': // Ctrl+U
			e.line = e.line[:0]
		case '\x17': // Ctrl+W
			e.deleteWordBack()
		default:
			if unicode.IsPrint(r) {
				e.line = append(e.line, r)
			}
		}
	}
}

// deleteWordBack removes the trailing whitespace and the word before it.
func (e *lineEditor) deleteWordBack() {
	end := len(e.line)
	for end > 0 && unicode.IsSpace(e.line[end-1]) {
		end--
	}
	for end > 0 && !unicode.IsSpace(e.line[end-1]) {
		end--
	}
	e.line = e.line[:end]
}
