package cmdshell

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// renderer draws the prompt block and keeps track of its height so the next
// draw can replace it.
//
// It assumes the terminal cursor sits where the previous render left it, at the
// end of the last line of the block. Callers that move the cursor in between
// must move it back before rendering again.
type renderer struct {
	output    io.Writer // Target output writer (typically stdout or colorable wrapper)
	lastLines int       // Terminal rows taken up by the last render, soft wraps included
}

func newRenderer(output io.Writer) *renderer {
	return &renderer{output: output}
}

// render replaces the previously drawn block with content. Lines in content
// are separated by "\n"; lines wider than width wrap onto further rows.
func (r *renderer) render(content string, width int) error {
	if err := r.clearPreviousLines(); err != nil {
		return err
	}

	lines := strings.Split(content, "\n")
	if _, err := io.WriteString(r.output, strings.Join(lines, "\r\n")); err != nil {
		return err
	}
	r.lastLines = 0
	for _, line := range lines {
		r.lastLines += wrappedRows(line, width)
	}
	return nil
}

// clearPreviousLines moves to the first row of the previous block and clears
// everything below it.
func (r *renderer) clearPreviousLines() error {
	var seq string
	if r.lastLines > 1 {
		seq = ansi.CursorUp(r.lastLines - 1)
	}
	_, err := io.WriteString(r.output, seq+"\r"+ansi.EraseScreenBelow)
	return err
}

// moveCursor moves the cursor dx columns right (left when negative) and dy
// rows down (up when negative).
func (r *renderer) moveCursor(dx, dy int) error {
	var b strings.Builder
	switch {
	case dx > 0:
		b.WriteString(ansi.CursorRight(dx))
	case dx < 0:
		b.WriteString(ansi.CursorLeft(-dx))
	}
	switch {
	case dy > 0:
		b.WriteString(ansi.CursorDown(dy))
	case dy < 0:
		b.WriteString(ansi.CursorUp(-dy))
	}
	if b.Len() == 0 {
		return nil
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

// done ends the block; the next render starts on a fresh line.
func (r *renderer) done() error {
	r.lastLines = 0
	_, err := io.WriteString(r.output, "\r\n")
	return err
}

// wrappedRows returns how many terminal rows line fills at the given width.
// A line exactly as wide as the terminal leaves the cursor on its last column
// and still takes one row.
func wrappedRows(line string, width int) int {
	w := ansi.StringWidth(line)
	if width <= 0 || w <= width {
		return 1
	}
	return (w + width - 1) / width
}

// endColumn returns the column the cursor is left at after writing line.
func endColumn(line string, width int) int {
	return ansi.StringWidth(line) - (wrappedRows(line, width)-1)*width
}
