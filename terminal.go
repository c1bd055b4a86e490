package cmdshell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-tty"
	"golang.org/x/term"
)

// defaultWidth is used whenever the terminal size can not be determined.
const defaultWidth = 80

// terminalInterface abstracts terminal operations for testability and cross-platform compatibility.
//
// Implementations:
//   - realTerminal: Uses go-tty for actual terminal interaction
//   - mockTerminal: Replays scripted input for tests
type terminalInterface interface {
	SetRaw() error                        // Enter raw mode for immediate key processing
	Restore() error                       // Restore original terminal settings
	Size() (width, height int, err error) // Get terminal dimensions with safe fallbacks
	ReadRune() (rune, int, error)         // Read a single Unicode character from input
	Close() error                         // Clean up resources and prevent fd leaks
}

// realTerminal implements terminalInterface with go-tty for input and
// golang.org/x/term for raw mode handling.
//
// The 'closed' flag prevents a double Close, which panics on Windows.
type realTerminal struct {
	tty           *tty.TTY    // TTY handle from go-tty for cross-platform terminal operations
	closed        bool        // Track if terminal is already closed
	stdinFd       int         // File descriptor for stdin for raw mode management
	originalState *term.State // Original terminal state to restore on exit
}

func newRealTerminal() (*realTerminal, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	return &realTerminal{
		tty:     t,
		stdinFd: int(os.Stdin.Fd()),
	}, nil
}

func (t *realTerminal) SetRaw() error {
	// Capture the current state every time so Restore goes back to whatever
	// mode was active before this call.
	if term.IsTerminal(t.stdinFd) {
		state, err := term.GetState(t.stdinFd)
		if err != nil {
			return err
		}
		t.originalState = state

		if _, err := term.MakeRaw(t.stdinFd); err != nil {
			return err
		}
	}
	return nil
}

func (t *realTerminal) Restore() error {
	if t.originalState != nil && term.IsTerminal(t.stdinFd) {
		err := term.Restore(t.stdinFd, t.originalState)
		t.originalState = nil
		return err
	}
	return nil
}

func (t *realTerminal) Size() (width, height int, err error) {
	w, h, err := t.tty.Size()
	if err != nil || w <= 0 || h <= 0 {
		return defaultWidth, 24, err
	}
	return w, h, nil
}

func (t *realTerminal) ReadRune() (rune, int, error) {
	r, err := t.tty.ReadRune()
	if err != nil {
		return 0, 0, err
	}
	return r, 1, nil
}

func (t *realTerminal) Close() error {
	if t.closed {
		return nil
	}
	if t.tty != nil {
		err := t.tty.Close()
		t.closed = true
		return err
	}
	return nil
}

// Terminal is an open terminal shared by the input capabilities and prompts of
// a shell.
//
// All input is read by one goroutine owned by the Terminal, so a capability
// that is deregistered never keeps a pending read that would steal a keystroke
// from the next one. Raw mode is reference counted: it is entered when the first
// capability registers and restored when the last one deregisters.
type Terminal struct {
	term   terminalInterface
	output io.Writer

	runes chan rune
	done  chan struct{}

	mu      sync.Mutex
	rawRefs int
	readErr error
	pending []rune // put back by unread, read before runes

	pumpOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// OpenTerminal opens the controlling terminal.
func OpenTerminal() (*Terminal, error) {
	t, err := newRealTerminal()
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}

	var output io.Writer = os.Stdout
	if runtime.GOOS == "windows" {
		// Use colorable for Windows ANSI color support
		output = colorable.NewColorableStdout()
	}
	return newTerminal(t, output), nil
}

func newTerminal(t terminalInterface, output io.Writer) *Terminal {
	return &Terminal{
		term:   t,
		output: output,
		runes:  make(chan rune, 64),
		done:   make(chan struct{}),
	}
}

// Output returns the writer prompts render to.
func (t *Terminal) Output() io.Writer {
	return t.output
}

// Width returns the terminal width in columns, falling back to 80.
func (t *Terminal) Width() int {
	width, _, err := t.term.Size()
	if err != nil || width <= 0 {
		width = defaultWidth
	}
	if runtime.GOOS == "windows" {
		// Writing into the last column wraps the line on Windows consoles.
		width--
	}
	return width
}

// Close stops reading input and releases the terminal. Raw mode is restored if
// a capability still holds it. It is safe to call Close multiple times.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		var restoreErr error
		if t.rawRefs > 0 {
			t.rawRefs = 0
			restoreErr = t.term.Restore()
		}
		t.mu.Unlock()

		t.closeErr = errors.Join(restoreErr, t.term.Close())
	})
	return t.closeErr
}

// input starts the reader goroutine on first use and returns the rune stream.
// The channel is closed when the terminal input ends; readErr tells why.
func (t *Terminal) input() <-chan rune {
	t.pumpOnce.Do(func() {
		go t.pump()
	})
	return t.runes
}

func (t *Terminal) pump() {
	defer close(t.runes)
	for {
		r, _, err := t.term.ReadRune()
		if err != nil {
			t.mu.Lock()
			t.readErr = err
			t.mu.Unlock()
			return
		}
		select {
		case t.runes <- r:
		case <-t.done:
			return
		}
	}
}

// unread puts text back in front of the input so the next KeyInput reads it
// first. It is called while no KeyInput is reading.
func (t *Terminal) unread(text string) {
	if text == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append([]rune(text), t.pending...)
}

// nextPending returns the oldest rune put back by unread.
func (t *Terminal) nextPending() (rune, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return 0, false
	}
	r := t.pending[0]
	t.pending = t.pending[1:]
	return r, true
}

// err returns the error that ended the input stream, if any.
func (t *Terminal) err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readErr
}

func (t *Terminal) acquireRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rawRefs == 0 {
		if err := t.term.SetRaw(); err != nil {
			return fmt.Errorf("failed to enter raw mode: %w", err)
		}
	}
	t.rawRefs++
	return nil
}

func (t *Terminal) releaseRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rawRefs == 0 {
		return nil
	}
	t.rawRefs--
	if t.rawRefs == 0 {
		if err := t.term.Restore(); err != nil {
			return fmt.Errorf("failed to exit raw mode: %w", err)
		}
	}
	return nil
}
