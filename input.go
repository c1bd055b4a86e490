package cmdshell

import (
	"errors"
	"maps"
	"strings"
	"sync"
	"time"
)

// KeyKind is the category of a key event.
type KeyKind int

// Key event categories. Every keypress maps to exactly one of them.
const (
	KeyInterrupt KeyKind = iota // Ctrl+C
	KeyUp                       // Up arrow
	KeyDown                     // Down arrow
	KeyTab                      // Tab, or Shift+Tab with Shift set
	KeyEnter                    // Enter / Return
	KeyData                     // anything else, raw text in Data
)

// String returns the name of the key kind.
func (k KeyKind) String() string {
	switch k {
	case KeyInterrupt:
		return "interrupt"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeyTab:
		return "tab"
	case KeyEnter:
		return "enter"
	case KeyData:
		return "input"
	default:
		return "unknown"
	}
}

// KeyEvent is one decoded keypress.
type KeyEvent struct {
	Kind  KeyKind
	Shift bool   // Shift was held (KeyTab only)
	Data  string // raw text of the keypress (KeyData only)
}

// sequence returns the input that decodes to e.
func (e KeyEvent) sequence() string {
	switch e.Kind {
	case KeyInterrupt:
		return "\x03"
	case KeyUp:
		return "\x1b[A"
	case KeyDown:
		return "\x1b[B"
	case KeyTab:
		if e.Shift {
			return "\x1b[Z"
		}
		return "\t"
	case KeyEnter:
		return "\r"
	default:
		return e.Data
	}
}

// keySequence returns the input that decodes to events.
func keySequence(events []KeyEvent) string {
	var b strings.Builder
	for _, event := range events {
		b.WriteString(event.sequence())
	}
	return b.String()
}

const (
	// escapeTimeout is how long to wait for the rest of an escape sequence
	// before treating ESC as a key of its own.
	escapeTimeout = 50 * time.Millisecond
	// maxEscapeLength limits how many runes after ESC are read as one sequence.
	maxEscapeLength = 10
)

// openTerminal is replaced in tests.
var openTerminal = OpenTerminal

// KeyInput turns raw terminal input into key events and hands each one to the
// handler registered for its kind.
//
// Handlers run one at a time on a single dispatch goroutine, in keypress order.
// There is at most one handler per kind; events of a kind without a handler are
// dropped. While registered, the KeyInput holds the terminal in raw mode.
type KeyInput struct {
	term  *Terminal
	owned bool

	mu       sync.Mutex
	handlers map[KeyKind]func(KeyEvent)
	resume   chan struct{} // non-nil while paused

	pauseSignal chan struct{}
	done        chan struct{} // closed by Deregister
	ended       chan struct{} // closed when terminal input ends
	exited      chan struct{} // closed when the dispatch goroutine returns

	deregisterOnce sync.Once
	deregisterErr  error
}

// RegisterInput starts intercepting keypresses on t. When t is nil, the
// KeyInput opens the terminal itself and closes it again on Deregister; a
// terminal passed in is left open.
func RegisterInput(t *Terminal) (*KeyInput, error) {
	return registerInput(t, nil)
}

// registerInput is RegisterInput with handlers set before the first key is
// read, so keys already waiting on the terminal are not dropped.
func registerInput(t *Terminal, handlers map[KeyKind]func(KeyEvent)) (*KeyInput, error) {
	owned := false
	if t == nil {
		opened, err := openTerminal()
		if err != nil {
			return nil, err
		}
		t = opened
		owned = true
	}

	if err := t.acquireRaw(); err != nil {
		if owned {
			_ = t.Close()
		}
		return nil, err
	}

	k := &KeyInput{
		term:        t,
		owned:       owned,
		handlers:    make(map[KeyKind]func(KeyEvent), len(handlers)),
		pauseSignal: make(chan struct{}, 1),
		done:        make(chan struct{}),
		ended:       make(chan struct{}),
		exited:      make(chan struct{}),
	}
	maps.Copy(k.handlers, handlers)
	go k.run()
	return k, nil
}

// Terminal returns the terminal the KeyInput reads from.
func (k *KeyInput) Terminal() *Terminal {
	return k.term
}

// On sets the handler for kind, replacing any previous one. A nil handler
// removes it.
func (k *KeyInput) On(kind KeyKind, handler func(KeyEvent)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if handler == nil {
		delete(k.handlers, kind)
		return
	}
	k.handlers[kind] = handler
}

// Pause stops reading keypresses until Resume. Keys typed meanwhile stay
// queued in the terminal.
func (k *KeyInput) Pause() {
	k.mu.Lock()
	if k.resume == nil {
		k.resume = make(chan struct{})
	}
	k.mu.Unlock()

	select {
	case k.pauseSignal <- struct{}{}:
	default:
	}
}

// Resume continues reading keypresses after Pause.
func (k *KeyInput) Resume() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.resume != nil {
		close(k.resume)
		k.resume = nil
	}
}

// Done is closed when the terminal input ends, see Err.
func (k *KeyInput) Done() <-chan struct{} {
	return k.ended
}

// Err returns the error that ended the terminal input (io.EOF at end of input).
func (k *KeyInput) Err() error {
	return k.term.err()
}

// Deregister stops intercepting keypresses, removes all handlers and releases
// raw mode. The terminal is closed only if the KeyInput opened it.
//
// Deregister waits for a running handler to return, so it must not be called
// from inside a handler. It is safe to call Deregister multiple times.
func (k *KeyInput) Deregister() error {
	k.deregisterOnce.Do(func() {
		close(k.done)
		<-k.exited

		k.mu.Lock()
		clear(k.handlers)
		if k.resume != nil {
			close(k.resume)
			k.resume = nil
		}
		k.mu.Unlock()

		err := k.term.releaseRaw()
		if k.owned {
			err = errors.Join(err, k.term.Close())
		}
		k.deregisterErr = err
	})
	return k.deregisterErr
}

func (k *KeyInput) run() {
	defer close(k.exited)

	runes := k.term.input()
	for {
		if !k.waitResumed() {
			return
		}

		r, ok := k.term.nextPending()
		if !ok {
			select {
			case <-k.done:
				return
			case <-k.pauseSignal:
				continue
			case r, ok = <-runes:
			}
			if !ok {
				close(k.ended)
				return
			}
		}
		// A key read just as Pause was called waits for Resume.
		if !k.waitResumed() {
			k.term.unread(string(r))
			return
		}

		event := k.decode(r, runes)
		select {
		case <-k.done:
			// Left for the next KeyInput on the terminal.
			k.term.unread(event.sequence())
			return
		default:
		}
		k.dispatch(event)
	}
}

// waitResumed blocks while the KeyInput is paused. It returns false once
// Deregister has been called.
func (k *KeyInput) waitResumed() bool {
	k.mu.Lock()
	resume := k.resume
	k.mu.Unlock()
	if resume == nil {
		return true
	}
	select {
	case <-resume:
		return true
	case <-k.done:
		return false
	}
}

func (k *KeyInput) dispatch(event KeyEvent) {
	k.mu.Lock()
	handler := k.handlers[event.Kind]
	k.mu.Unlock()
	if handler != nil {
		handler(event)
	}
}

func (k *KeyInput) decode(r rune, runes <-chan rune) KeyEvent {
	switch r {
	case '\x03':
		return KeyEvent{Kind: KeyInterrupt}
	case '\r', '\n':
		return KeyEvent{Kind: KeyEnter}
	case '\t':
		return KeyEvent{Kind: KeyTab}
	case '\x1b':
		return decodeEscape(k.readEscapeSequence(runes))
	default:
		return KeyEvent{Kind: KeyData, Data: string(r)}
	}
}

// readEscapeSequence reads the runes following ESC. It stops at the end of a
// complete sequence, when no further rune arrives within escapeTimeout, or at
// the end of input.
func (k *KeyInput) readEscapeSequence(runes <-chan rune) string {
	seq := make([]rune, 0, maxEscapeLength)
	timer := time.NewTimer(escapeTimeout)
	defer timer.Stop()

	for len(seq) < maxEscapeLength {
		if r, ok := k.term.nextPending(); ok {
			seq = append(seq, r)
			if escapeComplete(seq) {
				return string(seq)
			}
			continue
		}
		select {
		case r, ok := <-runes:
			if !ok {
				return string(seq)
			}
			seq = append(seq, r)
			if escapeComplete(seq) {
				return string(seq)
			}
			timer.Reset(escapeTimeout)
		case <-timer.C:
			return string(seq)
		case <-k.done:
			return string(seq)
		}
	}
	return string(seq)
}

// escapeComplete reports whether seq, the runes after ESC, form a whole
// sequence: a CSI sequence ends with a final byte in 0x40-0x7E, an SS3
// sequence is two runes long, and anything else is Alt plus one key.
func escapeComplete(seq []rune) bool {
	switch seq[0] {
	case '[':
		last := seq[len(seq)-1]
		return len(seq) >= 2 && last >= 0x40 && last <= 0x7e
	case 'O':
		return len(seq) >= 2
	default:
		return true
	}
}

func decodeEscape(seq string) KeyEvent {
	switch seq {
	case "[A", "OA":
		return KeyEvent{Kind: KeyUp}
	case "[B", "OB":
		return KeyEvent{Kind: KeyDown}
	case "[Z":
		return KeyEvent{Kind: KeyTab, Shift: true}
	default:
		return KeyEvent{Kind: KeyData, Data: "\x1b" + seq}
	}
}
