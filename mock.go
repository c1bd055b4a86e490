package cmdshell

import (
	"io"
	"sync"
)

// mockTerminal implements terminalInterface for testing and development.
//
// Input comes either from a pre-configured rune sequence (newMockTerminal) or
// from runes sent one chunk at a time by a test (newScriptedTerminal), which
// lets shell tests type the next line only once the prompt is listening.
// Raw mode and close calls are tracked for verification.
type mockTerminal struct {
	input        []rune    // Pre-configured input sequence for testing
	inputPos     int       // Current position in the input sequence
	keys         chan rune // Scripted input; nil when input is pre-configured
	terminalSize [2]int    // Fixed terminal dimensions [width, height]
	setRawErr    error     // Returned by SetRaw when set

	endOnce sync.Once

	mu         sync.Mutex
	rawMode    bool
	rawCalls   int
	closed     bool
	closeCalls int
}

func newMockTerminal(input string) *mockTerminal {
	return &mockTerminal{
		input:        []rune(input),
		terminalSize: [2]int{80, 24},
	}
}

func newScriptedTerminal() *mockTerminal {
	return &mockTerminal{
		keys:         make(chan rune, 256),
		terminalSize: [2]int{80, 24},
	}
}

// send queues keystrokes on a scripted terminal.
func (m *mockTerminal) send(s string) {
	for _, r := range s {
		m.keys <- r
	}
}

// end makes a scripted terminal report EOF once the queued keystrokes are read.
func (m *mockTerminal) end() {
	m.endOnce.Do(func() {
		close(m.keys)
	})
}

func (m *mockTerminal) SetRaw() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setRawErr != nil {
		return m.setRawErr
	}
	m.rawMode = true
	m.rawCalls++
	return nil
}

func (m *mockTerminal) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawMode = false
	return nil
}

func (m *mockTerminal) Size() (width, height int, err error) {
	return m.terminalSize[0], m.terminalSize[1], nil
}

func (m *mockTerminal) ReadRune() (rune, int, error) {
	if m.keys != nil {
		r, ok := <-m.keys
		if !ok {
			return 0, 0, io.EOF
		}
		return r, 1, nil
	}
	if m.inputPos >= len(m.input) {
		return 0, 0, io.EOF
	}
	r := m.input[m.inputPos]
	m.inputPos++
	return r, 1, nil
}

func (m *mockTerminal) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCalls++
	return nil
}

func (m *mockTerminal) isRaw() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawMode
}

func (m *mockTerminal) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
