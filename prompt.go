package cmdshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

// Common errors
var (
	// ErrEOF is returned when the terminal input ends.
	ErrEOF = errors.New("EOF")
	// ErrInterrupted is returned when the user presses Ctrl+C after typing something.
	ErrInterrupted = errors.New("interrupted")
	// ErrInterruptedWithNoInput is returned when the user presses Ctrl+C before
	// any other key.
	ErrInterruptedWithNoInput = errors.New("interrupted with no input")
)

// CompletionError is returned by Prompt.Run when the completion resolver fails.
type CompletionError struct {
	Args []string // Arguments the resolver was called with
	Err  error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("failed to resolve completions for %q: %v", e.Args, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// optionSeparator is put between completion options on the same row.
const optionSeparator = "  "

// CompletionFunc resolves the completion candidates for the input split into
// arguments. The last argument is the one being typed; it is empty when the
// input ends in whitespace. The function returns every candidate for that
// position: filtering by what has been typed is done by the prompt.
type CompletionFunc func(ctx context.Context, args []string) ([]string, error)

// Config holds the configuration shared by prompts and shells.
type Config struct {
	Prefix      string          // Prompt prefix / shell delimiter (e.g., "> ")
	Completer   CompletionFunc  // Completion resolver (nil disables completion)
	History     *CommandHistory // History to search (nil creates an empty one)
	HistorySeed []string        // Commands loaded into the history, oldest first
	MaxHistory  int             // Maximum number of history entries (0 for default)
	ColorScheme *ColorScheme    // Color scheme (nil for default)
	Terminal    *Terminal       // Terminal to use (nil opens the controlling terminal)
	Logger      *zap.Logger     // Logger (nil disables logging)
}

// Option represents a configuration option for prompts and shells.
type Option func(*Config)

// WithCompleter sets the completion resolver.
func WithCompleter(completer CompletionFunc) Option {
	return func(c *Config) {
		c.Completer = completer
	}
}

// WithHistory makes the prompt search and extend the given history.
func WithHistory(history *CommandHistory) Option {
	return func(c *Config) {
		c.History = history
	}
}

// WithHistorySeed loads commands into the history before the first prompt.
//
// Example:
//
//	shell, err := cmdshell.New(processor,
//		cmdshell.WithHistorySeed([]string{"git status", "make test"}),
//	)
func WithHistorySeed(commands []string) Option {
	return func(c *Config) {
		c.HistorySeed = append(c.HistorySeed, commands...)
	}
}

// WithMaxHistory caps the number of history entries kept in memory.
func WithMaxHistory(maxEntries int) Option {
	return func(c *Config) {
		c.MaxHistory = maxEntries
	}
}

// WithColorScheme sets the color scheme
func WithColorScheme(colorScheme *ColorScheme) Option {
	return func(c *Config) {
		c.ColorScheme = colorScheme
	}
}

// WithTerminal shares an open terminal instead of opening the controlling one.
// The terminal is not closed by the prompt or shell.
func WithTerminal(t *Terminal) Option {
	return func(c *Config) {
		c.Terminal = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDelimiter sets the text shown in front of the input.
func WithDelimiter(delimiter string) Option {
	return func(c *Config) {
		c.Prefix = delimiter
	}
}

func (c *Config) setDefaults() {
	if c.History == nil {
		c.History = NewCommandHistory()
	}
	if c.MaxHistory > 0 {
		c.History.SetMaxEntries(c.MaxHistory)
	}
	c.History.Load(c.HistorySeed)
	c.HistorySeed = nil
	if c.ColorScheme == nil {
		c.ColorScheme = ThemeDefault
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Prompt reads one line of input at a time, with history search on the arrow
// keys and completion on Tab.
//
// Keys:
//   - Up / Down: older / newer history entry starting with the typed text
//   - Tab / Shift+Tab: complete the argument being typed, then cycle the options
//   - Enter: submit, filling in the selected completion
//   - Ctrl+C: cancel
//   - Backspace, Ctrl+U, Ctrl+W: edit the line
//
// A Prompt is not safe for concurrent use; run one session at a time.
type Prompt struct {
	config Config

	// onReady is called once a session listens for keys. Used by tests.
	onReady func()
}

// NewPrompt creates a prompt with the specified prefix and options.
//
// Example:
//
//	p := cmdshell.NewPrompt("$ ",
//		cmdshell.WithCompleter(cmdshell.NewStaticCompleter([]string{"status", "commit"})),
//	)
//	line, err := p.Run(context.Background())
func NewPrompt(prefix string, options ...Option) *Prompt {
	config := Config{}
	for _, option := range options {
		option(&config)
	}
	config.Prefix = prefix
	config.setDefaults()
	return &Prompt{config: config}
}

func newPromptFromConfig(config Config) *Prompt {
	config.setDefaults()
	return &Prompt{config: config}
}

// History returns the history the prompt searches.
func (p *Prompt) History() *CommandHistory {
	return p.config.History
}

// SetPrefix changes the prompt prefix for the next session.
func (p *Prompt) SetPrefix(prefix string) {
	p.config.Prefix = prefix
}

// Run reads one line. It returns the submitted line, or:
//   - ErrInterrupted / ErrInterruptedWithNoInput when Ctrl+C is pressed
//   - ErrEOF when the terminal input ends
//   - ctx.Err() when ctx is done
//   - a *CompletionError if the completion resolver fails
//
// The history is not modified beyond its search state; the caller decides
// what to add and when to reset the search.
func (p *Prompt) Run(ctx context.Context) (string, error) {
	s := &session{
		config:  &p.config,
		history: p.config.History,
		keys:    make(chan KeyEvent),
		stop:    make(chan struct{}),
	}
	forward := func(event KeyEvent) {
		select {
		case s.keys <- event:
		case <-s.stop:
			s.requeue(event)
		}
	}
	handlers := make(map[KeyKind]func(KeyEvent))
	for _, kind := range []KeyKind{KeyInterrupt, KeyUp, KeyDown, KeyTab, KeyEnter, KeyData} {
		handlers[kind] = forward
	}

	input, err := registerInput(p.config.Terminal, handlers)
	if err != nil {
		return "", fmt.Errorf("failed to register key input: %w", err)
	}
	s.term = input.Terminal()
	s.screen = newRenderer(s.term.Output())
	defer func() {
		close(s.stop)
		if err := input.Deregister(); err != nil {
			p.config.Logger.Warn("failed to release key input", zap.Error(err))
		}
		// Keys read after the line was submitted belong to the next prompt.
		s.term.unread(keySequence(s.unconsumed))
	}()

	line, err := s.run(ctx, input, p.onReady)
	if err != nil {
		p.config.Logger.Debug("prompt session ended", zap.Error(err))
		return "", err
	}
	p.config.Logger.Debug("prompt session submitted", zap.String("line", line))
	return line, nil
}

// sessionState is the state of one line-editing session.
type sessionState struct {
	buffer      string      // Text typed by the user, without the history overlay
	completion  *Completion // Active completion, nil if none
	hasKeypress bool        // A key other than Ctrl+C has been pressed
}

// effect tells the session loop what to do after a transition.
type effect struct {
	rewrite bool     // Overwrite the line editor with the displayed text
	render  bool     // Redraw the prompt
	resolve []string // Resolve completions for these arguments (nil for none)
	finish  bool     // End the session with the buffer or err
	err     error
}

// cursorAdjustment is how far the cursor was moved back from the end of the
// options block to the end of the prompt line.
type cursorAdjustment struct {
	columns int
	rows    int
}

// resolution is the outcome of a completion resolver call.
type resolution struct {
	args       []string
	candidates []string
	err        error
}

// session runs one prompt: it owns the line editor and the screen while the
// transitions own the sessionState.
type session struct {
	config  *Config
	history *CommandHistory
	term    *Terminal
	screen  *renderer
	editor  lineEditor
	adjust  *cursorAdjustment

	keys chan KeyEvent
	stop chan struct{}

	mu         sync.Mutex
	unconsumed []KeyEvent // read but not used by the session, oldest first
}

func (s *session) run(ctx context.Context, input *KeyInput, onReady func()) (string, error) {
	st := sessionState{}
	if err := s.render(st); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	if onReady != nil {
		onReady()
	}

	var (
		pending    []KeyEvent
		cancel     context.CancelFunc // non-nil while a resolution is in flight
		results    = make(chan resolution, 1)
		ended      = input.Done()
		inputEnded bool
	)
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	step := func(event KeyEvent) (string, bool, error) {
		var eff effect
		st, eff = s.transition(st, event)

		if eff.rewrite {
			s.editor.set(s.display(st))
		}
		if eff.finish {
			s.requeue(pending...)
			if err := s.end(st); err != nil {
				return "", true, fmt.Errorf("failed to render prompt: %w", err)
			}
			return st.buffer, true, eff.err
		}
		if eff.render {
			if err := s.render(st); err != nil {
				return "", true, fmt.Errorf("failed to render prompt: %w", err)
			}
		}
		if eff.resolve != nil {
			var resolveCtx context.Context
			resolveCtx, cancel = context.WithCancel(ctx)
			go s.resolve(resolveCtx, eff.resolve, results)
		}
		return "", false, nil
	}

	for {
		if cancel == nil && len(pending) > 0 {
			event := pending[0]
			pending = pending[1:]
			if line, finished, err := step(event); finished {
				return line, err
			}
			continue
		}
		if cancel == nil && inputEnded {
			_ = s.end(st)
			if err := input.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("failed to read input: %w", err)
			}
			return "", ErrEOF
		}

		select {
		case <-ctx.Done():
			_ = s.end(st)
			return "", ctx.Err()

		case event := <-s.keys:
			if cancel != nil {
				if event.Kind != KeyInterrupt {
					// Typed ahead of the completion; replayed once it is applied.
					pending = append(pending, event)
					continue
				}
				// Ctrl+C discards the line, keys typed into it included.
				cancel()
				cancel = nil
				pending = nil
			}
			if line, finished, err := step(event); finished {
				return line, err
			}

		case res := <-results:
			cancel()
			cancel = nil
			if res.err != nil {
				_ = s.end(st)
				return "", &CompletionError{Args: res.args, Err: res.err}
			}
			st = s.applyCompletion(st, res.args, res.candidates)
			s.editor.set(s.display(st))
			if err := s.render(st); err != nil {
				return "", fmt.Errorf("failed to render prompt: %w", err)
			}

		case <-ended:
			ended = nil
			inputEnded = true
		}
	}
}

// requeue keeps keys the session read but did not use.
func (s *session) requeue(events ...KeyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unconsumed = append(s.unconsumed, events...)
}

// end draws the line one last time without completion options and moves
// below it.
func (s *session) end(st sessionState) error {
	st.completion = nil
	if err := s.render(st); err != nil {
		return err
	}
	return s.screen.done()
}

// transition applies one key event to st.
func (s *session) transition(st sessionState, event KeyEvent) (sessionState, effect) {
	switch event.Kind {
	case KeyUp, KeyDown:
		st.hasKeypress = true
		st.completion = nil
		if event.Kind == KeyUp {
			s.history.PreviousMatch(st.buffer)
		} else {
			s.history.NextMatch(st.buffer)
		}
		return st, effect{rewrite: true, render: true}

	case KeyTab:
		st.hasKeypress = true
		st = s.commitHistory(st)
		s.history.InputEdited()
		switch {
		case st.completion != nil && event.Shift:
			st.completion.SelectPrevious()
		case st.completion != nil:
			st.completion.SelectNext()
		case s.config.Completer != nil:
			// Drawn once the candidates are in.
			return st, effect{resolve: splitArgs(st.buffer)}
		}
		return st, effect{rewrite: true, render: true}

	case KeyEnter:
		st.hasKeypress = true
		st = s.commitHistory(st)
		if st.completion != nil {
			if _, ok := st.completion.Selection(); ok {
				st.buffer = st.completion.RenderCommand(st.buffer) + " "
			}
			st.completion = nil
		}
		return st, effect{finish: true}

	case KeyInterrupt:
		// The history entry survives the interrupt, the completion does not.
		st = s.commitHistory(st)
		st.completion = nil
		if st.hasKeypress {
			return st, effect{finish: true, err: ErrInterrupted}
		}
		return st, effect{finish: true, err: ErrInterruptedWithNoInput}

	default:
		st.hasKeypress = true
		st.completion = nil
		st = s.commitHistory(st)
		s.history.InputEdited()
		s.editor.apply(event.Data)
		st.buffer = s.editor.text()
		return st, effect{render: true}
	}
}

// applyCompletion installs the resolved candidates. A single candidate is
// filled in directly.
func (s *session) applyCompletion(st sessionState, args, candidates []string) sessionState {
	completion := PopulateCompletion(args, candidates)
	switch completion.PossibleCompletionCount() {
	case 0:
		st.completion = nil
	case 1:
		st.buffer = completion.RenderCommand(st.buffer) + " "
		st.completion = nil
	default:
		st.completion = completion
	}
	return st
}

func (s *session) resolve(ctx context.Context, args []string, results chan<- resolution) {
	candidates, err := s.config.Completer(ctx, slices.Clone(args))
	results <- resolution{args: args, candidates: candidates, err: err}
}

// commitHistory copies the selected history entry into the buffer.
func (s *session) commitHistory(st sessionState) sessionState {
	if entry, ok := s.history.Entry(); ok {
		st.buffer = entry
	}
	return st
}

// display returns the text shown after the prefix: the history entry if one is
// selected, otherwise the buffer, with the completion filled in.
func (s *session) display(st sessionState) string {
	text := st.buffer
	if entry, ok := s.history.Entry(); ok {
		text = entry
	}
	if st.completion != nil {
		text = st.completion.RenderCommand(text)
	}
	return text
}

// render draws the prompt line and, when a completion is active, its options
// below it. The cursor is then put back at the end of the prompt line; the
// next render first undoes that move so the renderer finds the cursor where it
// left it.
func (s *session) render(st sessionState) error {
	if s.adjust != nil {
		if err := s.screen.moveCursor(-s.adjust.columns, -s.adjust.rows); err != nil {
			return err
		}
		s.adjust = nil
	}

	colors := s.config.ColorScheme
	message := colors.Prefix.Paint(s.config.Prefix) + colors.Input.Paint(s.display(st))
	width := s.term.Width()

	if st.completion != nil && st.completion.PossibleCompletionCount() > 0 {
		options := st.completion.RenderOptions()
		separatorWidth := ansi.StringWidth(optionSeparator)
		perLine := max(1, (width+separatorWidth)/(ansi.StringWidth(options[0])+separatorWidth))

		var lines []string
		rows := 0
		for row := range slices.Chunk(options, perLine) {
			line := strings.Join(row, optionSeparator)
			lines = append(lines, line)
			rows += wrappedRows(line, width)
		}

		s.adjust = &cursorAdjustment{
			columns: endColumn(message, width) - endColumn(lines[len(lines)-1], width),
			rows:    -rows,
		}
		message += "\n" + strings.Join(lines, "\n")
	}

	if err := s.screen.render(message, width); err != nil {
		return err
	}
	if s.adjust != nil {
		return s.screen.moveCursor(s.adjust.columns, s.adjust.rows)
	}
	return nil
}
