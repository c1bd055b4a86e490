package cmdshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrNoHandler is returned by New when the processor has no command handler.
	ErrNoHandler = errors.New("processor has no command handler")
	// ErrNoInterruptHandler is returned by New when the processor has no interrupt handler.
	ErrNoInterruptHandler = errors.New("processor has no interrupt handler")
)

const (
	defaultDelimiter = "> "
	exitHint         = "Press Ctrl-C again to exit"
)

// Processor is what a Shell runs commands with.
type Processor struct {
	// Handler runs one command, split on whitespace. Required.
	Handler func(ctx context.Context, args []string) error
	// OnInterrupt is called for each Ctrl+C pressed while no prompt is shown,
	// i.e. while Handler is running. Required.
	OnInterrupt func()
	// Completer resolves Tab completions. Optional; overrides WithCompleter.
	Completer CompletionFunc
}

// Shell prompts for commands in a loop and hands them to a Processor.
//
// Ctrl+C on an empty prompt prints a hint; pressing it again on the next empty
// prompt makes Run return. Ctrl+C after typing just starts a fresh prompt.
type Shell struct {
	processor Processor
	prompt    *Prompt
	logger    *zap.Logger

	term        *Terminal
	between     *KeyInput // intercepts Ctrl+C while a command runs
	interrupted bool      // the last prompt was interrupted with no input

	mu        sync.Mutex
	typeahead []KeyEvent // keys typed while a command runs, for the next prompt

	// onReady is passed on to each prompt. Used by tests.
	onReady func()
}

// New creates a shell for the processor.
//
// Example:
//
//	shell, err := cmdshell.New(cmdshell.Processor{
//		Handler: func(ctx context.Context, args []string) error {
//			fmt.Println(args)
//			return nil
//		},
//		OnInterrupt: func() {},
//	}, cmdshell.WithDelimiter("$ "))
func New(processor Processor, options ...Option) (*Shell, error) {
	if processor.Handler == nil {
		return nil, ErrNoHandler
	}
	if processor.OnInterrupt == nil {
		return nil, ErrNoInterruptHandler
	}

	config := Config{Prefix: defaultDelimiter}
	for _, option := range options {
		option(&config)
	}
	if processor.Completer != nil {
		config.Completer = processor.Completer
	}

	prompt := newPromptFromConfig(config)
	return &Shell{
		processor: processor,
		prompt:    prompt,
		logger:    prompt.config.Logger,
		term:      prompt.config.Terminal,
	}, nil
}

// SetDelimiter sets the text in front of the input, starting with the next prompt.
func (s *Shell) SetDelimiter(delimiter string) *Shell {
	s.prompt.SetPrefix(delimiter)
	return s
}

// Delimiter returns the text in front of the input.
func (s *Shell) Delimiter() string {
	return s.prompt.config.Prefix
}

// History returns the command history of the shell.
func (s *Shell) History() *CommandHistory {
	return s.prompt.History()
}

// Run prompts for commands until Ctrl+C is pressed twice on an empty prompt or
// the terminal input ends, in which case it returns nil. It returns ctx.Err()
// once ctx is done.
//
// A failing handler or completion resolver is logged and the loop goes on.
func (s *Shell) Run(ctx context.Context) error {
	if s.term == nil {
		t, err := openTerminal()
		if err != nil {
			return err
		}
		s.term = t
		defer func() {
			if err := t.Close(); err != nil {
				s.logger.Warn("failed to close terminal", zap.Error(err))
			}
			s.term = nil
			s.prompt.config.Terminal = nil
		}()
	}
	s.prompt.config.Terminal = s.term
	defer s.releaseInput()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.interrupted {
			s.Println(exitHint)
		}

		// The prompt takes the keys while it is shown.
		s.releaseInput()
		s.prompt.onReady = s.onReady
		line, err := s.prompt.Run(ctx)

		if err := s.interceptInput(); err != nil {
			return err
		}
		s.History().ResetSearch()

		var completionErr *CompletionError
		switch {
		case errors.Is(err, ErrInterruptedWithNoInput):
			if s.interrupted {
				s.logger.Debug("exiting after repeated interrupt")
				return nil
			}
			s.interrupted = true
			continue
		case errors.Is(err, ErrInterrupted):
			s.interrupted = false
			continue
		case errors.Is(err, ErrEOF):
			s.logger.Debug("input ended")
			return nil
		case errors.As(err, &completionErr):
			s.logger.Error("completion failed",
				zap.Strings("args", completionErr.Args),
				zap.Error(completionErr.Err))
			s.interrupted = false
			continue
		case err != nil:
			return err
		}

		s.interrupted = false
		command := strings.TrimSpace(line)
		if command == "" {
			continue
		}
		s.History().AddEntry(command)

		if err := s.processor.Handler(ctx, strings.Fields(command)); err != nil {
			s.logger.Error("command failed", zap.String("command", command), zap.Error(err))
		}
	}
}

// Println writes a line to the shell's terminal, formatted like fmt.Println.
// Line breaks are written as "\r\n" so they stay aligned while the terminal is
// in raw mode.
func (s *Shell) Println(a ...any) {
	var out io.Writer = os.Stdout
	if s.term != nil {
		out = s.term.Output()
	}
	line := strings.ReplaceAll(fmt.Sprintln(a...), "\n", "\r\n")
	if _, err := io.WriteString(out, line); err != nil {
		s.logger.Warn("failed to write output", zap.Error(err))
	}
}

// interceptInput registers the key input that forwards Ctrl+C to the processor
// between prompts. Other keys are kept for the next prompt.
func (s *Shell) interceptInput() error {
	keep := func(event KeyEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.typeahead = append(s.typeahead, event)
	}
	handlers := map[KeyKind]func(KeyEvent){
		KeyInterrupt: func(KeyEvent) { s.processor.OnInterrupt() },
	}
	for _, kind := range []KeyKind{KeyUp, KeyDown, KeyTab, KeyEnter, KeyData} {
		handlers[kind] = keep
	}

	input, err := registerInput(s.term, handlers)
	if err != nil {
		return fmt.Errorf("failed to register key input: %w", err)
	}
	s.between = input
	return nil
}

func (s *Shell) releaseInput() {
	if s.between == nil {
		return
	}
	if err := s.between.Deregister(); err != nil {
		s.logger.Warn("failed to release key input", zap.Error(err))
	}
	s.between = nil

	s.mu.Lock()
	typeahead := s.typeahead
	s.typeahead = nil
	s.mu.Unlock()
	s.term.unread(keySequence(typeahead))
}
