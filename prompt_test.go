package cmdshell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// newTestPrompt creates a prompt reading the given keys from a mock terminal.
func newTestPrompt(input string, options ...Option) (*Prompt, *mockTerminal, *bytes.Buffer) {
	mock := newMockTerminal(input)
	output := &bytes.Buffer{}
	options = append([]Option{WithTerminal(newTerminal(mock, output))}, options...)
	return NewPrompt("> ", options...), mock, output
}

func runPrompt(t *testing.T, p *Prompt) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Run(ctx)
}

func greetingCompleter() CompletionFunc {
	return NewStaticCompleter([]string{"hello", "help"})
}

func TestNewPromptDefaults(t *testing.T) {
	t.Parallel()

	p := NewPrompt("$ ")
	assert.Equal(t, "$ ", p.config.Prefix)
	assert.NotNil(t, p.History())
	assert.Equal(t, ThemeDefault, p.config.ColorScheme)
	assert.NotNil(t, p.config.Logger)
	assert.Nil(t, p.config.Completer)
	assert.Nil(t, p.config.Terminal)
}

func TestNewPromptOptions(t *testing.T) {
	t.Parallel()

	t.Run("history seed", func(t *testing.T) {
		t.Parallel()

		p := NewPrompt("$ ", WithHistorySeed([]string{"a", "", "b"}))
		assert.Equal(t, []string{"a", "b"}, p.History().Entries())
	})

	t.Run("shared history", func(t *testing.T) {
		t.Parallel()

		history := NewCommandHistory("first")
		p := NewPrompt("$ ", WithHistory(history), WithHistorySeed([]string{"second"}))
		assert.Same(t, history, p.History())
		assert.Equal(t, []string{"first", "second"}, history.Entries())
	})

	t.Run("max history", func(t *testing.T) {
		t.Parallel()

		p := NewPrompt("$ ", WithMaxHistory(2), WithHistorySeed([]string{"a", "b", "c"}))
		assert.Equal(t, []string{"b", "c"}, p.History().Entries())
	})

	t.Run("delimiter is overridden by the prefix", func(t *testing.T) {
		t.Parallel()

		p := NewPrompt("$ ", WithDelimiter("# "))
		assert.Equal(t, "$ ", p.config.Prefix)
	})

	t.Run("color scheme", func(t *testing.T) {
		t.Parallel()

		p := NewPrompt("$ ", WithColorScheme(ThemeLight))
		assert.Equal(t, ThemeLight, p.config.ColorScheme)
	})
}

func TestPromptRun(t *testing.T) {
	t.Parallel()

	history := []string{"git status", "go test", "git push"}

	tests := []struct {
		name    string
		input   string
		options []Option
		want    string
		wantErr error
	}{
		{name: "simple line", input: "hello\r", want: "hello"},
		{name: "empty line", input: "\r", want: ""},
		{name: "backspace", input: "helo\x7flo\r", want: "hello"},
		{name: "ctrl+u", input: "nope\x15yes\r", want: "yes"},
		{name: "unbound escape sequence", input: "ab\x1b[D\r", want: "ab"},
		{name: "interrupt before any key", input: "\x03", wantErr: ErrInterruptedWithNoInput},
		{name: "interrupt after typing", input: "ab\x03", wantErr: ErrInterrupted},
		{name: "interrupt after arrow key", input: "\x1b[A\x03", wantErr: ErrInterrupted},
		{name: "interrupt after emptied line", input: "a\x7f\x03", wantErr: ErrInterrupted},
		{name: "end of input", input: "abc", wantErr: ErrEOF},
		{
			name:    "history previous",
			input:   "\x1b[A\r",
			options: []Option{WithHistorySeed(history)},
			want:    "git push",
		},
		{
			name:    "history prefix search",
			input:   "git\x1b[A\x1b[A\r",
			options: []Option{WithHistorySeed(history)},
			want:    "git status",
		},
		{
			name:    "history back to live input",
			input:   "go\x1b[A\x1b[B\r",
			options: []Option{WithHistorySeed(history)},
			want:    "go",
		},
		{
			name:    "history no match keeps input",
			input:   "zzz\x1b[A\r",
			options: []Option{WithHistorySeed(history)},
			want:    "zzz",
		},
		{
			name:    "editing a recalled entry",
			input:   "\x1b[A\x7f\x7f\r",
			options: []Option{WithHistorySeed(history)},
			want:    "git pu",
		},
		{
			name:    "edited entry is skipped",
			input:   "\x1b[Ax\x1b[A\r",
			options: []Option{WithHistorySeed(history)},
			want:    "git pushx",
		},
		{
			name:    "completion cycles and submits with trailing space",
			input:   "he\t\t\r",
			options: []Option{WithCompleter(greetingCompleter())},
			want:    "hello ",
		},
		{
			name:    "completion cycles forward",
			input:   "he\t\t\t\r",
			options: []Option{WithCompleter(greetingCompleter())},
			want:    "help ",
		},
		{
			name:    "shift+tab cycles backward",
			input:   "he\t\x1b[Z\r",
			options: []Option{WithCompleter(greetingCompleter())},
			want:    "help ",
		},
		{
			name:    "single candidate is filled in",
			input:   "hell\t\r",
			options: []Option{WithCompleter(greetingCompleter())},
			want:    "hello ",
		},
		{
			name:    "enter without a selection keeps the input",
			input:   "he\t\r",
			options: []Option{WithCompleter(greetingCompleter())},
			want:    "he",
		},
		{
			name:    "no candidates",
			input:   "x\t\r",
			options: []Option{WithCompleter(NewStaticCompleter(nil))},
			want:    "x",
		},
		{
			name:    "unrelated argument gets every candidate",
			input:   "say \t\t\r",
			options: []Option{WithCompleter(greetingCompleter())},
			want:    "say hello ",
		},
		{
			name:    "typing after a completion edits the completed text",
			input:   "he\t\tx\r",
			options: []Option{WithCompleter(greetingCompleter())},
			want:    "hellox",
		},
		{
			name:    "tab without completer",
			input:   "he\t\r",
			want:    "he",
		},
		{
			name:    "completion of a recalled entry",
			input:   "\x1b[A\t\r",
			options: []Option{WithHistorySeed([]string{"say he"}), WithCompleter(greetingCompleter())},
			want:    "say he",
		},
		{
			name:    "arrow key discards the completion",
			input:   "he\t\t\x1b[A\r",
			options: []Option{WithCompleter(greetingCompleter())},
			want:    "he",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, mock, _ := newTestPrompt(tt.input, tt.options...)
			got, err := runPrompt(t, p)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.False(t, mock.isRaw(), "raw mode must be restored")
			assert.False(t, mock.isClosed(), "a shared terminal must stay open")
		})
	}
}

func TestPromptCompletionArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  []string
	}{
		{input: "\t\r", want: []string{""}},
		{input: "git st\t\r", want: []string{"git", "st"}},
		{input: "git \t\r", want: []string{"git", ""}},
		{input: " ls\t\r", want: []string{"", "ls"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			calls := make(chan []string, 1)
			completer := func(_ context.Context, args []string) ([]string, error) {
				calls <- args
				return nil, nil
			}
			p, _, _ := newTestPrompt(tt.input, WithCompleter(completer))
			_, err := runPrompt(t, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, <-calls)
		})
	}
}

func TestPromptCompletionError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("backend down")
	completer := func(_ context.Context, _ []string) ([]string, error) {
		return nil, wantErr
	}
	p, _, _ := newTestPrompt("he\t", WithCompleter(completer))

	_, err := runPrompt(t, p)
	require.ErrorIs(t, err, wantErr)

	var completionErr *CompletionError
	require.ErrorAs(t, err, &completionErr)
	assert.Equal(t, []string{"he"}, completionErr.Args)
	assert.Contains(t, err.Error(), "failed to resolve completions")
}

func TestPromptQueuesKeysWhileResolving(t *testing.T) {
	t.Parallel()

	completer := func(ctx context.Context, _ []string) ([]string, error) {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []string{"hello"}, nil
	}
	p, _, _ := newTestPrompt("hel\tx\r", WithCompleter(completer))

	got, err := runPrompt(t, p)
	require.NoError(t, err)
	assert.Equal(t, "hello x", got, "keys typed during the resolution apply after it")
}

func TestPromptInterruptCancelsResolution(t *testing.T) {
	t.Parallel()

	canceled := make(chan struct{})
	completer := func(ctx context.Context, _ []string) ([]string, error) {
		<-ctx.Done()
		close(canceled)
		return nil, ctx.Err()
	}
	p, _, _ := newTestPrompt("he\t\x03", WithCompleter(completer))

	_, err := runPrompt(t, p)
	require.ErrorIs(t, err, ErrInterrupted)

	select {
	case <-canceled:
	case <-time.After(2 * time.Second):
		t.Fatal("the resolution was not canceled")
	}
}

func TestPromptContextCancel(t *testing.T) {
	t.Parallel()

	mock := newScriptedTerminal()
	p := NewPrompt("> ", WithTerminal(newTerminal(mock, &bytes.Buffer{})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.onReady = cancel

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, mock.isRaw())
}

func TestPromptSharedHistoryAcrossSessions(t *testing.T) {
	t.Parallel()

	mock := newScriptedTerminal()
	history := NewCommandHistory()
	p := NewPrompt("> ", WithTerminal(newTerminal(mock, &bytes.Buffer{})), WithHistory(history))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	keys := []string{"first\r", "\x1b[A\r"}
	var lines []string
	for _, k := range keys {
		p.onReady = func() { mock.send(k) }
		line, err := p.Run(ctx)
		require.NoError(t, err)
		lines = append(lines, line)

		history.ResetSearch()
		history.AddEntry(line)
	}
	assert.Equal(t, []string{"first", "first"}, lines)
}

func TestPromptRender(t *testing.T) {
	t.Parallel()

	t.Run("prefix and input are drawn", func(t *testing.T) {
		t.Parallel()

		p, _, output := newTestPrompt("hi\r")
		p.SetPrefix("$ ")
		_, err := runPrompt(t, p)
		require.NoError(t, err)

		plain := ansi.Strip(output.String())
		assert.Contains(t, plain, "$ hi")
		assert.True(t, strings.HasSuffix(output.String(), "\r\n"), "the session ends on a new line")
	})

	t.Run("options are drawn below and the cursor moved back", func(t *testing.T) {
		t.Parallel()

		p, _, output := newTestPrompt("he\t\t\r", WithCompleter(greetingCompleter()))
		_, err := runPrompt(t, p)
		require.NoError(t, err)

		out := output.String()
		assert.Contains(t, ansi.Strip(out), "hello  help ")
		// "> he" is 4 columns wide, the options row 12
		assert.Contains(t, out, "\x1b[8D\x1b[A")
		assert.Contains(t, out, "\x1b[8C\x1b[B", "the previous adjustment is undone before redrawing")
		// "> hello" is 7 columns wide
		assert.Contains(t, out, "\x1b[5D\x1b[A")
		assert.Contains(t, out, inverseOn+"hello"+inverseOff)
	})

	t.Run("options wrap on narrow terminals", func(t *testing.T) {
		t.Parallel()

		mock := newMockTerminal("he\t\r")
		mock.terminalSize = [2]int{10, 24}
		output := &bytes.Buffer{}
		p := NewPrompt("> ",
			WithTerminal(newTerminal(mock, output)),
			WithCompleter(greetingCompleter()),
		)
		_, err := runPrompt(t, p)
		require.NoError(t, err)

		out := ansi.Strip(output.String())
		assert.Contains(t, out, "hello\r\nhelp ")
		// Two option rows; "> he" is 4 wide and the last row 5
		assert.Contains(t, output.String(), "\x1b[D\x1b[2A")
	})
}

func TestPromptRenderWrappedLine(t *testing.T) {
	t.Parallel()

	mock := newMockTerminal("abcdefghijk\r")
	mock.terminalSize = [2]int{10, 24}
	output := &bytes.Buffer{}
	p := NewPrompt("> ", WithTerminal(newTerminal(mock, output)))

	got, err := runPrompt(t, p)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijk", got)

	// "> abcdefghi" is the first line wider than 10 columns; the redraws for
	// "j", "k" and Enter start on the row it wrapped from.
	assert.Equal(t, 3, strings.Count(output.String(), "\x1b[A\r\x1b[0J"))
}

func TestPromptEndClearsOptions(t *testing.T) {
	t.Parallel()

	p, _, output := newTestPrompt("he\t", WithCompleter(greetingCompleter()))
	_, err := runPrompt(t, p)
	require.ErrorIs(t, err, ErrEOF)

	out := output.String()
	last := strings.LastIndex(out, "\x1b[8D\x1b[A")
	require.NotEqual(t, -1, last, "the options were never drawn")
	assert.Contains(t, out[last:], "\x1b[8C\x1b[B", "the cursor goes back below the options before clearing them")
	assert.True(t, strings.HasSuffix(ansi.Strip(out), "> he\r\n"), "the options are cleared, got %q", out)
}

func TestPromptKeepsKeysForNextSession(t *testing.T) {
	t.Parallel()

	slowCompleter := func(ctx context.Context, _ []string) ([]string, error) {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []string{"hello"}, nil
	}

	tests := []struct {
		name    string
		input   string
		options []Option
		want    []string
	}{
		{
			name:  "pasted lines",
			input: "ls\rpwd\r",
			want:  []string{"ls", "pwd"},
		},
		{
			name:  "escape sequences",
			input: "a\r\x1b[A\x1b[B\r",
			want:  []string{"a", ""},
		},
		{
			name:    "typed while resolving",
			input:   "hel\t\rpwd\r",
			options: []Option{WithCompleter(slowCompleter)},
			want:    []string{"hello ", "pwd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			for range 20 {
				term := newTerminal(newMockTerminal(tt.input), io.Discard)
				p := NewPrompt("> ", append([]Option{WithTerminal(term)}, tt.options...)...)

				var lines []string
				for range len(tt.want) {
					line, err := runPrompt(t, p)
					require.NoError(t, err)
					lines = append(lines, line)
				}
				assert.Equal(t, tt.want, lines)

				_, err := runPrompt(t, p)
				require.ErrorIs(t, err, ErrEOF)
			}
		})
	}
}

func TestPromptZeroValueHistory(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPrompt("\x1b[A\x1b[Bx\r", WithHistory(&CommandHistory{}))
	got, err := runPrompt(t, p)
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestPromptLogging(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	p, _, _ := newTestPrompt("ok\r", WithLogger(zap.New(core)))

	_, err := runPrompt(t, p)
	require.NoError(t, err)

	entries := logs.FilterMessage("prompt session submitted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ok", entries[0].ContextMap()["line"])
}

func TestCompletionErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := &CompletionError{Args: []string{"git", ""}, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, `failed to resolve completions for ["git" ""]: boom`, err.Error())
}
