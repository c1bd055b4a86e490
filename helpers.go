package cmdshell

import (
	"cmp"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// NewStaticCompleter creates a completer that offers the same candidates for
// every argument. The prompt narrows them down to the ones matching what has
// been typed.
func NewStaticCompleter(candidates []string) CompletionFunc {
	candidates = slices.Clone(candidates)
	return func(_ context.Context, _ []string) ([]string, error) {
		return slices.Clone(candidates), nil
	}
}

// NewCommandCompleter creates a completer for a fixed command set. The first
// argument completes to a command name, later arguments to the words listed for
// that command.
//
// Example:
//
//	completer := cmdshell.NewCommandCompleter(map[string][]string{
//		"git":  {"status", "commit", "push"},
//		"exit": nil,
//	})
func NewCommandCompleter(commands map[string][]string) CompletionFunc {
	names := make([]string, 0, len(commands))
	words := make(map[string][]string, len(commands))
	for name, args := range commands {
		names = append(names, name)
		words[name] = slices.Clone(args)
	}
	slices.Sort(names)

	return func(_ context.Context, args []string) ([]string, error) {
		if len(args) <= 1 {
			return slices.Clone(names), nil
		}
		return slices.Clone(words[args[0]]), nil
	}
}

// NewFuzzyCompleter creates a completer that offers the candidates loosely
// matching the argument being typed, best match first. When some of them start
// with the argument the prompt keeps only those; otherwise every loose match is
// offered.
func NewFuzzyCompleter(candidates []string, ignoreCase bool) CompletionFunc {
	candidates = slices.Clone(candidates)
	return func(_ context.Context, args []string) ([]string, error) {
		last := ""
		if len(args) > 0 {
			last = args[len(args)-1]
		}

		type scored struct {
			text  string
			score int
		}
		matches := make([]scored, 0, len(candidates))
		for _, candidate := range candidates {
			if score := calculateFuzzyScore(last, candidate, ignoreCase); score > 0 {
				matches = append(matches, scored{text: candidate, score: score})
			}
		}
		slices.SortStableFunc(matches, func(a, b scored) int {
			return cmp.Compare(b.score, a.score)
		})

		result := make([]string, len(matches))
		for i, m := range matches {
			result[i] = m.text
		}
		return result, nil
	}
}

// calculateFuzzyScore calculates a fuzzy matching score between input and candidate.
// Returns 0 if no match, higher scores for better matches.
func calculateFuzzyScore(input, candidate string, ignoreCase bool) int {
	if input == "" {
		return 1
	}
	if candidate == "" {
		return 0
	}

	if ignoreCase {
		input = strings.ToLower(input)
		candidate = strings.ToLower(candidate)
	}

	switch {
	case input == candidate:
		return 1000
	case strings.HasPrefix(candidate, input):
		return 800 + len(input)*10
	case strings.Contains(candidate, input):
		return 500 + len(input)*5
	}

	// Every input rune has to appear in order.
	rest := []rune(candidate)
	score := 0
	for _, r := range input {
		i := slices.Index(rest, r)
		if i < 0 {
			return 0
		}
		score += 10
		rest = rest[i+1:]
	}
	return score
}

// NewFileCompleter creates a completer that completes the argument being typed
// as a file or directory path. Directories get a trailing slash.
func NewFileCompleter() CompletionFunc {
	return func(ctx context.Context, args []string) ([]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		last := ""
		if len(args) > 0 {
			last = args[len(args)-1]
		}
		return completeFilePath(last), nil
	}
}

// completeFilePath lists the entries of the directory path points into. The
// returned paths keep the directory part exactly as typed so they extend path.
func completeFilePath(path string) []string {
	dir, base := "", path
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		dir, base = path[:i+1], path[i+1:]
	}

	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	entries, err := os.ReadDir(filepath.Clean(readDir))
	if err != nil {
		return nil
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()

		// Skip hidden files unless explicitly requested
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if !strings.HasPrefix(name, base) {
			continue
		}

		candidate := dir + name
		if entry.IsDir() {
			candidate += "/"
		}
		paths = append(paths, candidate)
	}
	return paths
}
