package cmdshell

import "strings"

// defaultMaxEntries is the number of commands kept when no cap is configured.
const defaultMaxEntries = 1000

// CommandHistory is the in-memory list of commands entered during a session,
// together with the state of an ongoing prefix search through it.
//
// Searching walks the list from the newest entry towards the oldest with
// PreviousMatch and back again with NextMatch. Entries the user edits while they
// are selected are excluded from the search until ResetSearch is called, the way
// zsh behaves when you change a recalled line.
//
// The zero value is an empty history ready to use. CommandHistory is not safe
// for concurrent use.
type CommandHistory struct {
	commands   []string
	excluded   map[int]struct{}
	search     int  // index of the selected command
	selected   bool // false when nothing is selected
	maxEntries int  // 0 for defaultMaxEntries
}

// NewCommandHistory creates a history seeded with the given commands, oldest first.
// The seed is searchable right away.
func NewCommandHistory(seed ...string) *CommandHistory {
	h := &CommandHistory{maxEntries: defaultMaxEntries}
	h.Load(seed)
	return h
}

// SetMaxEntries caps the number of stored commands. Values <= 0 restore the default.
// When the history already holds more commands than the cap, the oldest are dropped.
func (h *CommandHistory) SetMaxEntries(n int) {
	if n <= 0 {
		n = defaultMaxEntries
	}
	h.maxEntries = n
	h.trim()
}

// Load appends the given commands, oldest first. Empty strings are skipped.
// The search state is left untouched.
func (h *CommandHistory) Load(entries []string) {
	for _, entry := range entries {
		if entry == "" {
			continue
		}
		h.commands = append(h.commands, entry)
	}
	h.trim()
}

// AddEntry appends a command to the history without resetting the search.
func (h *CommandHistory) AddEntry(command string) {
	h.commands = append(h.commands, command)
	h.trim()
}

// Entries returns a copy of the stored commands, oldest first.
func (h *CommandHistory) Entries() []string {
	return append([]string{}, h.commands...)
}

// Len returns the number of stored commands.
func (h *CommandHistory) Len() int {
	return len(h.commands)
}

// Entry returns the currently selected command. The second value is false when
// nothing is selected or the selection has been edited.
func (h *CommandHistory) Entry() (string, bool) {
	if !h.selected || h.isExcluded(h.search) {
		return "", false
	}
	return h.commands[h.search], true
}

// ResetSearch clears the selection and re-enables every excluded entry. Call it
// each time a command is submitted or input is cancelled.
func (h *CommandHistory) ResetSearch() {
	clear(h.excluded)
	h.search, h.selected = 0, false
}

// InputEdited marks the selected entry as edited. The search position is kept,
// but the entry can not be selected again until ResetSearch.
func (h *CommandHistory) InputEdited() {
	if !h.selected {
		return
	}
	if h.excluded == nil {
		h.excluded = make(map[int]struct{})
	}
	h.excluded[h.search] = struct{}{}
}

// PreviousMatch selects the nearest older command starting with input.
// When nothing matches, the current selection is kept and false is returned.
func (h *CommandHistory) PreviousMatch(input string) (string, bool) {
	start := len(h.commands) - 1
	if h.selected {
		start = h.search - 1
	}
	for i := start; i >= 0; i-- {
		if h.matches(i, input) {
			h.search, h.selected = i, true
			return h.commands[i], true
		}
	}
	return "", false
}

// NextMatch selects the nearest newer command starting with input.
// Moving past the newest match leaves the history, clearing the selection so the
// live input shows again.
func (h *CommandHistory) NextMatch(input string) (string, bool) {
	if !h.selected || h.search >= len(h.commands)-1 {
		h.search, h.selected = 0, false
		return "", false
	}
	for i := h.search + 1; i < len(h.commands); i++ {
		if h.matches(i, input) {
			h.search = i
			return h.commands[i], true
		}
	}
	h.search, h.selected = 0, false
	return "", false
}

func (h *CommandHistory) matches(index int, input string) bool {
	return !h.isExcluded(index) && strings.HasPrefix(h.commands[index], input)
}

func (h *CommandHistory) isExcluded(index int) bool {
	_, ok := h.excluded[index]
	return ok
}

// trim drops the oldest commands above the cap and shifts the search state so
// it keeps referring to the same commands.
func (h *CommandHistory) trim() {
	if h.maxEntries <= 0 {
		h.maxEntries = defaultMaxEntries
	}
	drop := len(h.commands) - h.maxEntries
	if drop <= 0 {
		return
	}
	h.commands = append([]string{}, h.commands[drop:]...)

	if h.selected {
		h.search -= drop
		if h.search < 0 {
			h.search, h.selected = 0, false
		}
	}
	shifted := make(map[int]struct{}, len(h.excluded))
	for index := range h.excluded {
		if index-drop >= 0 {
			shifted[index-drop] = struct{}{}
		}
	}
	h.excluded = shifted
}
