// Package cmdshell provides an interactive command shell for Go programs.
//
// A Shell prompts for one line at a time, splits it on whitespace and hands the
// arguments to your handler. The prompt searches the command history with the
// arrow keys and completes the argument being typed with Tab.
//
// Key Features:
//
//   - History search by prefix, skipping entries you have edited
//   - Tab completion resolved by your own function, cycled with Tab / Shift+Tab
//   - Ctrl+C handling: twice on an empty prompt exits, during a command it is
//     forwarded to the processor
//   - Context support for cancellation
//   - Cross-platform terminal handling (Windows, macOS, Linux)
//
// Quick Start:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/nao1215/cmdshell"
//	)
//
//	func main() {
//		var shell *cmdshell.Shell
//		shell, err := cmdshell.New(cmdshell.Processor{
//			Handler: func(ctx context.Context, args []string) error {
//				shell.Println("you typed", args)
//				return nil
//			},
//			OnInterrupt: func() {},
//			Completer:   cmdshell.NewStaticCompleter([]string{"help", "hello", "exit"}),
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := shell.Run(context.Background()); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// Single Prompts:
//
// A Prompt reads one line without the shell loop:
//
//	p := cmdshell.NewPrompt("name: ")
//	line, err := p.Run(ctx)
//	if errors.Is(err, cmdshell.ErrInterrupted) {
//		return
//	}
//
// Key Bindings:
//
//   - Enter: Submit input, filling in the selected completion
//   - Ctrl+C: Cancel (ErrInterrupted, or ErrInterruptedWithNoInput before any other key)
//   - Up / Down: Older / newer history entry starting with the typed text
//   - Tab / Shift+Tab: Complete, then cycle through the options
//   - Backspace: Delete character backwards
//   - Ctrl+U: Delete entire line
//   - Ctrl+W: Delete word backwards
//
// Editing a recalled history entry turns it into new input: the entry is skipped
// by further searches until the line is submitted or cancelled.
//
// Completion:
//
// A CompletionFunc receives the input split into arguments, the last one being
// the argument under the cursor (empty after a space), and returns candidates
// for it. Candidates starting with the argument are offered; if there are none,
// all candidates are. A single candidate is filled in right away.
//
// Thread Safety:
//
// Prompt and Shell instances are not thread-safe. Run them from one goroutine
// and cancel them through the context.
package cmdshell
