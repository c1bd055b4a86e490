// Package main demonstrates context-aware Tab completion.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nao1215/cmdshell"
)

// itemCompleter completes commands first, then the items they operate on.
func itemCompleter() cmdshell.CompletionFunc {
	commands := cmdshell.NewCommandCompleter(map[string][]string{
		"help":   nil,
		"list":   nil,
		"create": {"project", "file", "folder"},
		"delete": {"item1", "item2", "item3"},
		"update": {"item1", "item2", "item3"},
		"status": nil,
		"exit":   nil,
	})
	// Loose matches for the command name, e.g. "crt" offers "create".
	fuzzy := cmdshell.NewFuzzyCompleter([]string{
		"help", "list", "create", "delete", "update", "status", "exit",
	}, true)

	return func(ctx context.Context, args []string) ([]string, error) {
		if len(args) <= 1 {
			return fuzzy(ctx, args)
		}
		return commands(ctx, args)
	}
}

func main() {
	fmt.Println("Simple Autocomplete Example")
	fmt.Println("==========================")
	fmt.Println("Press Tab to see suggestions, Tab / Shift+Tab to cycle")
	fmt.Println("Type 'help' to see available commands")
	fmt.Println("Type 'exit' to quit")
	fmt.Println()

	p := cmdshell.NewPrompt("app> ",
		cmdshell.WithCompleter(itemCompleter()),
		cmdshell.WithColorScheme(cmdshell.ThemeDark),
	)

	ctx := context.Background()
	for {
		result, err := p.Run(ctx)
		p.History().ResetSearch()
		if err != nil {
			if errors.Is(err, cmdshell.ErrEOF) || errors.Is(err, cmdshell.ErrInterruptedWithNoInput) {
				fmt.Println("Goodbye!")
				break
			}
			log.Printf("Error: %v\n", err)
			continue
		}

		result = strings.TrimSpace(result)
		if result == "" {
			continue
		}
		p.History().AddEntry(result)

		// Handle commands
		args := strings.Fields(result)
		switch args[0] {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return
		case "help":
			fmt.Println("Available commands:")
			fmt.Println("  help    - Show this help")
			fmt.Println("  list    - List items")
			fmt.Println("  create  - Create new item")
			fmt.Println("  delete  - Delete item")
			fmt.Println("  update  - Update item")
			fmt.Println("  status  - Show status")
			fmt.Println("  exit    - Exit program")
		case "status":
			fmt.Println("Status: Running")
		case "list":
			fmt.Println("Items: item1, item2, item3")
		default:
			fmt.Printf("Executed: %s\n", result)
		}
	}
}
