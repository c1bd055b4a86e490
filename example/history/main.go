// Package main demonstrates history search in the cmdshell prompt.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nao1215/cmdshell"
)

func main() {
	fmt.Println("History Example")
	fmt.Println("Type the start of a command, then use Up/Down to search history")
	fmt.Println("Editing a recalled command skips it until you press Enter")
	fmt.Println("Type 'history' to see command history")
	fmt.Println("Type 'exit' or 'quit' to exit")
	fmt.Println()

	p := cmdshell.NewPrompt("history> ",
		cmdshell.WithHistorySeed([]string{
			"git status",
			"git commit -m 'wip'",
			"go test ./...",
			"git push",
		}),
		cmdshell.WithMaxHistory(100),
	)
	history := p.History()

	ctx := context.Background()
	for {
		result, err := p.Run(ctx)
		history.ResetSearch()
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

		switch result {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return
		case "history":
			fmt.Println("Command History:")
			for i, cmd := range history.Entries() {
				fmt.Printf("  %3d: %s\n", i+1, cmd)
			}
		default:
			history.AddEntry(result)
			fmt.Printf("Executed: %s\n", result)
		}
	}
}
