// Package main demonstrates basic usage of the cmdshell prompt.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nao1215/cmdshell"
)

func main() {
	// One prompt, reused for every line so the history is shared
	p := cmdshell.NewPrompt(">>> ")

	fmt.Println("Basic Prompt Example")
	fmt.Println("Type 'exit' or 'quit' to exit")
	fmt.Println("Press Ctrl+C on an empty line to exit")
	fmt.Println()

	ctx := context.Background()
	for {
		result, err := p.Run(ctx)
		switch {
		case errors.Is(err, cmdshell.ErrEOF), errors.Is(err, cmdshell.ErrInterruptedWithNoInput):
			fmt.Println("Goodbye!")
			return
		case errors.Is(err, cmdshell.ErrInterrupted):
			p.History().ResetSearch()
			continue
		case err != nil:
			log.Fatal(err)
		}

		p.History().ResetSearch()
		if result == "exit" || result == "quit" {
			fmt.Println("Goodbye!")
			return
		}
		if result != "" {
			p.History().AddEntry(result)
		}

		// Echo the input back
		fmt.Printf("You typed: %s\n", result)
	}
}
