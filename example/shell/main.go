// Package main provides a shell-like file explorer example using cmdshell.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/nao1215/cmdshell"
)

var errExit = errors.New("exit")

func main() {
	configPath := "cmdshell.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	options, err := cfg.Options()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Shell-like File Explorer Example")
	fmt.Println("================================")
	fmt.Println("Commands:")
	fmt.Println("  ls [path]    - List directory contents")
	fmt.Println("  cd [path]    - Change directory")
	fmt.Println("  cat [file]   - Show file contents")
	fmt.Println("  pwd          - Show current directory")
	fmt.Println("  exit         - Exit")
	fmt.Println()
	fmt.Println("Use Tab for command and file completion, Up/Down for history.")
	fmt.Println("Press Ctrl+C twice on an empty line to exit.")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	var (
		shell     *cmdshell.Shell
		mu        sync.Mutex
		cancelCmd context.CancelFunc = func() {} // Ctrl+C during a command cancels it
		files     = cmdshell.NewFileCompleter()
		commands  = cmdshell.NewCommandCompleter(map[string][]string{
			"ls": nil, "cd": nil, "cat": nil, "pwd": nil, "exit": nil,
		})
	)
	shell, err = cmdshell.New(cmdshell.Processor{
		Handler: func(ctx context.Context, args []string) error {
			cmdCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			mu.Lock()
			cancelCmd = cancel
			mu.Unlock()

			err := executeCommand(cmdCtx, shell, args)
			if errors.Is(err, errExit) {
				stop()
				return nil
			}
			return err
		},
		OnInterrupt: func() {
			mu.Lock()
			defer mu.Unlock()
			cancelCmd()
		},
		Completer: func(ctx context.Context, args []string) ([]string, error) {
			if len(args) <= 1 {
				return commands(ctx, args)
			}
			switch args[0] {
			case "ls", "cd", "cat":
				return files(ctx, args)
			}
			return nil, nil
		},
	}, options...)
	if err != nil {
		log.Fatal(err)
	}

	setDelimiter(shell)
	if err := shell.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
	fmt.Println("Goodbye!")
}

// setDelimiter shows the current directory in the delimiter.
func setDelimiter(shell *cmdshell.Shell) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "unknown"
	}
	shell.SetDelimiter(fmt.Sprintf("shell:%s> ", filepath.Base(cwd)))
}

func executeCommand(ctx context.Context, shell *cmdshell.Shell, args []string) error {
	cmd, args := args[0], args[1:]

	switch cmd {
	case "exit", "quit":
		return errExit

	case "pwd":
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		shell.Println(cwd)

	case "ls":
		path := "."
		if len(args) > 0 {
			path = args[0]
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		shell.Println(fmt.Sprintf("Contents of %s:", path))
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() {
				name += "/"
			}
			shell.Println("  " + name)
		}

	case "cd":
		if len(args) == 0 {
			return errors.New("cd requires a directory argument")
		}
		if err := os.Chdir(args[0]); err != nil {
			return err
		}
		setDelimiter(shell)

	case "cat":
		if len(args) == 0 {
			return errors.New("cat requires a file argument")
		}
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		// Limit output for large files
		if len(content) > 1000 {
			shell.Println(string(content[:1000]), "... (truncated)")
		} else {
			shell.Println(string(content))
		}

	default:
		// #nosec G204 - This is an example program that intentionally executes user input
		output, err := exec.CommandContext(ctx, cmd, args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("failed to execute %q: %w", cmd, err)
		}
		shell.Println(string(output))
	}
	return nil
}
