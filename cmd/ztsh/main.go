// ztsh is the interactive shell for the zerotable daemon.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/zerotable/zerotable/cmd/ztsh/shell"
)

const prompt = "zt> "

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8617", "daemon base URL")
	flag.Parse()

	fmt.Printf("zerotable shell\n")
	fmt.Printf("Connecting to %s...\n", *serverURL)

	sh := shell.NewShell(*serverURL)
	if err := sh.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Connected. Type '.help' for commands.\n\n")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".ztsh_history")
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				continue
			}
			fmt.Println()
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		result := sh.Execute(input)
		if result.IsExit() {
			return
		}
		result.Print(os.Stdout)
		fmt.Println()
	}
}
