package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// errNoDirectory is returned when input ends before a directory was given
var errNoDirectory = errors.New("no directory given")

// isTerminal reports whether v is an interactive terminal
func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// promptDirectory reads lines from in until one names an existing
// directory. The prompt text is written only when interactive. EOF and
// cancellation end the prompt with an error.
func promptDirectory(ctx context.Context, in io.Reader, out io.Writer, interactive bool) (string, error) {
	lines := make(chan string)
	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		done <- scanner.Err()
	}()

	for {
		if interactive {
			fmt.Fprint(out, "Please enter the root directory to scan: ")
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nOperation cancelled by user.")
			return "", ctx.Err()
		case err := <-done:
			if err != nil {
				return "", fmt.Errorf("failed to read directory: %w", err)
			}
			return "", errNoDirectory
		case line := <-lines:
			dir := strings.TrimSpace(line)
			if dir == "" {
				continue
			}
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				return dir, nil
			}
			fmt.Fprintf(out, "Error: The path '%s' is not a valid directory. Please try again.\n", dir)
		}
	}
}
