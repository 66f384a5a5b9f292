// Package prompt asks the operator to make decisions during an import.
//
// Prompts have no timeout: an unanswered prompt blocks the import until the
// operator answers or the context is cancelled.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Prompter is the operator decision capability. A cancelled prompt reports
// ok=false (or false for Confirm) and must be treated as a skip, never as an
// error. Errors are reserved for broken input streams.
type Prompter interface {
	// Select returns the index of the chosen entry of choices.
	Select(ctx context.Context, message string, choices []string) (int, bool, error)
	Confirm(ctx context.Context, message string) (bool, error)
}

// Terminal prompts on a line-oriented text stream, usually stdin/stdout.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a prompter reading answers from in.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) readLine(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s, err := t.in.ReadString('\n')
	if err == io.EOF {
		// Closed input cancels the prompt.
		return strings.TrimSpace(s), s != "", nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(s), true, nil
}

// Select prints the numbered choices and reads a 1-based answer. An empty
// answer or "q" cancels.
func (t *Terminal) Select(ctx context.Context, message string, choices []string) (int, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, message)
	for i, c := range choices {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, c)
	}

	for {
		fmt.Fprint(t.out, "> ")
		answer, ok, err := t.readLine(ctx)
		if err != nil || !ok {
			return 0, false, err
		}
		if answer == "" || strings.EqualFold(answer, "q") {
			return 0, false, nil
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(choices) {
			return n - 1, true, nil
		}
		fmt.Fprintf(t.out, "Enter a number between 1 and %d, or q to skip\n", len(choices))
	}
}

// Confirm asks a yes/no question. Anything other than y or yes is no.
func (t *Terminal) Confirm(ctx context.Context, message string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "%s [y/N] ", message)
	answer, ok, err := t.readLine(ctx)
	if err != nil || !ok {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Always answers every prompt without asking. It backs non-interactive runs.
type Always struct {
	// Choice is the index returned by Select; a negative value cancels.
	Choice int
	Yes    bool
}

func (a Always) Select(ctx context.Context, message string, choices []string) (int, bool, error) {
	if a.Choice < 0 || a.Choice >= len(choices) {
		return 0, false, nil
	}
	return a.Choice, true, nil
}

func (a Always) Confirm(ctx context.Context, message string) (bool, error) {
	return a.Yes, nil
}
