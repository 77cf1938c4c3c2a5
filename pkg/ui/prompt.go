package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"igosint/pkg/session"
)

// Prompter reads answers to prompts. Scripted answers passed on the
// command line are only consumed by AskScripted, in order; every other
// prompt reads from in.
type Prompter struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	extras []string
	fd     int
}

// NewPrompter creates a prompter over in and out. fd is the terminal file
// descriptor used for hidden input, or -1.
func NewPrompter(in io.Reader, out io.Writer, extras []string) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &Prompter{
		in:     bufio.NewReader(in),
		out:    out,
		extras: append([]string(nil), extras...),
		fd:     fd,
	}
}

// Pending returns the number of scripted answers left
func (p *Prompter) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.extras)
}

func (p *Prompter) next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.extras) == 0 {
		return "", false
	}
	v := p.extras[0]
	p.extras = p.extras[1:]
	return v, true
}

// Ask prints prompt and returns the trimmed answer read from the input.
// It returns session.ErrNoInput once input is exhausted.
func (p *Prompter) Ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return p.ReadLine()
}

// AskScripted answers prompt with the next scripted answer, falling back
// to Ask when none is left
func (p *Prompter) AskScripted(prompt string) (string, error) {
	v, ok := p.next()
	if !ok {
		return p.Ask(prompt)
	}
	fmt.Fprint(p.out, prompt)
	fmt.Fprintln(p.out, v)
	return strings.TrimSpace(v), nil
}

// ReadLine reads one line from the input without a prompt
func (p *Prompter) ReadLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", session.ErrNoInput
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Secret asks without echoing when the input is a terminal
func (p *Prompter) Secret(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if p.fd >= 0 && term.IsTerminal(p.fd) {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(b), nil
	}
	return p.ReadLine()
}

// Confirm asks a yes/no question; anything but y or yes is no
func (p *Prompter) Confirm(prompt string) (bool, error) {
	answer, err := p.Ask(prompt + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
