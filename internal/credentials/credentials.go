// Package credentials resolves the sign-in password, prompting on the
// terminal when none was supplied.
package credentials

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNoTerminal is returned when a prompt is needed but stdin is not a terminal.
var ErrNoTerminal = errors.New("no terminal available for interactive password prompt (use --password)")

// Prompter reads a secret without echoing it.
type Prompter interface {
	ReadPassword(prompt string) (string, error)
}

// TerminalPrompter prompts on Out and reads from the terminal behind In.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter prompts on stderr and reads from stdin.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// ReadPassword prints prompt and reads a line with echo disabled.
func (p *TerminalPrompter) ReadPassword(prompt string) (string, error) {
	fd := int(p.In.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}
	fmt.Fprint(p.Out, prompt)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(p.Out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

// Resolve returns supplied unchanged if it is set, otherwise asks prompter.
func Resolve(supplied *string, prompter Prompter) (string, error) {
	if supplied != nil {
		return *supplied, nil
	}
	return prompter.ReadPassword("Password: ")
}
