package hex

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Prompt reads answers from the terminal with readline.
type Prompt struct {
	in  io.Reader
	out io.Writer
}

// NewPrompt creates a prompt reading from in and echoing to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: in, out: out}
}

func (p *Prompt) instance(prompt string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          prompt,
		Stdin:           io.NopCloser(p.in),
		Stdout:          p.out,
		Stderr:          p.out,
		InterruptPrompt: "^C",
	})
}

// Ask reads one line.
func (p *Prompt) Ask(question string) (string, error) {
	rl, err := p.instance(question)
	if err != nil {
		return "", err
	}
	defer rl.Close()

	line, err := rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", errors.New("cancelled")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AskPassword reads one line without echoing it.
func (p *Prompt) AskPassword(question string) (string, error) {
	rl, err := p.instance("")
	if err != nil {
		return "", err
	}
	defer rl.Close()

	secret, err := rl.ReadPassword(question)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// Confirm asks a yes/no question. Anything but y or yes is no.
func (p *Prompt) Confirm(question string) (bool, error) {
	answer, err := p.Ask(fmt.Sprintf("%s [y/n]: ", question))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
