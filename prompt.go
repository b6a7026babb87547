package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// prompter asks the user questions on a line-oriented terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer

	// readPassword reads a line without echo. Nil if input is not a
	// terminal, in which case passwords are read like any other answer.
	readPassword func() (string, error)
}

func newPrompter(in *os.File, out io.Writer) *prompter {
	p := &prompter{
		in:  bufio.NewReader(in),
		out: out,
	}

	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		p.readPassword = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(out)
			return string(b), err
		}
	}

	return p
}

// ask prints a question and returns the answer without its line terminator.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)

	line, err := p.in.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("no answer to %q: unexpected end of input", strings.TrimSpace(question))
	}
	if err != nil {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// askPassword is like ask, but does not echo the answer on a terminal.
func (p *prompter) askPassword(question string) (string, error) {
	if p.readPassword == nil {
		return p.ask(question)
	}

	fmt.Fprint(p.out, question)
	return p.readPassword()
}

// askIndex asks for a zero-based index into a list of n items.
func (p *prompter) askIndex(question string, n int) (int, error) {
	answer, err := p.ask(question)
	if err != nil {
		return 0, err
	}
	return parseIndex(answer, n)
}

func parseIndex(answer string, n int) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", answer)
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("index out of range: have=%d want=[0,%d)", idx, n)
	}
	return idx, nil
}

// isYes reports whether an answer to a yes/no question means yes.
func isYes(answer string) bool {
	switch strings.TrimSpace(answer) {
	case "Y", "y", "yes", "TRUE", "true", "1":
		return true
	default:
		return false
	}
}
