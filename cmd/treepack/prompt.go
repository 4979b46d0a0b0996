package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// errNoInput is returned when stdin ends while a prompt is waiting
var errNoInput = errors.New("no input available")

// prompter asks questions on an interactive terminal
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// readLine returns the next trimmed line. Surrounding quotes are dropped so
// paths pasted from a file manager work.
func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", errNoInput
		}
	}
	return strings.Trim(strings.TrimSpace(line), `"'`), nil
}

// ask prints label and returns the answer, or def when the answer is empty
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		_, _ = fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		_, _ = fmt.Fprintf(p.out, "%s: ", label)
	}

	answer, err := p.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// confirm asks a yes/no question
func (p *prompter) confirm(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	for {
		_, _ = fmt.Fprintf(p.out, "%s [%s]: ", label, hint)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// acknowledge shows msg and waits for Enter. End of input also counts.
func (p *prompter) acknowledge(msg string) {
	_, _ = fmt.Fprintf(p.out, "%s\nPress Enter to exit.\n", msg)
	_, _ = p.readLine()
}

// choose asks for a 1-based index in [1, n]
func (p *prompter) choose(label string, n, def int) (int, error) {
	for {
		answer, err := p.ask(label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		choice, err := strconv.Atoi(answer)
		if err == nil && choice >= 1 && choice <= n {
			return choice, nil
		}
		_, _ = fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", n)
	}
}
