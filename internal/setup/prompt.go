package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrAborted is returned when input ends before the wizard completes.
var ErrAborted = errors.New("setup cancelled")

type prompter struct {
	in       *bufio.Reader
	out      io.Writer
	password func() (string, error)
}

func (p *prompter) line(question string) (string, error) {
	fmt.Fprint(p.out, question)
	s, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && s != "" {
			return strings.TrimSpace(s), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) text(question, def string) (string, error) {
	q := question + ": "
	if def != "" {
		q = fmt.Sprintf("%s (default: %s): ", question, def)
	}
	s, err := p.line(q)
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

func (p *prompter) yesNo(question string, def bool) (bool, error) {
	suffix := " [y/N]: "
	if def {
		suffix = " [Y/n]: "
	}
	for {
		s, err := p.line(question + suffix)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(s) {
		case "":
			return def, nil
		case "y", "yes", "1", "true":
			return true, nil
		case "n", "no", "0", "false":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer 'y' for yes or 'n' for no.")
	}
}

func (p *prompter) intRange(question string, def, lo, hi int) (int, error) {
	for {
		s, err := p.line(fmt.Sprintf("%s (default: %d): ", question, def))
		if err != nil {
			return 0, err
		}
		if s == "" {
			return def, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintln(p.out, "Please enter a valid number.")
			continue
		}
		if n < lo || (hi > 0 && n > hi) {
			if hi > 0 {
				fmt.Fprintf(p.out, "Please enter a value between %d and %d.\n", lo, hi)
			} else {
				fmt.Fprintf(p.out, "Please enter a number >= %d.\n", lo)
			}
			continue
		}
		return n, nil
	}
}

func (p *prompter) secret(question string) (string, error) {
	if p.password == nil {
		return p.line(question + ": ")
	}
	fmt.Fprint(p.out, question+" (hidden input): ")
	s, err := p.password()
	fmt.Fprintln(p.out)
	return strings.TrimSpace(s), err
}
