package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads answers from a terminal, or from a plain reader when
// stdin is not one.
type Prompter struct {
	in  io.Reader
	out io.Writer
	fd  int
	buf *bufio.Reader
}

// NewPrompter prompts on stderr and reads stdin.
func NewPrompter() *Prompter {
	return &Prompter{in: os.Stdin, out: os.Stderr, fd: int(os.Stdin.Fd())}
}

// NewReaderPrompter reads answers line by line from in.
func NewReaderPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, fd: -1}
}

func (p *Prompter) reader() *bufio.Reader {
	if p.buf == nil {
		p.buf = bufio.NewReader(p.in)
	}
	return p.buf
}

// Line asks for a visible answer.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.reader().ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Password asks for an answer without echoing it.
func (p *Prompter) Password(label string) (string, error) {
	if p.fd < 0 || !term.IsTerminal(p.fd) {
		return p.Line(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	secret, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
