package iocli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio читает из in и пишет в out. Если in - терминал, пароль читается
// без эха, иначе строкой (удобно для pipe и тестов).
type Stdio struct {
	in     *bufio.Reader
	out    io.Writer
	file   *os.File
	isTerm func(fd int) bool
}

func NewStdio() IO {
	return New(os.Stdin, os.Stdout)
}

// New creates an IO over arbitrary streams
func New(in io.Reader, out io.Writer) IO {
	s := &Stdio{
		in:     bufio.NewReader(in),
		out:    out,
		isTerm: term.IsTerminal,
	}
	if f, ok := in.(*os.File); ok {
		s.file = f
	}
	return s
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	return s.readLine()
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	s.Printf("%s", prompt)

	if s.file != nil && s.isTerm(int(s.file.Fd())) {
		pwBytes, err := term.ReadPassword(int(s.file.Fd()))
		s.Println("")
		if err != nil {
			return "", err
		}
		return string(pwBytes), nil
	}

	return s.readLine()
}

func (s *Stdio) readLine() (string, error) {
	input, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimRight(input, "\r\n"), nil
}
