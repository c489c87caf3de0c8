package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is replaced in tests to keep the terminal out of the way.
var readPassword = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }

// promptPassword reads a password without echo. Non-terminal stdin is read as a plain line.
func promptPassword(w io.Writer, in *bufio.Reader, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	if in == nil {
		pw, err := readPassword()
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// stdinReader is nil when stdin is a terminal.
func stdinReader() *bufio.Reader {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return bufio.NewReader(os.Stdin)
}
