// Package prompt asks the operator for a single confirmation on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/dokzlo13/huebackup/internal/logging"
)

// Terminal writes a message and waits for one line of input.
type Terminal struct {
	in          io.Reader
	out         io.Writer
	interactive bool
}

// New creates a prompt reading from in and writing to out. Input that is not
// a terminal is treated as a pipe.
func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, interactive: isTerminal(in)}
}

// Stdio creates a prompt on the process standard streams.
func Stdio() *Terminal {
	return New(os.Stdin, os.Stdout)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Confirm prints message and blocks until a line (or end of input) is read.
// The content of the line is ignored.
func (t *Terminal) Confirm(message string) error {
	if _, err := fmt.Fprintln(t.out, message); err != nil {
		return err
	}
	if !t.interactive {
		logging.Named("prompt").Info().
			Msg("Standard input is not a terminal, waiting for a line or end of input on it before continuing")
	}

	_, err := bufio.NewReader(t.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	return nil
}
