package frontend

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// CLI is the non-interactive-by-default frontend used by CLI-Search mode
// and, when a real terminal is attached, by TUI-Edit's textual fallback
// prompts (quit guards, passphrase entry). Colorization is TTY-gated:
// piping cpm's output never emits ANSI escapes.
type CLI struct {
	in  *bufio.Reader
	out io.Writer
	err io.Writer

	warn *color.Color
	fail *color.Color
}

// NewCLI builds a CLI frontend around the given streams, detecting
// terminal-ness of out for colorization via isatty, grounded on the
// `vjache-cie` example's pairing of fatih/color with mattn/go-isatty.
func NewCLI(in io.Reader, out, errOut io.Writer) *CLI {
	c := &CLI{in: bufio.NewReader(in), out: out, err: errOut}

	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	c.warn = color.New(color.FgYellow)
	c.fail = color.New(color.FgRed, color.Bold)
	if !tty {
		c.warn.DisableColor()
		c.fail.DisableColor()
	}
	return c
}

// Passphrase prompts on err (so stdout stays clean for search results
// piped to another process) and reads without echo when stdin is the
// process's own controlling terminal.
func (c *CLI) Passphrase(retry int, realm string) (string, error) {
	prompt := fmt.Sprintf("Passphrase for %s: ", realm)
	if retry > 0 {
		prompt = fmt.Sprintf("Passphrase for %s (attempt %d): ", realm, retry+1)
	}
	fmt.Fprint(c.err, prompt)

	if isatty.IsTerminal(os.Stdin.Fd()) {
		pass, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(c.err)
		if err != nil {
			return "", err
		}
		return string(pass), nil
	}

	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *CLI) ShowError(err error) {
	c.fail.Fprintln(c.err, err.Error())
}

func (c *CLI) Warn(msg string) {
	c.warn.Fprintln(c.err, msg)
}

func (c *CLI) Confirm(prompt string, cancelable bool) Answer {
	options := "y/N"
	if cancelable {
		options = "y/N/c"
	}
	fmt.Fprintf(c.err, "%s [%s] ", prompt, options)
	line, _ := c.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return AnswerYes
	case "c", "cancel":
		if cancelable {
			return AnswerCancel
		}
		return AnswerNo
	default:
		return AnswerNo
	}
}

// Redraw is a no-op: the CLI frontend never owns a screen to repaint.
func (c *CLI) Redraw() {}
