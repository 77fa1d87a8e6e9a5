package elicit

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// Console is a terminal-backed Channel using readline for elicitation
type Console struct {
	out io.Writer
}

// Compile-time check that Console implements Channel
var _ Channel = (*Console)(nil)

// NewConsole creates a Channel that talks to the controlling terminal
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// Notify prints a severity-tagged progress line
func (c *Console) Notify(ctx context.Context, severity Severity, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch severity {
	case SeverityDebug:
		if os.Getenv("PLANER_DEBUG") == "" {
			return
		}
		fmt.Fprintf(c.out, "%s %s\n", color.New(color.Faint).Sprint("debug:"), msg)
	case SeverityWarning:
		fmt.Fprintf(c.out, "%s %s\n", color.New(color.FgYellow).Sprint("⚠"), msg)
	case SeverityError:
		fmt.Fprintf(c.out, "%s %s\n", color.New(color.FgRed).Sprint("✗"), msg)
	default:
		fmt.Fprintf(c.out, "%s %s\n", color.New(color.FgCyan).Sprint("•"), msg)
	}
}

// Elicit prints the prompt and blocks for a single free-text reply.
// Ctrl+C and EOF map to a cancelled response rather than an error.
func (c *Console) Elicit(ctx context.Context, prompt string) (Response, error) {
	fmt.Fprintf(c.out, "\n%s\n", prompt)

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cyan("> "),
		InterruptPrompt: "^C",
		EOFPrompt:       "cancel",
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt || err == io.EOF {
			return Response{Action: ActionCancel}, nil
		}
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	return Response{Action: ActionAccept, Text: strings.TrimSpace(line)}, nil
}
