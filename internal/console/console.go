// Package console implements a tiny line-oriented debug REPL served
// over a CDC-ACM serial interface, standing in for the original
// firmware's UART debug console.
package console

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/dropalt/keyboard-core/device/class/cdc"
	"github.com/dropalt/keyboard-core/pkg"
)

// Handler answers a command's argument list with the text to write
// back to the terminal (no trailing newline).
type Handler func(args []string) string

// Console dispatches newline-terminated commands read from acm to
// registered Handlers and writes their replies back.
type Console struct {
	acm      *cdc.ACM
	commands map[string]Handler
	pending  []byte
}

// New returns a console bound to acm. Register commands before Run.
func New(acm *cdc.ACM) *Console {
	return &Console{acm: acm, commands: make(map[string]Handler)}
}

// Register adds a named command, matched against the first
// whitespace-separated token of each input line.
func (c *Console) Register(name string, fn Handler) {
	c.commands[name] = fn
}

// Run reads from acm until ctx is cancelled or the transport errors,
// dispatching each complete line to its registered command.
func (c *Console) Run(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		n, err := c.acm.Read(ctx, buf)
		if err != nil {
			return err
		}
		c.pending = append(c.pending, buf[:n]...)
		c.drainLines(ctx)
	}
}

func (c *Console) drainLines(ctx context.Context) {
	for {
		idx := bytes.IndexByte(c.pending, '\n')
		if idx < 0 {
			return
		}
		line := strings.TrimRight(string(c.pending[:idx]), "\r")
		c.pending = c.pending[idx+1:]
		c.dispatch(ctx, line)
	}
}

func (c *Console) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	name, args := fields[0], fields[1:]

	if name == "help" {
		c.reply(ctx, c.helpText())
		return
	}

	fn, ok := c.commands[name]
	if !ok {
		c.reply(ctx, fmt.Sprintf("unknown command: %s (try \"help\")", name))
		return
	}
	c.reply(ctx, fn(args))
}

func (c *Console) helpText() string {
	names := make([]string, 0, len(c.commands)+1)
	names = append(names, "help")
	for name := range c.commands {
		names = append(names, name)
	}
	return "commands: " + strings.Join(names, ", ")
}

func (c *Console) reply(ctx context.Context, text string) {
	if _, err := c.acm.Write(ctx, []byte(text+"\r\n")); err != nil {
		pkg.LogDebug(pkg.ComponentDevice, "console write failed", "error", err)
	}
}
