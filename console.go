package pgextdemo

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Console writes the demo narrative and waits at prompts.
type Console struct {
	out   io.Writer
	in    io.Reader
	pause bool

	banner *color.Color
	note   *color.Color
	num    *message.Printer

	once  sync.Once
	lines chan string
	err   error
}

// NewConsole returns a Console writing to out. When pause is true, prompts
// block until a line is read from in.
func NewConsole(out io.Writer, in io.Reader, pause bool) *Console {
	return &Console{
		out:    out,
		in:     in,
		pause:  pause,
		banner: color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgYellow),
		num:    message.NewPrinter(language.English),
	}
}

// Banner prints a framed section title.
func (c *Console) Banner(title string) {
	rule := strings.Repeat("=", 43)
	c.banner.Fprintln(c.out, rule)
	c.banner.Fprintln(c.out, title)
	c.banner.Fprintln(c.out, rule)
	fmt.Fprintln(c.out)
}

// Paragraph prints lines followed by a blank line.
func (c *Console) Paragraph(lines ...string) {
	for _, l := range lines {
		fmt.Fprintln(c.out, l)
	}
	fmt.Fprintln(c.out)
}

// Note prints a highlighted remark.
func (c *Console) Note(msg string) {
	c.note.Fprintln(c.out, msg)
}

// Count formats n with thousands separators.
func (c *Console) Count(n int) string {
	return c.num.Sprintf("%d", n)
}

// Writer exposes the underlying output.
func (c *Console) Writer() io.Writer {
	return c.out
}

// Prompt prints msg and waits for a line of input. It returns ctx.Err()
// when ctx is cancelled while waiting.
func (c *Console) Prompt(ctx context.Context, msg string) error {
	fmt.Fprint(c.out, msg)
	if !c.pause {
		fmt.Fprintln(c.out)
		return nil
	}
	c.once.Do(c.startReader)
	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return ctx.Err()
	case _, ok := <-c.lines:
		if !ok {
			if c.err != nil {
				return fmt.Errorf("read prompt response: %w", c.err)
			}
			return fmt.Errorf("read prompt response: %w", io.EOF)
		}
		return nil
	}
}

// startReader feeds input lines to Prompt. A single reader goroutine keeps
// an abandoned read from swallowing a later line.
func (c *Console) startReader() {
	c.lines = make(chan string)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			c.lines <- sc.Text()
		}
		c.err = sc.Err()
		close(c.lines)
	}()
}
