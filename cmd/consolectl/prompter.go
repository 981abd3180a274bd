package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/notify"
)

type terminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func (n *terminalNotifier) Notify(_ context.Context, note goConsole.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if note.Title != "" {
		fmt.Fprintf(n.out, "[%s] %s: %s\n", note.Kind, note.Title, note.Message)
		return
	}
	fmt.Fprintf(n.out, "[%s] %s\n", note.Kind, note.Message)
}

// terminalPrompter asks on the terminal. With assumeYes every prompt is
// answered without reading input.
type terminalPrompter struct {
	mu        sync.Mutex
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newTerminalPrompter(in io.Reader, out io.Writer, assumeYes bool) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

func (p *terminalPrompter) Acknowledge(ctx context.Context, title, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s\n%s\n", title, message)
	if p.assumeYes {
		return nil
	}
	fmt.Fprint(p.out, "Press Enter to continue. ")
	_, err := p.readLine(ctx)
	return err
}

func (p *terminalPrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s\n%s\n", title, message)
	if p.assumeYes {
		fmt.Fprintln(p.out, "[y/N] y")
		return true, nil
	}
	fmt.Fprint(p.out, "[y/N] ")
	line, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (p *terminalPrompter) Inform(_ context.Context, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%s] %s\n", notify.Info, message)
}

// readLine gives up when ctx ends; the reader goroutine is left to finish
// on the next line of input.
func (p *terminalPrompter) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{line: line, err: err}
	}()
	select {
	case r := <-ch:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
