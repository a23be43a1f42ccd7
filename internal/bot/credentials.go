package bot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrNoPendingCode is returned when a code is submitted while no logon waits for one.
var ErrNoPendingCode = errors.New("bot: no logon is waiting for an auth code")

// CredentialProvider supplies second-factor codes. AuthCode may block; it must
// return when ctx is done.
type CredentialProvider interface {
	AuthCode(ctx context.Context, username string, retry bool) (string, error)
}

// ConsoleCredentials prompts on a terminal. One goroutine reads lines for the
// provider's lifetime; a line typed after an abandoned prompt answers the next call.
type ConsoleCredentials struct {
	in  *bufio.Reader
	out io.Writer

	once  sync.Once
	lines chan consoleLine
}

type consoleLine struct {
	text string
	err  error
}

// NewConsoleCredentials reads codes from in and prompts on out.
func NewConsoleCredentials(in io.Reader, out io.Writer) *ConsoleCredentials {
	return &ConsoleCredentials{in: bufio.NewReader(in), out: out, lines: make(chan consoleLine)}
}

// AuthCode prints a prompt and waits for one line. A cancelled ctx abandons the wait.
func (c *ConsoleCredentials) AuthCode(ctx context.Context, username string, retry bool) (string, error) {
	if retry {
		_, _ = fmt.Fprintf(c.out, "The code for %s was invalid. Enter the new code: ", username)
	} else {
		_, _ = fmt.Fprintf(c.out, "Enter the second-factor code for %s: ", username)
	}
	c.once.Do(func() { go c.readLines() })

	select {
	case l, ok := <-c.lines:
		if !ok {
			return "", fmt.Errorf("read auth code: %w", io.EOF)
		}
		code := strings.TrimSpace(l.text)
		if l.err != nil && code == "" {
			return "", fmt.Errorf("read auth code: %w", l.err)
		}
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *ConsoleCredentials) readLines() {
	defer close(c.lines)
	for {
		text, err := c.in.ReadString('\n')
		c.lines <- consoleLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// ChannelCredentials waits for codes submitted through Submit, typically from the
// operator API. A code is only taken while a logon is waiting for one.
type ChannelCredentials struct {
	mu      sync.Mutex
	pending chan string
}

// NewChannelCredentials creates a provider with no logon waiting.
func NewChannelCredentials() *ChannelCredentials {
	return &ChannelCredentials{}
}

// Submit hands code to the waiting logon.
func (c *ChannelCredentials) Submit(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("bot: empty auth code")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return ErrNoPendingCode
	}
	c.pending <- code
	c.pending = nil
	return nil
}

// AuthCode blocks until a code is submitted or ctx is done.
func (c *ChannelCredentials) AuthCode(ctx context.Context, _ string, _ bool) (string, error) {
	wait := make(chan string, 1)
	c.mu.Lock()
	c.pending = wait
	c.mu.Unlock()

	select {
	case code := <-wait:
		return code, nil
	case <-ctx.Done():
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.pending == wait {
			c.pending = nil
		}
		select {
		case code := <-wait:
			return code, nil
		default:
			return "", ctx.Err()
		}
	}
}
