package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/domain"
)

// DefaultSessionID is used by the chat loop when no session is configured.
const DefaultSessionID = "local"

// Handler processes one conversational turn. *triage.Service satisfies it.
type Handler interface {
	Handle(ctx context.Context, sessionID, utterance string, reset bool) (domain.Reply, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, sessionID, utterance string, reset bool) (domain.Reply, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, sessionID, utterance string, reset bool) (domain.Reply, error) {
	return f(ctx, sessionID, utterance, reset)
}

// ContentRenderer transforms a reply before it is written, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)

// IsInputError reports whether err was caused by the user's message rather
// than by the service.
func IsInputError(err error) bool {
	return errors.Is(err, ErrUtteranceTooLong) ||
		errors.Is(err, ErrInvalidUTF8) ||
		errors.Is(err, domain.ErrEmptyUtterance) ||
		errors.Is(err, domain.ErrInvalidSessionID)
}

// Chat is an interactive line-oriented conversation against a Handler.
// Lines starting with "/" are commands: /reset clears the session and
// /quit ends the loop. A Chat runs once.
type Chat struct {
	handler   Handler
	sessionID string
	reader    *bufio.Reader
	writer    io.Writer
	renderer  ContentRenderer
	prompt    string
	logger    *slog.Logger

	inputChan chan inputResult
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

type inputResult struct {
	text string
	err  error
}

// Option configures a Chat.
type Option func(*Chat)

// WithSessionID sets the session the chat talks to.
func WithSessionID(id string) Option {
	return func(c *Chat) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// WithInput sets the reader lines are read from.
func WithInput(r io.Reader) Option {
	return func(c *Chat) {
		if r != nil {
			c.reader = bufio.NewReader(r)
		}
	}
}

// WithOutput sets the writer replies are written to.
func WithOutput(w io.Writer) Option {
	return func(c *Chat) {
		if w != nil {
			c.writer = w
		}
	}
}

// WithRenderer configures the content renderer applied to summaries.
func WithRenderer(renderer ContentRenderer) Option {
	return func(c *Chat) {
		c.renderer = renderer
	}
}

// WithPrompt overrides the input prompt.
func WithPrompt(prompt string) Option {
	return func(c *Chat) {
		c.prompt = prompt
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chat) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChat creates a chat bound to stdin/stdout unless configured otherwise.
func NewChat(h Handler, opts ...Option) *Chat {
	c := &Chat{
		handler:   h,
		sessionID: DefaultSessionID,
		reader:    bufio.NewReader(os.Stdin),
		writer:    os.Stdout,
		prompt:    "> ",
		logger:    logging.NewNop(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the session the chat talks to.
func (c *Chat) SessionID() string { return c.sessionID }

// Run reads lines until EOF, /quit or an interrupt. Input errors are
// reported and the user is asked again; any other handler error ends the loop.
func (c *Chat) Run(ctx context.Context) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()
	defer c.stop()

	for {
		text, err := c.input(signals.Context())
		if err != nil {
			signals.CheckRace()
			if signals.Context().Err() != nil {
				fmt.Fprintln(c.writer)
				c.logger.Debug("chat interrupted", "session_id", c.sessionID)
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		switch strings.ToLower(text) {
		case "":
			continue
		case "/quit", "/exit", "quit", "exit":
			return nil
		case "/reset":
			if _, err := c.handler.Handle(ctx, c.sessionID, "", true); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintln(c.writer, "[System] Session reset.")
			continue
		}

		reply, err := c.handler.Handle(ctx, c.sessionID, text, false)
		if err != nil {
			if IsInputError(err) {
				fmt.Fprintf(c.writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return err
		}
		c.output(reply)
	}
}

func (c *Chat) output(reply domain.Reply) {
	out := reply.Text
	if reply.Final && c.renderer != nil {
		if rendered, err := c.renderer(out); err == nil {
			out = rendered
		} else {
			c.logger.Warn("render failed", "err", err)
		}
	}
	fmt.Fprintln(c.writer, strings.TrimSpace(out))
}

func (c *Chat) initPump() {
	c.startOnce.Do(func() {
		c.inputChan = make(chan inputResult)
		go c.pump()
	})
}

func (c *Chat) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// pump reads lines in the background so input can be abandoned on interrupt.
// It exits at EOF or, once Run has returned, after its current read.
func (c *Chat) pump() {
	defer close(c.inputChan)
	for {
		text, err := c.reader.ReadString('\n')
		if text != "" && !c.send(inputResult{text: text}) {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) || !c.send(inputResult{err: err}) {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func (c *Chat) send(res inputResult) bool {
	select {
	case c.inputChan <- res:
		return true
	case <-c.done:
		return false
	}
}

func (c *Chat) input(ctx context.Context) (string, error) {
	c.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(c.writer, c.prompt)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-c.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := CleanUtterance(res.text)
			if errors.Is(err, domain.ErrEmptyUtterance) {
				return "", nil
			}
			if err != nil {
				fmt.Fprintf(c.writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}
