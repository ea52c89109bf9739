package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/prompt"
	"github.com/ashureev/portfolio-chat/internal/session"
)

// FailurePrefix marks assistant messages that stand in for a failed reply.
const FailurePrefix = "🔧 "

// State is the controller's submit state.
type State int

const (
	StateIdle State = iota
	StateSubmitting
)

func (s State) String() string {
	if s == StateSubmitting {
		return "submitting"
	}
	return "idle"
}

// Result tells how a submission ended.
type Result int

const (
	ResultSuccess Result = iota + 1
	ResultFailed
)

// Outcome describes a completed submission. Reply is the assistant message
// that was appended; Err is set when Result is ResultFailed.
type Outcome struct {
	Result Result
	Reply  domain.Message
	Err    *llm.Error
}

// Controller runs the submit lifecycle for one session: at most one
// submission at a time, and every submission that reaches the responder
// ends with exactly one assistant message.
type Controller struct {
	session   *session.Session
	responder Responder
	window    int

	mu      sync.Mutex
	state   State
	closed  bool
	cancel  context.CancelFunc
	lastErr *llm.Error
}

// NewController creates a controller over sess. window is how many prior
// messages accompany each question.
func NewController(sess *session.Session, r Responder, window int) *Controller {
	if window <= 0 {
		window = prompt.DefaultWindow
	}
	return &Controller{session: sess, responder: r, window: window}
}

// Submit sends text and waits for the reply.
//
// Rejected submissions (blank text, a submission already in flight, a closed
// controller) return an error and leave the transcript untouched. Otherwise
// the error is nil and the outcome reports success or a classified failure.
func (c *Controller) Submit(ctx context.Context, text string) (Outcome, error) {
	p, err := c.Begin(ctx, text)
	if err != nil {
		return Outcome{}, err
	}
	return p.Wait()
}

// Pending is an accepted submission whose reply has not been collected yet.
type Pending struct {
	c       *Controller
	ctx     context.Context
	cancel  context.CancelFunc
	history []domain.HistoryTurn
	input   string
}

// Begin accepts text synchronously: it applies the same checks as Submit,
// appends the user message and marks the controller as submitting. The
// caller must call Wait on the returned Pending, possibly from another
// goroutine; until then further submissions get ErrSubmitInFlight.
func (c *Controller) Begin(ctx context.Context, text string) (*Pending, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return nil, domain.ErrEmptyInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domain.ErrSessionClosed
	}
	if c.state == StateSubmitting {
		return nil, domain.ErrSubmitInFlight
	}

	history := c.session.History(c.window)
	if err := c.session.Append(domain.NewUserMessage(input, c.session.Now())); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithCancel(ctx)
	c.state = StateSubmitting
	c.cancel = cancel
	return &Pending{c: c, ctx: callCtx, cancel: cancel, history: history, input: input}, nil
}

// Wait calls the responder and records its reply.
func (p *Pending) Wait() (Outcome, error) {
	reply, err := p.c.responder.Respond(p.ctx, p.history, p.input)
	p.cancel()
	return p.c.finish(reply, err)
}

func (c *Controller) finish(reply string, err error) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.cancel = nil

	if c.closed {
		return Outcome{}, domain.ErrSessionClosed
	}

	if err != nil {
		failure := llm.Classify(err)
		msg := domain.NewAssistantMessage(FailurePrefix+failure.Friendly(), c.session.Now())
		if appendErr := c.session.Append(msg); appendErr != nil {
			return Outcome{}, appendErr
		}
		c.lastErr = failure
		return Outcome{Result: ResultFailed, Reply: msg, Err: failure}, nil
	}

	msg := domain.NewAssistantMessage(reply, c.session.Now())
	if appendErr := c.session.Append(msg); appendErr != nil {
		return Outcome{}, appendErr
	}
	c.lastErr = nil
	return Outcome{Result: ResultSuccess, Reply: msg}, nil
}

// Close cancels any in-flight submission and closes the session. A reply
// that arrives afterwards is dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.session.Close()
}

// State returns the current submit state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the failure of the most recent submission, or nil if it
// succeeded.
func (c *Controller) LastError() *llm.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Session returns the transcript.
func (c *Controller) Session() *session.Session {
	return c.session
}
