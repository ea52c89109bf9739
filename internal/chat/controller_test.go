package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/llm/llmtest"
	"github.com/ashureev/portfolio-chat/internal/prompt"
	"github.com/ashureev/portfolio-chat/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeting = "Hi! I'm Bharathi's AI assistant. Ask me anything!"

// fakeResponder records calls and can be held open until released.
type fakeResponder struct {
	mu        sync.Mutex
	histories [][]domain.HistoryTurn
	inputs    []string

	reply       string
	err         error
	release     chan struct{}
	honorCancel bool
	sawCancel   chan struct{}
}

func (f *fakeResponder) Respond(ctx context.Context, history []domain.HistoryTurn, input string) (string, error) {
	f.mu.Lock()
	f.histories = append(f.histories, history)
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()

	if f.release != nil {
		if f.honorCancel {
			select {
			case <-ctx.Done():
				if f.sawCancel != nil {
					close(f.sawCancel)
				}
				return "", ctx.Err()
			case <-f.release:
			}
		} else {
			<-f.release
		}
	}
	return f.reply, f.err
}

func (f *fakeResponder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func newTestController(r Responder) *Controller {
	return NewController(session.New(greeting, nil), r, prompt.DefaultWindow)
}

func TestSubmitEndToEnd(t *testing.T) {
	t.Parallel()

	provider := &llmtest.Provider{Reply: "She is skilled in Python."}
	gateway := llm.NewGateway(provider, llm.GatewayConfig{APIKey: llmtest.TestKey})
	assembler := prompt.Assembler{Subject: "Bharathi", Pronoun: "she", HasContact: true}
	c := newTestController(NewDirectResponder(assembler, "Skills: Python", gateway))

	out, err := c.Submit(context.Background(), "What are Bharathi's skills?")
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.Nil(t, out.Err)

	msgs := c.Session().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, greeting, msgs[0].Text)
	assert.Equal(t, domain.SenderUser, msgs[1].Sender)
	assert.Equal(t, "What are Bharathi's skills?", msgs[1].Text)
	assert.Equal(t, domain.SenderAssistant, msgs[2].Sender)
	assert.Equal(t, "She is skilled in Python.", msgs[2].Text)
	assert.Equal(t, msgs[2], out.Reply)

	p := provider.LastPrompt()
	assert.Contains(t, p, "Portfolio Context:\nSkills: Python")
	assert.True(t, strings.HasSuffix(p, "Current conversation history:\nUser: What are Bharathi's skills?\nAssistant:"))
	assert.NotContains(t, p, greeting)
	assert.Equal(t, StateIdle, c.State())
}

func TestSubmitPassesPriorWindow(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestController(r)

	for i := 1; i <= 4; i++ {
		_, err := c.Submit(context.Background(), fmt.Sprintf("q%d", i))
		require.NoError(t, err)
	}

	require.Len(t, r.histories, 4)
	assert.Empty(t, r.histories[0])
	assert.Equal(t, "q4", r.inputs[3])

	last := r.histories[3]
	require.Len(t, last, 5)
	assert.Equal(t, domain.HistoryTurn{Role: domain.SenderAssistant, Content: "ok"}, last[0])
	assert.Equal(t, domain.HistoryTurn{Role: domain.SenderAssistant, Content: "ok"}, last[4])
	assert.Equal(t, "q2", last[1].Content)
}

func TestSubmitRejectsBlankInput(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "ok"}
	c := newTestController(r)

	_, err := c.Submit(context.Background(), "   \n")
	require.ErrorIs(t, err, domain.ErrEmptyInput)
	assert.Equal(t, 0, r.calls())
	assert.Equal(t, 1, c.Session().Len())
	assert.Equal(t, StateIdle, c.State())
}

func TestSubmitRejectsWhileInFlight(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "first", release: make(chan struct{})}
	c := newTestController(r)

	done := make(chan Outcome, 1)
	go func() {
		out, _ := c.Submit(context.Background(), "one")
		done <- out
	}()
	require.Eventually(t, func() bool { return c.State() == StateSubmitting }, time.Second, time.Millisecond)

	_, err := c.Submit(context.Background(), "two")
	require.ErrorIs(t, err, domain.ErrSubmitInFlight)

	close(r.release)
	out := <-done
	assert.Equal(t, ResultSuccess, out.Result)
	assert.Equal(t, 1, r.calls())
	assert.Equal(t, 3, c.Session().Len())
}

func TestSubmitFailureAppendsFriendlyMessage(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{err: &llm.ProviderError{Status: 401, Message: "API key AIzaSECRET rejected"}}
	c := newTestController(r)

	out, err := c.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, out.Result)
	require.NotNil(t, out.Err)
	assert.Equal(t, llm.KindAuth, out.Err.Kind)

	msgs := c.Session().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.SenderAssistant, msgs[2].Sender)
	assert.Equal(t, FailurePrefix+llm.KindAuth.Friendly(), msgs[2].Text)
	assert.NotContains(t, msgs[2].Text, "AIzaSECRET")
	assert.Equal(t, llm.KindAuth, c.LastError().Kind)

	r.err = nil
	r.reply = "fine now"
	_, err = c.Submit(context.Background(), "again")
	require.NoError(t, err)
	assert.Nil(t, c.LastError())
}

func TestCloseCancelsInFlightCall(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{release: make(chan struct{}), honorCancel: true, sawCancel: make(chan struct{})}
	c := newTestController(r)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "question")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return c.State() == StateSubmitting }, time.Second, time.Millisecond)

	c.Close()
	<-r.sawCancel
	require.ErrorIs(t, <-errCh, domain.ErrSessionClosed)
	assert.Equal(t, 2, c.Session().Len())
}

func TestLateResultAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	r := &fakeResponder{reply: "too late", release: make(chan struct{})}
	c := newTestController(r)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "question")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return c.State() == StateSubmitting }, time.Second, time.Millisecond)

	c.Close()
	close(r.release)

	require.ErrorIs(t, <-errCh, domain.ErrSessionClosed)
	for _, m := range c.Session().Messages() {
		assert.NotEqual(t, "too late", m.Text)
	}

	_, err := c.Submit(context.Background(), "after close")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestGatewayTimeoutBecomesTranscriptEntry(t *testing.T) {
	t.Parallel()

	provider := &llmtest.Provider{Hang: true}
	gateway := llm.NewGateway(provider, llm.GatewayConfig{APIKey: llmtest.TestKey, Timeout: 30 * time.Millisecond})
	c := newTestController(NewDirectResponder(prompt.Assembler{Subject: "Bharathi"}, "ctx", gateway))

	out, err := c.Submit(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, out.Result)
	assert.Equal(t, llm.KindTimeout, out.Err.Kind)
	assert.Equal(t, FailurePrefix+llm.KindTimeout.Friendly(), out.Reply.Text)
}

func TestBeginMarksInFlightBeforeReturning(t *testing.T) {
	t.Parallel()

	f := &fakeResponder{reply: "first answer", release: make(chan struct{})}
	c := newTestController(f)

	p, err := c.Begin(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, c.State())

	// The second submission is rejected even though the first has not
	// reached the responder yet.
	_, err = c.Begin(context.Background(), "second")
	require.ErrorIs(t, err, domain.ErrSubmitInFlight)
	assert.Equal(t, 0, f.calls())

	done := make(chan Outcome, 1)
	go func() {
		out, waitErr := p.Wait()
		assert.NoError(t, waitErr)
		done <- out
	}()
	close(f.release)

	out := <-done
	assert.Equal(t, ResultSuccess, out.Result)
	assert.Equal(t, "first answer", out.Reply.Text)
	assert.Equal(t, StateIdle, c.State())

	msgs := c.Session().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[1].Text)
	assert.Equal(t, "first answer", msgs[2].Text)
}
