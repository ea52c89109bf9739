package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/probe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGreeting = "Hi! I'm Bharathi's AI assistant. Ask me anything!"

type scriptedInput struct {
	lines   []string
	history []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) AppendHistory(item string) {
	s.history = append(s.history, item)
}

type recordingResponder struct {
	mu        sync.Mutex
	histories [][]domain.HistoryTurn
	block     bool
	delay     time.Duration
	started   chan struct{}
}

func (r *recordingResponder) Respond(ctx context.Context, history []domain.HistoryTurn, input string) (string, error) {
	r.mu.Lock()
	r.histories = append(r.histories, history)
	r.mu.Unlock()

	if r.started != nil {
		close(r.started)
	}
	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "Answer to: " + input, nil
}

func (r *recordingResponder) calls() [][]domain.HistoryTurn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.histories
}

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestREPLConversationAndReset(t *testing.T) {
	t.Parallel()

	responder := &recordingResponder{}
	var out bytes.Buffer
	r := &repl{
		widget: newWidget(responder, testGreeting, 5, time.Second),
		in:     &scriptedInput{lines: []string{"What are Bharathi's skills?", "  ", "And projects?", "/reset", "Hello again", "/quit", "never read"}},
		out:    newRenderer(&out),
	}

	require.NoError(t, r.run(context.Background()))

	calls := responder.calls()
	require.Len(t, calls, 3)
	assert.Empty(t, calls[0])
	assert.Equal(t, []domain.HistoryTurn{
		{Role: domain.SenderUser, Content: "What are Bharathi's skills?"},
		{Role: domain.SenderAssistant, Content: "Answer to: What are Bharathi's skills?"},
	}, calls[1])
	assert.Empty(t, calls[2], "reset starts a fresh session")

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "Assistant: "+testGreeting))
	assert.Contains(t, text, "Assistant: Answer to: Hello again")
	assert.Contains(t, text, "Started a new conversation.")
	assert.NotContains(t, text, "never read")
}

func TestREPLInterruptCancelsSubmission(t *testing.T) {
	t.Parallel()

	interrupts := make(chan os.Signal, 1)
	responder := &recordingResponder{block: true, started: make(chan struct{})}
	go func() {
		<-responder.started
		interrupts <- os.Interrupt
	}()

	var out bytes.Buffer
	r := &repl{
		widget:     newWidget(responder, testGreeting, 5, time.Minute),
		in:         &scriptedInput{lines: []string{"slow question"}},
		out:        newRenderer(&out),
		interrupts: interrupts,
	}

	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "[Cancelled]")
	assert.Equal(t, chat.StateIdle, r.widget.ctrl.State())
}

func TestREPLStaleInterruptIsDropped(t *testing.T) {
	t.Parallel()

	interrupts := make(chan os.Signal, 1)
	interrupts <- os.Interrupt

	var out bytes.Buffer
	r := &repl{
		widget:     newWidget(&recordingResponder{delay: 50 * time.Millisecond}, testGreeting, 5, time.Minute),
		in:         &scriptedInput{lines: []string{"next question"}},
		out:        newRenderer(&out),
		interrupts: interrupts,
	}

	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "Assistant: Answer to: next question")
	assert.NotContains(t, out.String(), "[Cancelled]")
	assert.Empty(t, interrupts)
}

func TestREPLUnknownCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := &repl{
		widget: newWidget(&recordingResponder{}, testGreeting, 5, time.Second),
		in:     &scriptedInput{lines: []string{"/nope", "/help"}},
		out:    newRenderer(&out),
	}

	require.NoError(t, r.run(context.Background()))
	assert.Contains(t, out.String(), "Unknown command /nope")
	assert.Contains(t, out.String(), "/reset")
}

func TestAskThroughServer(t *testing.T) {
	t.Parallel()

	requests := make(chan domain.ChatRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req domain.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests <- req
		_ = json.NewEncoder(w).Encode(domain.ChatResponse{Response: "She is skilled in Python."})
	}))
	t.Cleanup(srv.Close)

	stdout, stderr, err := runRoot(t, "ask", "--server", srv.URL, "What", "are", "Bharathi's", "skills?")
	require.NoError(t, err)
	assert.Equal(t, "Assistant: She is skilled in Python.\n", stdout)
	assert.Empty(t, stderr)

	got := <-requests
	assert.Equal(t, "What are Bharathi's skills?", got.Message)
	assert.Empty(t, got.ConversationHistory)
	assert.NotEmpty(t, got.Context)
}

func TestAskSurfacesServerFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(domain.ErrorResponse{
			Error:      "Too many requests. Please wait a bit and try again.",
			Details:    string(llm.KindRateLimited),
			RetryAfter: 12,
		})
	}))
	t.Cleanup(srv.Close)

	stdout, _, err := runRoot(t, "ask", "--server", srv.URL, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(llm.KindRateLimited))
	assert.Contains(t, stdout, chat.FailurePrefix+"Too many requests. Please wait a bit and try again.")
	assert.Contains(t, stdout, "Try again in 12s.")
}

func TestAskDirectWithoutCredential(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	stdout, stderr, err := runRoot(t, "ask", "--direct", "hi")
	require.Error(t, err)
	assert.Contains(t, stderr, directWarning)
	assert.Contains(t, stdout, chat.FailurePrefix+llm.KindConfiguration.Friendly())
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"OK","message":"Chat API is running"}`))
	}))
	t.Cleanup(srv.Close)

	hp, err := probe.Listen("127.0.0.1:0", nil)
	require.NoError(t, err)
	go func() { _ = hp.Serve() }()
	t.Cleanup(hp.Stop)
	hp.SetServing(true)

	stdout, _, err := runRoot(t, "health", "--server", srv.URL, "--grpc", hp.Addr(), "--timeout", "5s")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Chat server OK")
	assert.Contains(t, stdout, "gRPC health probe SERVING")
}

func TestHealthServerDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, _, err := runRoot(t, "health", "--server", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestRendererPlainOutput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	r := newRenderer(&out)
	assert.False(t, r.styled)

	r.message(domain.NewUserMessage("hi", time.Now()))
	r.message(domain.NewAssistantMessage("**bold** answer", time.Now()))
	r.message(domain.NewAssistantMessage(chat.FailurePrefix+"Request timed out.", time.Now()))

	assert.Equal(t, "You: hi\nAssistant: **bold** answer\n"+chat.FailurePrefix+"Request timed out.\n", out.String())
}
