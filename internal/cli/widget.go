package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/config"
	"github.com/ashureev/portfolio-chat/internal/domain"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/portfolio"
	"github.com/ashureev/portfolio-chat/internal/prompt"
	"github.com/ashureev/portfolio-chat/internal/session"
)

// proxyGrace lets the server report its own timeout before the client gives up.
const proxyGrace = 5 * time.Second

const directWarning = "Direct mode calls Gemini with your local GEMINI_API_KEY. " +
	"Use it for local demos only: a deployed widget must go through the chat server."

// widget is one mounted chat: a session, the controller driving it and the
// responder both share.
type widget struct {
	responder chat.Responder
	greeting  string
	window    int
	timeout   time.Duration
	ctrl      *chat.Controller
}

func newWidget(r chat.Responder, greeting string, window int, timeout time.Duration) *widget {
	w := &widget{responder: r, greeting: greeting, window: window, timeout: timeout}
	w.reset()
	return w
}

// reset unmounts the current session and starts a fresh one.
func (w *widget) reset() {
	if w.ctrl != nil {
		w.ctrl.Close()
	}
	w.ctrl = chat.NewController(session.New(w.greeting, nil), w.responder, w.window)
}

func (w *widget) transcript() []domain.Message {
	return w.ctrl.Session().Messages()
}

func (w *widget) submit(ctx context.Context, text string) (chat.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout+proxyGrace)
	defer cancel()
	return w.ctrl.Submit(ctx, text)
}

func (w *widget) close() {
	w.ctrl.Close()
}

// mount loads configuration and the portfolio and wires the responder for
// the selected variant.
func (o *options) mount(warnings *renderer) (*widget, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	p, err := portfolio.Load(cfg.PortfolioFile)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}

	timeout := o.timeout
	if timeout <= 0 {
		timeout = cfg.Chat.Timeout
	}

	var r chat.Responder
	if o.direct {
		warnings.warn(directWarning)
		gateway := llm.NewGateway(
			llm.NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, nil),
			llm.GatewayConfig{
				APIKey:     cfg.Gemini.APIKey,
				Timeout:    timeout,
				Generation: cfg.Gemini.Generation(),
			},
		)
		r = chat.NewDirectResponder(prompt.NewAssembler(p, cfg.Chat.HistoryWindow), p.Context(), gateway)
	} else {
		r = chat.NewProxyClient(o.server, nil, p.Context())
	}

	return newWidget(r, p.Greeting(), cfg.Chat.HistoryWindow, timeout), nil
}
