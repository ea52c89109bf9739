package domain

// MaxHistoryTurns bounds conversationHistory on an incoming chat request.
const MaxHistoryTurns = 50

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message             string        `json:"message"`
	Context             string        `json:"context,omitempty"`
	ConversationHistory []HistoryTurn `json:"conversationHistory,omitempty"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the failure body of every API endpoint. Details carries
// the failure kind, never raw provider text.
type ErrorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}
