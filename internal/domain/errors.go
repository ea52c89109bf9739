package domain

import "errors"

var (
	ErrEmptyInput     = errors.New("message is empty")
	ErrSubmitInFlight = errors.New("a message is already being sent")
	ErrSessionClosed  = errors.New("chat session closed")
)
