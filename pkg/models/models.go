package models

import (
	"context"
	"errors"

	"github.com/mariozechner/gemini-helper/pkg/store"
)

var (
	// ErrHistoryRestore is returned when a saved history cannot be imported.
	ErrHistoryRestore = errors.New("error loading chat history")
	// ErrTransport marks replies produced from a failed remote call.
	ErrTransport = errors.New("remote call failed")
	// ErrOffline marks replies and calls made without a remote client.
	ErrOffline = errors.New("offline mode")
)

// OfflineNotice is the reply given when there is no remote chat context.
const OfflineNotice = "[Offline Mode] — client not initialized or API key missing."

// Reply is the outcome of sending a message. Text is always displayable:
// on failure it holds a diagnostic and Err is set.
type Reply struct {
	Text string
	Err  error
}

// Failed reports whether the reply is a diagnostic rather than model output.
func (r Reply) Failed() bool { return r.Err != nil }

// ChatService represents a conversation with a remote model (e.g. Gemini).
type ChatService interface {
	// Configure re-creates the remote conversation with a new system prompt
	// and temperature. Any previously restored history is dropped.
	Configure(systemPrompt string, temperature float64)

	// Restore imports a previously saved provider history into the current
	// conversation. Returns ErrHistoryRestore on malformed history.
	Restore(history store.History) error

	// HistoryLoaded reports whether the current conversation was restored
	// from saved history.
	HistoryLoaded() bool

	// Send delivers a message and returns the model's answer. It does not
	// fail: transport and API errors come back as a diagnostic Reply.
	Send(ctx context.Context, message string) Reply

	// FullHistory returns the provider history of the current conversation,
	// empty when there is none.
	FullHistory() store.History

	// List returns the names of available models.
	List(ctx context.Context) ([]string, error)

	// Close releases resources.
	Close() error
}
