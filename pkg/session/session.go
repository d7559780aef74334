// Package session holds the state of the active conversation: its name,
// role prompt, temperature and display transcript, and moves that state to
// and from a store.Manager.
package session

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mariozechner/gemini-helper/pkg/parsing"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

// ErrTemperatureRange is returned for temperatures outside [0, 1].
var ErrTemperatureRange = errors.New("temperature must be a number between 0.0 and 1.0")

// Defaults are applied to fresh sessions and to loaded chats that omit a field.
type Defaults struct {
	SystemPrompt string
	Temperature  float64
}

// Session is the in-memory state of one conversation.
type Session struct {
	store    store.Manager
	defaults Defaults

	name         string
	systemPrompt string
	temperature  float64
	transcript   []store.Message
	isSaved      bool
	persisted    bool
}

// New returns an empty session backed by m.
func New(m store.Manager, defaults Defaults) *Session {
	s := &Session{store: m, defaults: defaults}
	s.New()
	return s
}

// New resets every field to its default.
func (s *Session) New() {
	s.name = ""
	s.systemPrompt = s.defaults.SystemPrompt
	s.temperature = s.defaults.Temperature
	s.transcript = nil
	s.isSaved = false
	s.persisted = false
}

func (s *Session) Name() string                { return s.name }
func (s *Session) SystemPrompt() string        { return s.systemPrompt }
func (s *Session) Temperature() float64        { return s.temperature }
func (s *Session) IsSaved() bool               { return s.isSaved }
func (s *Session) Store() store.Manager        { return s.store }
func (s *Session) Defaults() Defaults          { return s.defaults }
func (s *Session) Transcript() []store.Message { return append([]store.Message(nil), s.transcript...) }

// Persisted reports whether the chat has been saved or loaded since the last
// New. A persisted chat is kept up to date on disk after every exchange.
func (s *Session) Persisted() bool { return s.persisted }

// Detach forgets that the chat exists on disk, typically after its file was
// deleted. The transcript is kept.
func (s *Session) Detach() {
	s.isSaved = false
	s.persisted = false
}

// SetName stores the cleaned form of raw.
func (s *Session) SetName(raw string) {
	s.name = parsing.CleanFilename(raw)
}

// SetSystemPrompt changes the role prompt and marks the session unsaved.
func (s *Session) SetSystemPrompt(prompt string) {
	s.systemPrompt = prompt
	s.isSaved = false
}

// SetTemperature changes the temperature and marks the session unsaved.
func (s *Session) SetTemperature(t float64) error {
	if t < 0 || t > 1 {
		return ErrTemperatureRange
	}
	s.temperature = t
	s.isSaved = false
	return nil
}

// AppendMessage adds a timestamped message. Any new message makes the
// session unsaved.
func (s *Session) AppendMessage(role store.Role, content string) {
	s.transcript = append(s.transcript, store.Message{
		Role:      role,
		Content:   content,
		Timestamp: store.Now(),
	})
	s.isSaved = false
}

// Save persists the session with history as the provider record and
// returns a confirmation for the user.
func (s *Session) Save(history store.History) (string, error) {
	if s.name == "" {
		return "", store.ErrNameRequired
	}

	rec := store.Record{
		Metadata: store.Metadata{
			Name:         s.name,
			SystemPrompt: s.systemPrompt,
			Temperature:  s.temperature,
			SavedAt:      store.Now(),
			History:      history,
		},
		Transcript: s.transcript,
	}
	if err := s.store.Save(rec); err != nil {
		return "", err
	}

	s.isSaved = true
	s.persisted = true
	slog.Info("Chat saved", "name", s.name, "turns", len(history), "messages", len(s.transcript))
	return fmt.Sprintf("Chat '%s' saved successfully.", s.name), nil
}

// Load replaces the session with the chat stored under name. The transcript
// is rebuilt from the provider history, which is returned together with the
// metadata so the caller can restore the remote conversation.
func (s *Session) Load(name string) (store.Metadata, store.History, error) {
	rec, err := s.store.Load(name)
	if err != nil {
		return store.Metadata{}, nil, err
	}
	meta := rec.Metadata

	// The file stem is the key Save writes back to.
	s.name = name
	if meta.Name != "" && meta.Name != name {
		slog.Debug("Chat file name differs from its metadata", "file", name, "metadata", meta.Name)
	}
	s.systemPrompt = meta.SystemPrompt
	if rec.MissingSystemPrompt {
		s.systemPrompt = s.defaults.SystemPrompt
	}
	s.temperature = meta.Temperature
	if rec.MissingTemperature {
		s.temperature = s.defaults.Temperature
	}

	s.transcript = meta.History.Transcript()
	s.isSaved = true
	s.persisted = true

	slog.Info("Chat loaded", "name", s.name, "turns", len(meta.History))
	return meta, meta.History, nil
}

// List returns every readable saved chat.
func (s *Session) List() ([]store.ChatInfo, error) {
	return s.store.List()
}

// Filter returns saved chats matching query by name or role.
func (s *Session) Filter(query string) ([]store.ChatInfo, error) {
	return s.store.Filter(query)
}

// Delete removes a saved chat. The in-memory session is left untouched.
func (s *Session) Delete(name string) (string, error) {
	return s.store.Delete(name)
}
