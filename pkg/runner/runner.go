package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mariozechner/gemini-helper/pkg/models"
	"github.com/mariozechner/gemini-helper/pkg/session"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

var (
	// ErrMissingArgument is returned when a command needs text it did not get.
	ErrMissingArgument = errors.New("missing argument")
	// ErrNotSaved is returned when deleting a chat that was never saved.
	ErrNotSaved = errors.New("you can only delete saved chats, use #new to discard")
)

// Runner coordinates the active session with the remote chat service.
// It is the only place where both are changed together.
type Runner struct {
	sess  *session.Session
	model models.ChatService

	// carried holds saved turns the model does not hold itself, because it
	// is offline or because restoring them failed. They stay in front of
	// the model's own history whenever the chat is saved.
	carried store.History
}

// New binds sess and model and configures the model from the session.
func New(sess *session.Session, model models.ChatService) *Runner {
	r := &Runner{sess: sess, model: model}
	r.model.Configure(sess.SystemPrompt(), sess.Temperature())
	return r
}

func (r *Runner) Session() *session.Session  { return r.sess }
func (r *Runner) Model() models.ChatService { return r.model }

// History returns the provider history to persist for the current chat.
func (r *Runner) History() store.History {
	h := append(store.History{}, r.carried...)
	return append(h, r.model.FullHistory()...)
}

// Dirty reports whether discarding the session would lose messages.
func (r *Runner) Dirty() bool {
	return !r.sess.IsSaved() && len(r.sess.Transcript()) > 0
}

// NewChat discards the session and starts a fresh conversation.
func (r *Runner) NewChat() {
	r.sess.New()
	r.carried = nil
	r.model.Configure(r.sess.SystemPrompt(), r.sess.Temperature())
	slog.Info("New chat started")
}

// Rename sets the chat name and returns its cleaned form.
func (r *Runner) Rename(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: name", ErrMissingArgument)
	}
	r.sess.SetName(raw)
	if r.sess.Name() == "" {
		return "", fmt.Errorf("%w: name has no usable characters", ErrMissingArgument)
	}
	return r.sess.Name(), nil
}

// Save persists the session together with its full provider history.
func (r *Runner) Save() (string, error) {
	return r.sess.Save(r.History())
}

// SaveAs names the session and saves it.
func (r *Runner) SaveAs(raw string) (string, error) {
	if _, err := r.Rename(raw); err != nil {
		return "", err
	}
	return r.Save()
}

// Load replaces the session with a saved chat and restores the remote
// conversation from its history. When only the restore fails, the chat is
// still loaded and the returned error wraps models.ErrHistoryRestore; the
// saved turns are kept for the next save either way.
func (r *Runner) Load(name string) error {
	_, history, err := r.sess.Load(name)
	if err != nil {
		return err
	}

	r.carried = nil
	r.model.Configure(r.sess.SystemPrompt(), r.sess.Temperature())
	if len(history) == 0 {
		return nil
	}
	if err := r.model.Restore(history); err != nil {
		slog.Warn("Chat loaded without remote history", "name", name, "error", err)
		r.carried = append(store.History(nil), history...)
		return err
	}
	if !r.model.HistoryLoaded() {
		r.carried = append(store.History(nil), history...)
	}
	return nil
}

// DeleteCurrent removes the saved copy of the session and starts a new chat.
func (r *Runner) DeleteCurrent() (string, error) {
	name := r.sess.Name()
	if name == "" || !r.sess.Store().Exists(name) {
		return "", ErrNotSaved
	}
	msg, err := r.sess.Delete(name)
	if err != nil {
		return "", err
	}
	r.NewChat()
	return msg, nil
}

// Delete removes any saved chat. Deleting the chat that is currently open
// stops it from being written back by autosave.
func (r *Runner) Delete(name string) (string, error) {
	msg, err := r.sess.Delete(name)
	if err != nil {
		return "", err
	}
	if name == r.sess.Name() {
		r.sess.Detach()
	}
	return msg, nil
}

// SetRole changes the system prompt. The conversation so far is carried
// over to the reconfigured model.
func (r *Runner) SetRole(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("%w: role", ErrMissingArgument)
	}
	r.sess.SetSystemPrompt(prompt)
	r.reconfigure()
	return nil
}

// SetTemperature parses and applies a temperature in [0, 1].
func (r *Runner) SetTemperature(raw string) (float64, error) {
	t, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, session.ErrTemperatureRange
	}
	if err := r.sess.SetTemperature(t); err != nil {
		return 0, err
	}
	r.reconfigure()
	return t, nil
}

func (r *Runner) reconfigure() {
	history := r.model.FullHistory()
	r.model.Configure(r.sess.SystemPrompt(), r.sess.Temperature())
	if len(history) == 0 {
		return
	}
	if err := r.model.Restore(history); err != nil {
		slog.Error("Failed to carry history over reconfiguration", "error", err)
		r.carried = append(r.carried, history...)
		return
	}
	if !r.model.HistoryLoaded() {
		r.carried = append(r.carried, history...)
	}
}

// Ask sends text to the model. It performs no session changes so it can run
// while the caller keeps reading session state.
func (r *Runner) Ask(ctx context.Context, text string) models.Reply {
	return r.model.Send(ctx, text)
}

// Commit records an exchange in the transcript. Chats that were saved or
// loaded before are saved again; autosaved reports whether that happened.
// Offline exchanges are added to the history as well, since no model keeps
// them.
func (r *Runner) Commit(text string, reply models.Reply) (autosaved bool, err error) {
	r.sess.AppendMessage(store.RoleUser, text)
	r.sess.AppendMessage(store.RoleModel, reply.Text)
	if errors.Is(reply.Err, models.ErrOffline) {
		r.carried = append(r.carried,
			store.Turn{Role: store.HistoryRoleUser, Parts: []store.Part{{Text: text}}},
			store.Turn{Role: store.HistoryRoleModel, Parts: []store.Part{{Text: reply.Text}}},
		)
	}

	if !r.sess.Persisted() || r.sess.Name() == "" {
		return false, nil
	}
	if _, err := r.Save(); err != nil {
		return false, fmt.Errorf("autosave failed: %w", err)
	}
	return true, nil
}

// Exchange sends text and commits the reply.
func (r *Runner) Exchange(ctx context.Context, text string) (models.Reply, error) {
	reply := r.Ask(ctx, text)
	_, err := r.Commit(text, reply)
	return reply, err
}
