package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/mariozechner/gemini-helper/pkg/models"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

const (
	// LevelTrace is a custom log level for detailed HTTP traffic.
	LevelTrace = slog.Level(-8)
)

// Service implements models.ChatService using the Google Gemini API.
// Without an API key it runs offline: every message gets models.OfflineNotice.
type Service struct {
	client    *genai.Client
	modelName string

	systemPrompt  string
	temperature   float64
	chat          *genai.ChatSession
	historyLoaded bool
}

var _ models.ChatService = (*Service)(nil)

// New creates a Service talking to modelName. An empty apiKey is not an
// error; the returned service is offline.
func New(ctx context.Context, apiKey, modelName, systemPrompt string, temperature float64) (*Service, error) {
	s := &Service{modelName: modelName}

	if apiKey == "" {
		slog.Warn("GEMINI_API_KEY not set, running in offline mode")
		s.Configure(systemPrompt, temperature)
		return s, nil
	}

	httpClient := &http.Client{
		Transport: &loggingTransport{
			base:   http.DefaultTransport,
			apiKey: apiKey,
		},
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("client initialization failed: %w", err)
	}
	s.client = client
	s.Configure(systemPrompt, temperature)
	return s, nil
}

type loggingTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A custom http.Client bypasses the library's own API key injection.
	if t.apiKey != "" && req.Header.Get("x-goog-api-key") == "" && req.URL.Query().Get("key") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("x-goog-api-key", t.apiKey)
	}

	if !slog.Default().Enabled(req.Context(), LevelTrace) {
		return t.base.RoundTrip(req)
	}

	reqDump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		slog.Debug("Failed to dump Gemini request", "error", err)
	} else {
		slog.Log(req.Context(), LevelTrace, "Gemini REST Request", "url", req.URL.Redacted(), "dump", redactKey(string(reqDump), t.apiKey))
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// Streaming bodies are left unread.
	isStream := strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") ||
		strings.Contains(req.URL.Query().Get("alt"), "sse")

	respDump, err := httputil.DumpResponse(resp, !isStream)
	if err != nil {
		slog.Debug("Failed to dump Gemini response", "error", err)
	} else {
		slog.Log(req.Context(), LevelTrace, "Gemini REST Response", "isStream", isStream, "dump", string(respDump))
	}

	return resp, nil
}

func redactKey(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, "REDACTED")
}

// Offline reports whether the service has no remote client.
func (s *Service) Offline() bool { return s.client == nil }

// ModelName returns the model conversations are created with.
func (s *Service) ModelName() string { return s.modelName }

// Close releases resources.
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Configure starts a fresh chat with the given system prompt and temperature.
func (s *Service) Configure(systemPrompt string, temperature float64) {
	s.systemPrompt = systemPrompt
	s.temperature = temperature
	s.historyLoaded = false

	if s.client == nil {
		return
	}

	gm := s.client.GenerativeModel(s.modelName)
	gm.SetTemperature(float32(temperature))
	if systemPrompt != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}
	s.chat = gm.StartChat()

	slog.Debug("Gemini chat configured", "model", s.modelName, "temperature", temperature)
}

// Restore replaces the chat history. System turns are skipped since the
// system prompt is carried by the model configuration.
func (s *Service) Restore(history store.History) error {
	contents, err := toContents(history)
	if err != nil {
		return err
	}
	if s.chat == nil {
		return nil
	}

	s.chat.History = contents
	s.historyLoaded = true
	slog.Debug("Gemini history restored", "turns", len(contents))
	return nil
}

func (s *Service) HistoryLoaded() bool { return s.historyLoaded }

// Send delivers message within the current chat.
func (s *Service) Send(ctx context.Context, message string) models.Reply {
	if s.chat == nil {
		return models.Reply{Text: models.OfflineNotice, Err: models.ErrOffline}
	}

	slog.Debug("Gemini.Send", "model", s.modelName, "historyTurns", len(s.chat.History))
	resp, err := s.chat.SendMessage(ctx, genai.Text(message))
	if err != nil {
		slog.Error("Gemini request failed", "error", err)
		return models.Reply{
			Text: fmt.Sprintf("API Error: %v", err),
			Err:  fmt.Errorf("%w: %w", models.ErrTransport, err),
		}
	}

	text := responseText(resp)
	if text == "" {
		slog.Warn("Gemini returned no text")
		return models.Reply{
			Text: "Unexpected error: the model returned an empty response.",
			Err:  fmt.Errorf("%w: empty response", models.ErrTransport),
		}
	}
	return models.Reply{Text: text}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		// Only the first candidate is part of the chat history.
		break
	}
	return sb.String()
}

// FullHistory returns the chat history as provider turns.
func (s *Service) FullHistory() store.History {
	if s.chat == nil {
		return store.History{}
	}
	return fromContents(s.chat.History)
}

// List returns available models.
func (s *Service) List(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, models.ErrOffline
	}
	iter := s.client.ListModels(ctx)
	var names []string
	for {
		model, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		slog.Debug("Found Gemini model", "name", model.Name)
		names = append(names, model.Name)
	}
	return names, nil
}

func toContents(history store.History) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(history))
	for i, turn := range history {
		if turn.IsSystem() {
			continue
		}

		role := strings.ToLower(turn.Role)
		if role != store.HistoryRoleUser && role != store.HistoryRoleModel {
			return nil, fmt.Errorf("%w: turn %d has unsupported role %q", models.ErrHistoryRestore, i, turn.Role)
		}
		if len(turn.Parts) == 0 {
			return nil, fmt.Errorf("%w: turn %d has no parts", models.ErrHistoryRestore, i)
		}

		parts := make([]genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			parts = append(parts, genai.Text(p.Text))
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents, nil
}

func fromContents(contents []*genai.Content) store.History {
	history := make(store.History, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		var parts []store.Part
		for _, p := range c.Parts {
			txt, ok := p.(genai.Text)
			if !ok {
				slog.Debug("Dropping non-text part from history", "role", c.Role, "type", fmt.Sprintf("%T", p))
				continue
			}
			parts = append(parts, store.Part{Text: string(txt)})
		}
		if len(parts) == 0 {
			continue
		}
		history = append(history, store.Turn{Role: c.Role, Parts: parts})
	}
	return history
}
