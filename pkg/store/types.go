package store

import (
	"strings"
	"time"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser  Role = "USER"
	RoleModel Role = "MODEL"
)

// Provider-native roles as they appear in saved history.
const (
	HistoryRoleUser   = "user"
	HistoryRoleModel  = "model"
	HistoryRoleSystem = "system"
)

// RoleFromHistory maps a provider role onto a transcript role.
// Missing roles are treated as model output.
func RoleFromHistory(role string) Role {
	switch strings.ToLower(role) {
	case HistoryRoleUser:
		return RoleUser
	case HistoryRoleModel, "":
		return RoleModel
	default:
		return Role(strings.ToUpper(role))
	}
}

// Message is one entry of the human readable transcript.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
	// Timestamp is ISO-8601; empty for messages rebuilt from history.
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Part is a single content part of a provider turn.
type Part struct {
	Text string `json:"text" yaml:"text"`
}

// Turn is a provider-native conversation turn.
type Turn struct {
	Role  string `json:"role" yaml:"role"`
	Parts []Part `json:"parts" yaml:"parts"`
}

// FirstText returns the text of the first part, or "".
func (t Turn) FirstText() string {
	if len(t.Parts) == 0 {
		return ""
	}
	return t.Parts[0].Text
}

// IsSystem reports whether the turn carries system instructions rather than
// a user visible exchange.
func (t Turn) IsSystem() bool {
	return strings.EqualFold(t.Role, HistoryRoleSystem)
}

// History is the provider's own record of a conversation.
type History []Turn

// Transcript rebuilds the display transcript from the history. System turns
// are dropped and only the first part of each turn is kept.
func (h History) Transcript() []Message {
	msgs := make([]Message, 0, len(h))
	for _, turn := range h {
		if turn.IsSystem() {
			continue
		}
		msgs = append(msgs, Message{
			Role:    RoleFromHistory(turn.Role),
			Content: turn.FirstText(),
		})
	}
	return msgs
}

// Metadata is the structured block stored at the top of a chat file.
type Metadata struct {
	Name         string  `json:"name" yaml:"name"`
	SystemPrompt string  `json:"system_prompt" yaml:"system_prompt"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	SavedAt      string  `json:"saved_at" yaml:"saved_at"`
	History      History `json:"gemini_history" yaml:"gemini_history"`
}

// Record is everything persisted for one chat.
type Record struct {
	Metadata   Metadata
	Transcript []Message

	// Set on decode when the metadata block omitted the field, so callers
	// can substitute their own defaults.
	MissingName         bool
	MissingSystemPrompt bool
	MissingTemperature  bool
}

// ChatInfo describes a saved chat for listings.
type ChatInfo struct {
	// Name is the file stem, which is also the key for Load and Delete.
	Name string
	// Role is the saved system prompt.
	Role     string
	SavedAt  string
	Path     string
	Modified time.Time
}

// TimeFormat is used for saved_at and transcript timestamps.
const TimeFormat = time.RFC3339Nano

// Now returns the current time formatted for persistence.
func Now() string {
	return time.Now().Format(TimeFormat)
}
