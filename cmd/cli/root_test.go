package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mariozechner/gemini-helper/pkg/models/gemini"
	"github.com/mariozechner/gemini-helper/pkg/store"
	"github.com/mariozechner/gemini-helper/pkg/store/textfile"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string { return ansi.ReplaceAllString(s, "") }

// isolate points every setting at temporary locations and returns the
// chats directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CHATS_DIR", filepath.Join(dir, "chats"))
	t.Setenv("LOG_FILE", filepath.Join(dir, "test.log"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DEFAULT_MODEL", "")
	t.Setenv("DEFAULT_TEMPERATURE", "")
	t.Setenv("DEFAULT_SYSTEM_PROMPT", "")
	t.Setenv("LOG_LEVEL", "")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	return filepath.Join(dir, "chats")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	c := &cli{}
	t.Cleanup(c.close)

	cmd := newRootCmd(c)
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, dir string, names ...string) *textfile.Manager {
	t.Helper()
	mgr, err := textfile.NewManager(dir)
	require.NoError(t, err)
	for _, name := range names {
		require.NoError(t, mgr.Save(store.Record{
			Metadata: store.Metadata{
				Name:         name,
				SystemPrompt: "You are a pirate",
				Temperature:  0.7,
				SavedAt:      "2024-05-01T10:00:00",
				History: store.History{
					{Role: "user", Parts: []store.Part{{Text: "Ahoy?"}}},
					{Role: "model", Parts: []store.Part{{Text: "Arr!"}}},
				},
			},
			Transcript: []store.Message{
				{Role: store.RoleUser, Content: "Ahoy?"},
				{Role: store.RoleModel, Content: "Arr!"},
			},
		}))
	}
	return mgr
}

func TestRootCommand(t *testing.T) {
	isolate(t)

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{"help", []string{"--help"}, "console chat client for Google Gemini"},
		{"version flag", []string{"--version"}, version},
		{"version command", []string{"version"}, "commit:"},
		{"chats help", []string{"chats", "--help"}, "Manage saved chats"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestRootCommand_RejectsArgs(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "stray")
	assert.Error(t, err)
}

func TestChatsList(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "", "chats", "list")
	require.NoError(t, err)
	assert.Contains(t, plain(out), "No saved chats.")

	seed(t, dir, "voyage", "cargo")
	out, err = execute(t, "", "chats", "ls")
	require.NoError(t, err)
	out = plain(out)
	assert.Contains(t, out, "voyage")
	assert.Contains(t, out, "cargo")
	assert.Contains(t, out, "You are a pirate")
	assert.Contains(t, out, "2024-05-01")

	out, err = execute(t, "", "chats", "list", "voy")
	require.NoError(t, err)
	assert.Contains(t, out, "voyage")
	assert.NotContains(t, out, "cargo")
}

func TestChatsShow(t *testing.T) {
	dir := isolate(t)
	seed(t, dir, "voyage")

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "", "chats", "show", "voyage")
		require.NoError(t, err)
		out = plain(out)
		assert.Contains(t, out, "Role: You are a pirate")
		assert.Contains(t, out, "USER:")
		assert.Contains(t, out, "Arr!")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "", "chats", "show", "voyage", "-o", "json")
		require.NoError(t, err)
		var meta store.Metadata
		require.NoError(t, json.Unmarshal([]byte(out), &meta))
		assert.Equal(t, "voyage", meta.Name)
		assert.Equal(t, 0.7, meta.Temperature)
		assert.Len(t, meta.History, 2)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "", "chats", "show", "voyage", "-o", "yaml")
		require.NoError(t, err)
		var meta store.Metadata
		require.NoError(t, yaml.Unmarshal([]byte(out), &meta))
		assert.Equal(t, "You are a pirate", meta.SystemPrompt)
		assert.Equal(t, "Arr!", meta.History[1].FirstText())
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, "", "chats", "show", "voyage", "-o", "xml")
		assert.ErrorIs(t, err, errUnknownFormat)
	})

	t.Run("missing chat", func(t *testing.T) {
		_, err := execute(t, "", "chats", "show", "nowhere")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestChatsDelete(t *testing.T) {
	dir := isolate(t)
	mgr := seed(t, dir, "voyage")

	out, err := execute(t, "n\n", "chats", "delete", "voyage")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.True(t, mgr.Exists("voyage"))

	_, err = execute(t, "y\n", "chats", "rm", "voyage")
	require.NoError(t, err)
	assert.False(t, mgr.Exists("voyage"))

	_, err = execute(t, "", "chats", "delete", "voyage", "--yes")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAsk_OfflineCreatesChat(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "", "ask", "--chat", "Sea Log", "hello", "there")
	require.NoError(t, err)
	assert.Contains(t, plain(out), "Offline Mode")
	assert.Contains(t, plain(out), "Chat 'Sea_Log' saved successfully.")

	mgr, err := textfile.NewManager(dir)
	require.NoError(t, err)
	rec, err := mgr.Load("Sea_Log")
	require.NoError(t, err)
	require.Len(t, rec.Transcript, 2)
	assert.Equal(t, "hello there", rec.Transcript[0].Content)
	assert.Len(t, rec.Metadata.History, 2)

	// The spaced name resolves to the same chat instead of a new one, and
	// the earlier offline exchange survives the autosave.
	_, err = execute(t, "", "ask", "--chat", "Sea Log", "again")
	require.NoError(t, err)
	chats, err := mgr.List()
	require.NoError(t, err)
	assert.Len(t, chats, 1)
	rec, err = mgr.Load("Sea_Log")
	require.NoError(t, err)
	require.Len(t, rec.Transcript, 4)
	assert.Equal(t, "hello there", rec.Transcript[0].Content)
	assert.Equal(t, "again", rec.Transcript[2].Content)
}

func TestModels_Offline(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tt.input), &out, "Sure?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "[y/n]")
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, gemini.LevelTrace, parseLevel("trace"))
	assert.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestTableHelpers(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "añb", truncate("añb", 3))
	assert.Equal(t, "a b c", oneLine("a\n  b\tc"))
	assert.Equal(t, "2024-05-01", savedDate("2024-05-01T10:00:00"))
	assert.Equal(t, "", savedDate(""))

	rows := numberChats([]store.ChatInfo{{Name: "a"}, {Name: "b"}})
	assert.Equal(t, 2, rows[1].id)
}
