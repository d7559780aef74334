package textfile_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariozechner/gemini-helper/pkg/store"
	"github.com/mariozechner/gemini-helper/pkg/store/textfile"
)

func setupManager(t *testing.T) (*textfile.Manager, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "chats")
	m, err := textfile.NewManager(dir)
	require.NoError(t, err)
	return m, dir
}

func sampleRecord(name, prompt string) store.Record {
	return store.Record{
		Metadata: store.Metadata{
			Name:         name,
			SystemPrompt: prompt,
			Temperature:  0.7,
			SavedAt:      "2025-03-01T10:00:00Z",
			History: store.History{
				{Role: "user", Parts: []store.Part{{Text: "Hello"}}},
				{Role: "model", Parts: []store.Part{{Text: "Hi there"}, {Text: "second part"}}},
			},
		},
		Transcript: []store.Message{
			{Role: store.RoleUser, Content: "Hello"},
			{Role: store.RoleModel, Content: "Hi there"},
		},
	}
}

func writeRaw(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestManager_SaveAndLoad(t *testing.T) {
	m, dir := setupManager(t)
	rec := sampleRecord("project", "You are terse.")

	require.NoError(t, m.Save(rec))
	assert.FileExists(t, filepath.Join(dir, "project.txt"))
	assert.True(t, m.Exists("project"))

	got, err := m.Load("project")
	require.NoError(t, err)
	assert.Equal(t, rec.Metadata, got.Metadata)
	assert.Equal(t, rec.Transcript, got.Transcript)
	assert.False(t, got.MissingName || got.MissingSystemPrompt || got.MissingTemperature)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestManager_SaveOverwrites(t *testing.T) {
	m, _ := setupManager(t)
	rec := sampleRecord("project", "first")
	require.NoError(t, m.Save(rec))

	rec.Metadata.SystemPrompt = "second"
	rec.Metadata.History = append(rec.Metadata.History, store.Turn{Role: "user", Parts: []store.Part{{Text: "more"}}})
	require.NoError(t, m.Save(rec))

	got, err := m.Load("project")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Metadata.SystemPrompt)
	assert.Len(t, got.Metadata.History, 3)
}

func TestManager_SaveRequiresName(t *testing.T) {
	m, _ := setupManager(t)
	err := m.Save(sampleRecord("", "x"))
	assert.ErrorIs(t, err, store.ErrNameRequired)
}

func TestManager_LoadNotFound(t *testing.T) {
	m, _ := setupManager(t)

	_, err := m.Load("missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = m.Load("../etc/passwd")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestManager_LoadCorrupt(t *testing.T) {
	m, dir := setupManager(t)
	writeRaw(t, dir, "nomarkers.txt", "[USER] hi\n[MODEL] hello\n")
	writeRaw(t, dir, "badjson.txt", textfile.MetadataStartTag+"\n{not json\n"+textfile.MetadataEndTag+"\n")
	writeRaw(t, dir, "noend.txt", textfile.MetadataStartTag+"\n{}\n")

	_, err := m.Load("nomarkers")
	assert.ErrorIs(t, err, store.ErrCorruptFormat)

	_, err = m.Load("noend")
	assert.ErrorIs(t, err, store.ErrCorruptFormat)

	_, err = m.Load("badjson")
	assert.ErrorIs(t, err, store.ErrCorruptMetadata)
}

func TestManager_ListSkipsCorruptFiles(t *testing.T) {
	m, dir := setupManager(t)
	require.NoError(t, m.Save(sampleRecord("alpha", "pirate captain")))
	require.NoError(t, m.Save(sampleRecord("beta", "Go reviewer")))
	writeRaw(t, dir, "broken.txt", "no metadata here")
	writeRaw(t, dir, "notes.md", "ignored extension")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	names := []string{infos[0].Name, infos[1].Name}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
	for _, info := range infos {
		assert.Equal(t, "2025-03-01T10:00:00Z", info.SavedAt)
		assert.NotEmpty(t, info.Path)
	}

	// The same corrupt file is still diagnosable on direct load.
	_, err = m.Load("broken")
	assert.ErrorIs(t, err, store.ErrCorruptFormat)
}

func TestManager_ListMostRecentFirst(t *testing.T) {
	m, dir := setupManager(t)
	require.NoError(t, m.Save(sampleRecord("old", "a")))
	require.NoError(t, m.Save(sampleRecord("new", "b")))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.txt"), past, past))

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "new", infos[0].Name)
	assert.Equal(t, "old", infos[1].Name)
}

func TestManager_ListUsesFileStemAndDefaults(t *testing.T) {
	m, dir := setupManager(t)
	writeRaw(t, dir, "hand made.txt", textfile.MetadataStartTag+"\n{\"name\": \"other\"}\n"+textfile.MetadataEndTag+"\n")

	infos, err := m.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "hand made", infos[0].Name)
	assert.Equal(t, "", infos[0].Role)
	assert.Equal(t, "Unknown", infos[0].SavedAt)
}

func TestManager_Filter(t *testing.T) {
	m, _ := setupManager(t)
	require.NoError(t, m.Save(sampleRecord("Pirate_Tales", "You are a helpful assistant.")))
	require.NoError(t, m.Save(sampleRecord("groceries", "You talk like a PIRATE.")))
	require.NoError(t, m.Save(sampleRecord("taxes", "You are an accountant.")))

	all, err := m.List()
	require.NoError(t, err)

	unfiltered, err := m.Filter("")
	require.NoError(t, err)
	assert.Equal(t, all, unfiltered)

	pirates, err := m.Filter("pIrAtE")
	require.NoError(t, err)
	require.Len(t, pirates, 2)
	for _, c := range pirates {
		assert.True(t,
			strings.Contains(strings.ToLower(c.Name), "pirate") || strings.Contains(strings.ToLower(c.Role), "pirate"),
			"unexpected match %q", c.Name)
	}

	none, err := m.Filter("astronaut")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestManager_Delete(t *testing.T) {
	m, dir := setupManager(t)
	require.NoError(t, m.Save(sampleRecord("gone", "x")))

	msg, err := m.Delete("gone")
	require.NoError(t, err)
	assert.Equal(t, "Chat 'gone' deleted.", msg)
	assert.NoFileExists(t, filepath.Join(dir, "gone.txt"))
	assert.False(t, m.Exists("gone"))

	_, err = m.Delete("gone")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
