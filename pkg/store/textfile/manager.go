// Package textfile stores chats as human readable text files, each starting
// with a tagged JSON metadata block followed by the transcript.
package textfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

// Ext is the extension of chat files.
const Ext = ".txt"

// Manager implements the store.Manager interface using one text file per chat.
type Manager struct {
	dir string
}

var _ store.Manager = (*Manager)(nil)

// NewManager returns a manager for dir, creating the directory if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chats directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

func (m *Manager) Dir() string { return m.dir }

// path resolves the file for a chat name. Names that would escape the
// directory resolve to nothing.
func (m *Manager) path(name string) (string, bool) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return filepath.Join(m.dir, name+Ext), true
}

func (m *Manager) Save(rec store.Record) error {
	name := rec.Metadata.Name
	if name == "" {
		return store.ErrNameRequired
	}
	path, ok := m.path(name)
	if !ok {
		return fmt.Errorf("invalid chat name %q", name)
	}

	// Write next to the target and rename so a failed save never leaves a
	// truncated chat behind.
	tmpPath := filepath.Join(m.dir, "."+name+"."+uuid.New().String()+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create chat file: %w", err)
	}

	if err := Encode(f, rec); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write chat file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write chat file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace chat file: %w", err)
	}

	slog.Debug("Chat file written", "name", name, "path", path, "messages", len(rec.Transcript))
	return nil
}

func (m *Manager) Load(name string) (store.Record, error) {
	path, ok := m.path(name)
	if !ok {
		return store.Record{}, fmt.Errorf("chat '%s': %w", name, store.ErrNotFound)
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return store.Record{}, fmt.Errorf("chat '%s': %w", name, store.ErrNotFound)
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to open chat file: %w", err)
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return store.Record{}, fmt.Errorf("chat '%s': %w", name, err)
	}
	return rec, nil
}

func (m *Manager) Exists(name string) bool {
	path, ok := m.path(name)
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (m *Manager) List() ([]store.ChatInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return []store.ChatInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	infos := []store.ChatInfo{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		path := filepath.Join(m.dir, e.Name())

		info, err := readInfo(path)
		if err != nil {
			// One bad file must not hide the others.
			slog.Debug("Skipping unreadable chat file", "path", path, "error", err)
			continue
		}
		if fi, err := e.Info(); err == nil {
			info.Modified = fi.ModTime()
		}
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].Modified.Equal(infos[j].Modified) {
			return infos[i].Modified.After(infos[j].Modified)
		}
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

func readInfo(path string) (store.ChatInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.ChatInfo{}, err
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return store.ChatInfo{}, err
	}

	savedAt := rec.Metadata.SavedAt
	if savedAt == "" {
		savedAt = "Unknown"
	}
	return store.ChatInfo{
		Name:    strings.TrimSuffix(filepath.Base(path), Ext),
		Role:    rec.Metadata.SystemPrompt,
		SavedAt: savedAt,
		Path:    path,
	}, nil
}

func (m *Manager) Filter(query string) ([]store.ChatInfo, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	q := strings.ToLower(query)
	filtered := []store.ChatInfo{}
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Role), q) {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

func (m *Manager) Delete(name string) (string, error) {
	if !m.Exists(name) {
		return "", fmt.Errorf("chat '%s': %w", name, store.ErrNotFound)
	}
	path, _ := m.path(name)
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("failed to delete chat file: %w", err)
	}
	slog.Info("Chat deleted", "name", name)
	return fmt.Sprintf("Chat '%s' deleted.", name), nil
}
