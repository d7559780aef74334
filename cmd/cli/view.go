package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mariozechner/gemini-helper/pkg/models"
	"github.com/mariozechner/gemini-helper/pkg/runner"
)

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.menuView()
	case stateHistory:
		return m.historyView()
	case stateConfirm:
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("CONFIRM"),
			"",
			warningStyle.Render(m.confirm.prompt)+" (y/n)",
		)
	case stateNamePrompt:
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("SAVE CHAT"),
			"",
			m.nameInput.View(),
			"",
			hintStyle.Render("enter save • esc cancel"),
		)
	}
	return m.chatView()
}

func (m model) menuView() string {
	var options []string
	for i, opt := range menuOptions {
		cursor := "  "
		line := fmt.Sprintf("%d. %s", i+1, opt)
		if m.cursor == i {
			cursor = "> "
			line = selectedItemStyle.Render(line)
		}
		options = append(options, cursorStyle.Render(cursor)+line)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("MAIN MENU"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, options...),
		"",
		m.flashView(),
		hintStyle.Render("↑/↓ move • enter select • esc back to chat • ctrl+c quit"),
	)
}

func (m model) historyView() string {
	header := titleStyle.Render("CHAT HISTORY")
	var body string
	if len(m.chats) == 0 {
		body = warningStyle.Render("No chats found with the criteria.")
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left,
			selectedItemStyle.Render(fmt.Sprintf("Chats Found (%d)", len(m.chats))),
			chatsTable(m.visibleChats()),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		hintStyle.Render("Select a chat or type part of the name/role to filter."),
		"",
		m.filter.View(),
		"",
		body,
		m.flashView(),
		hintStyle.Render("↑/↓ move • enter load • ctrl+d delete • ctrl+n new chat • esc menu"),
	)
}

// visibleChats returns the page of chats around the cursor that fits the
// screen, and the cursor position within it.
func (m model) visibleChats() ([]chatRow, int) {
	// Header, hint, filter, table borders and footer.
	room := m.height - 14
	if room < 3 {
		room = 3
	}
	start := 0
	if m.cursor >= room {
		start = m.cursor - room + 1
	}
	end := min(start+room, len(m.chats))
	return numberChats(m.chats)[start:end], m.cursor - start
}

func (m model) flashView() string {
	if m.flash == nil {
		return ""
	}
	return m.flash.render()
}

func (m model) statusView() string {
	sess := m.runner.Session()
	name := sess.Name()
	if name == "" {
		name = "New Chat"
	}
	saved := warningStyle.Render("No")
	if sess.IsSaved() {
		saved = infoStyle.Render("Yes")
	}
	status := fmt.Sprintf("Name: %s | Role: %s | Temp: %g | Saved: %s",
		name, truncate(oneLine(sess.SystemPrompt()), 40), sess.Temperature(), saved)
	if m.runner.Model().HistoryLoaded() {
		status += " | History: restored"
	}
	return statusStyle.Width(m.width).Render(status)
}

func (m model) chatView() string {
	waiting := ""
	if m.waiting {
		waiting = m.spinner.View() + infoStyle.Render(" Waiting for Gemini response...")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("GEMINI HELPER"),
		m.statusView(),
		m.viewport.View(),
		waiting,
		m.textarea.View(),
		hintStyle.Render("enter send • alt+enter newline • pgup/pgdn scroll • #help commands • ctrl+c exit"),
	)
}

// runTUI starts the interactive client, optionally with a saved chat open.
func (c *cli) runTUI(ctx context.Context, chatName string) error {
	a, err := c.newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m := newModel(ctx, a.runner)
	if chatName != "" {
		if m, err = openChat(m, a.runner, chatName); err != nil {
			return err
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("TUI failed", "error", err)
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}

// openChat loads name before the TUI starts. A failed history restore only
// produces a warning inside the chat.
func openChat(m model, r *runner.Runner, name string) (model, error) {
	err := r.Load(name)
	if err != nil && !errors.Is(err, models.ErrHistoryRestore) {
		return m, err
	}
	return m.showLoaded(err), nil
}
