package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mariozechner/gemini-helper/pkg/commands"
	"github.com/mariozechner/gemini-helper/pkg/runner"
)

func usage(k commands.Kind) string {
	s, _ := commands.Lookup(k)
	return "Usage: " + s.Usage
}

func (m model) cmdSave(args string) (model, tea.Cmd) {
	if m.runner.Session().Name() == "" {
		m.state = stateNamePrompt
		m.textarea.Blur()
		m.nameInput.Reset()
		m.nameInput.Focus()
		return m, nil
	}
	msg, err := m.runner.Save()
	if err != nil {
		return m.note(noticeError, err.Error()), nil
	}
	return m.note(noticeInfo, msg), nil
}

func (m model) cmdName(args string) (model, tea.Cmd) {
	name, err := m.runner.Rename(args)
	if err != nil {
		return m.note(noticeError, usage(commands.Name)), nil
	}
	return m.note(noticeInfo, fmt.Sprintf("Chat name changed to %s", name)), nil
}

func (m model) cmdMenu(args string) (model, tea.Cmd) {
	m.state = stateMenu
	m.cursor = 0
	m.flash = nil
	m.textarea.Blur()
	return m, nil
}

func (m model) cmdDelete(args string) (model, tea.Cmd) {
	name := m.runner.Session().Name()
	if name == "" || !m.runner.Session().Store().Exists(name) {
		return m.note(noticeError, "You can only delete saved chats. Use #new to discard."), nil
	}
	prompt := fmt.Sprintf("Are you sure you want to delete the chat '%s' from disk?", name)
	return m.ask(prompt, stateChatting, func(m model) (model, tea.Cmd) {
		msg, err := m.runner.DeleteCurrent()
		if errors.Is(err, runner.ErrNotSaved) {
			return m.enterChat().note(noticeError, "You can only delete saved chats. Use #new to discard."), nil
		}
		if err != nil {
			return m.enterChat().note(noticeError, err.Error()), nil
		}
		m = m.newChat()
		return m.note(noticeInfo, msg), nil
	})
}

func (m model) cmdNew(args string) (model, tea.Cmd) {
	return m.confirmDiscard(stateChatting, func(m model) (model, tea.Cmd) {
		return m.newChat(), nil
	})
}

func (m model) cmdHelp(args string) (model, tea.Cmd) {
	return m.push(entry{block: helpTable()}), nil
}

func (m model) cmdChats(args string) (model, tea.Cmd) {
	return m.openHistory()
}

func (m model) cmdRole(args string) (model, tea.Cmd) {
	if err := m.runner.SetRole(args); err != nil {
		return m.note(noticeError, usage(commands.Role)), nil
	}
	return m.note(noticeInfo, fmt.Sprintf("Role updated to: %s", m.runner.Session().SystemPrompt())), nil
}

func (m model) cmdTemp(args string) (model, tea.Cmd) {
	t, err := m.runner.SetTemperature(args)
	if err != nil {
		return m.note(noticeError, "Temperature must be a number between 0.0 and 1.0."), nil
	}
	return m.note(noticeInfo, fmt.Sprintf("Temperature adjusted to: %g", t)), nil
}

func (m model) cmdExit(args string) (model, tea.Cmd) {
	return m.requestExit()
}
