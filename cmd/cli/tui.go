package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mariozechner/gemini-helper/pkg/commands"
	"github.com/mariozechner/gemini-helper/pkg/models"
	"github.com/mariozechner/gemini-helper/pkg/render"
	"github.com/mariozechner/gemini-helper/pkg/runner"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

type state int

const (
	stateMenu state = iota
	stateHistory
	stateChatting
	stateNamePrompt
	stateConfirm
)

var menuOptions = []string{"New Chat", "Chat History (with search)", "Exit application"}

// replyMsg carries the outcome of a remote call back into the update loop.
type replyMsg struct {
	text  string
	reply models.Reply
}

// entry is one block of the chat view: a message, a notice or a
// preformatted block.
type entry struct {
	msg      *store.Message
	notice   *notice
	block    string
	rendered string
}

type confirmation struct {
	prompt string
	yes    func(m model) (model, tea.Cmd)
	back   state
}

type handler func(m model, args string) (model, tea.Cmd)

type model struct {
	ctx      context.Context
	runner   *runner.Runner
	renderer *render.Renderer
	handlers map[commands.Kind]handler

	state   state
	cursor  int
	flash   *notice
	confirm confirmation
	width   int
	height  int

	// History
	filter textinput.Model
	chats  []store.ChatInfo

	// Chat
	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	nameInput textinput.Model
	entries   []entry
	waiting   bool
}

func newModel(ctx context.Context, r *runner.Runner) model {
	ta := textarea.New()
	ta.Placeholder = "Send a message or #help..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetWidth(render.DefaultWidth)
	ta.SetHeight(3)
	// Enter sends; alt+enter breaks the line.
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false

	filter := textinput.New()
	filter.Placeholder = "type part of a name or role"
	filter.Prompt = "Search/Filter: "

	name := textinput.New()
	name.Placeholder = "my_project"
	name.Prompt = "Enter the name to save the chat: "
	name.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = infoStyle

	vp := viewport.New(render.DefaultWidth, 20)

	rd, err := render.New(render.DefaultWidth)
	if err != nil {
		slog.Error("Failed to create renderer", "error", err)
	}

	m := model{
		ctx:       ctx,
		runner:    r,
		renderer:  rd,
		state:     stateMenu,
		filter:    filter,
		viewport:  vp,
		textarea:  ta,
		spinner:   sp,
		nameInput: name,
	}
	m.handlers = map[commands.Kind]handler{
		commands.Save:   model.cmdSave,
		commands.Name:   model.cmdName,
		commands.Menu:   model.cmdMenu,
		commands.Delete: model.cmdDelete,
		commands.New:    model.cmdNew,
		commands.Help:   model.cmdHelp,
		commands.Chats:  model.cmdChats,
		commands.Role:   model.cmdRole,
		commands.Temp:   model.cmdTemp,
		commands.Exit:   model.cmdExit,
	}
	return m
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		return m.receive(msg)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.state == stateConfirm {
				return m, tea.Quit
			}
			slog.Debug("Interruption detected")
			return m.requestExit()
		}
		switch m.state {
		case stateMenu:
			return m.updateMenu(msg)
		case stateHistory:
			return m.updateHistory(msg)
		case stateNamePrompt:
			return m.updateNamePrompt(msg)
		case stateConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateChat(msg)
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.filter, cmd = m.filter.Update(msg)
	cmds = append(cmds, cmd)
	m.nameInput, cmd = m.nameInput.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) resize(width, height int) model {
	m.width, m.height = width, height

	m.textarea.SetWidth(width)
	m.filter.Width = width - lipgloss.Width(m.filter.Prompt) - 2
	m.nameInput.Width = width - lipgloss.Width(m.nameInput.Prompt) - 2

	m.viewport.Width = width
	// Title, status bar, spinner line, input and hint.
	m.viewport.Height = height - m.textarea.Height() - 5
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}

	if rd, err := render.New(width); err == nil {
		m.renderer = rd
		for i := range m.entries {
			m.entries[i].rendered = ""
		}
	}
	return m.refresh()
}

// Menu

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = nil
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuOptions)-1 {
			m.cursor++
		}
	case "1", "2", "3":
		m.cursor = int(msg.String()[0] - '1')
		return m.selectMenu()
	case "enter":
		return m.selectMenu()
	case "esc":
		return m.enterChat(), nil
	}
	return m, nil
}

func (m model) selectMenu() (tea.Model, tea.Cmd) {
	switch m.cursor {
	case 0:
		return m.confirmDiscard(stateMenu, func(m model) (model, tea.Cmd) {
			return m.newChat(), nil
		})
	case 1:
		return m.openHistory()
	default:
		return m.requestExit()
	}
}

// History

func (m model) openHistory() (model, tea.Cmd) {
	m.state = stateHistory
	m.cursor = 0
	m.filter.SetValue("")
	m.filter.Focus()
	m.textarea.Blur()
	return m.refreshChats(), textinput.Blink
}

func (m model) refreshChats() model {
	chats, err := m.runner.Session().Filter(m.filter.Value())
	if err != nil {
		m.flash = &notice{kind: noticeError, text: err.Error()}
		chats = nil
	}
	m.chats = chats
	if m.cursor >= len(m.chats) {
		m.cursor = max(len(m.chats)-1, 0)
	}
	return m
}

func (m model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.flash = nil
		m.state = stateMenu
		m.cursor = 0
		return m, nil
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.chats)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		if len(m.chats) == 0 {
			return m, nil
		}
		name := m.chats[m.cursor].Name
		return m.confirmDiscard(stateHistory, func(m model) (model, tea.Cmd) {
			return m.loadChat(name)
		})
	case "ctrl+d":
		if len(m.chats) == 0 {
			return m, nil
		}
		name := m.chats[m.cursor].Name
		return m.ask(fmt.Sprintf("Are you sure you want to delete '%s'?", name), stateHistory, func(m model) (model, tea.Cmd) {
			msg, err := m.runner.Delete(name)
			if err != nil {
				m.flash = &notice{kind: noticeError, text: err.Error()}
			} else {
				m.flash = &notice{kind: noticeInfo, text: msg}
			}
			return m.leaveTo(stateHistory).refreshChats(), nil
		})
	case "ctrl+n":
		return m.confirmDiscard(stateHistory, func(m model) (model, tea.Cmd) {
			return m.newChat(), nil
		})
	}

	m.flash = nil
	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.cursor = 0
		m = m.refreshChats()
	}
	return m, cmd
}

// Chat

func (m model) enterChat() model {
	m.state = stateChatting
	m.flash = nil
	m.filter.Blur()
	m.textarea.Focus()
	return m.refresh()
}

func (m model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if m.waiting {
			return m, nil
		}
		return m.submit()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return m, nil
	}
	m.textarea.Reset()

	if cmd, ok := commands.Parse(text); ok {
		slog.Debug("Command", "kind", cmd.Kind, "args", cmd.Args)
		return m.handlers[cmd.Kind](m, cmd.Args)
	}
	return m.send(text)
}

func (m model) send(text string) (model, tea.Cmd) {
	m.waiting = true
	m = m.push(entry{msg: &store.Message{Role: store.RoleUser, Content: text}})

	r, ctx := m.runner, m.ctx
	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return replyMsg{text: text, reply: r.Ask(ctx, text)}
		},
	)
}

func (m model) receive(msg replyMsg) (tea.Model, tea.Cmd) {
	m.waiting = false
	m = m.push(entry{msg: &store.Message{Role: store.RoleModel, Content: msg.reply.Text}})

	if _, err := m.runner.Commit(msg.text, msg.reply); err != nil {
		slog.Error("Autosave failed", "error", err)
		m = m.note(noticeError, err.Error())
	}
	return m, nil
}

func (m model) newChat() model {
	m.runner.NewChat()
	m.entries = nil
	m = m.enterChat()
	return m.note(noticeInfo, "--- New Conversation Started! ---")
}

func (m model) loadChat(name string) (model, tea.Cmd) {
	err := m.runner.Load(name)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrHistoryRestore):
		// The transcript is usable even without the remote history.
	case errors.Is(err, store.ErrNotFound):
		return m.fail(stateHistory, fmt.Sprintf("Chat '%s' does not exist.", name)), nil
	default:
		return m.fail(stateHistory, fmt.Sprintf("loading chat: %v", err)), nil
	}

	return m.showLoaded(err), nil
}

// showLoaded replaces the chat view with the loaded session. restoreErr is
// reported when the model history could not be restored.
func (m model) showLoaded(restoreErr error) model {
	m.entries = nil
	m = m.note(noticeInfo, fmt.Sprintf("--- Conversation '%s' Loaded ---", m.runner.Session().Name()))
	if restoreErr != nil {
		m = m.note(noticeWarning, fmt.Sprintf("Warning: %v. Continuing without model history.", restoreErr))
	}
	for _, msg := range m.runner.Session().Transcript() {
		m.entries = append(m.entries, entry{msg: &msg})
	}
	return m.enterChat()
}

// fail reports text in back, or in the chat view when back is not a list.
func (m model) fail(back state, text string) model {
	if back == stateHistory {
		m.state = stateHistory
		m.flash = &notice{kind: noticeError, text: text}
		return m
	}
	return m.note(noticeError, text)
}

// Confirmation and exit

func (m model) ask(prompt string, back state, yes func(m model) (model, tea.Cmd)) (model, tea.Cmd) {
	m.confirm = confirmation{prompt: prompt, yes: yes, back: back}
	m.state = stateConfirm
	m.textarea.Blur()
	m.filter.Blur()
	return m, nil
}

// confirmDiscard runs next directly, or after confirmation when the chat has
// unsaved messages.
func (m model) confirmDiscard(back state, next func(m model) (model, tea.Cmd)) (model, tea.Cmd) {
	if !m.runner.Dirty() {
		return next(m)
	}
	return m.ask("Warning: Chat is not saved. Do you want to discard it?", back, next)
}

func (m model) requestExit() (model, tea.Cmd) {
	if !m.runner.Dirty() {
		return m, tea.Quit
	}
	back := m.state
	if back == stateConfirm || back == stateNamePrompt {
		back = stateChatting
	}
	return m.ask("Warning: Chat is not saved. Do you want to discard it and exit?", back, func(m model) (model, tea.Cmd) {
		return m, tea.Quit
	})
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		next := m.confirm.yes
		m.confirm = confirmation{}
		return next(m)
	case "n", "N", "esc":
		return m.leaveTo(m.confirm.back), nil
	}
	return m, nil
}

func (m model) leaveTo(s state) model {
	switch s {
	case stateChatting:
		return m.enterChat()
	case stateHistory:
		m.state = stateHistory
		m.filter.Focus()
		return m
	default:
		m.state = s
		return m
	}
}

// Name prompt

func (m model) updateNamePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.enterChat(), nil
	case tea.KeyEnter:
		raw := m.nameInput.Value()
		m.nameInput.Reset()
		m = m.enterChat()

		saved, err := m.runner.SaveAs(raw)
		switch {
		case errors.Is(err, runner.ErrMissingArgument):
			return m.note(noticeError, "Name not specified."), nil
		case err != nil:
			return m.note(noticeError, err.Error()), nil
		}
		return m.note(noticeInfo, saved), nil
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

// Chat view content

func (m model) push(e entry) model {
	m.entries = append(m.entries, e)
	return m.refresh()
}

func (m model) note(kind noticeKind, text string) model {
	n := notice{kind: kind, text: text}
	m.flash = &n
	return m.push(entry{notice: &n})
}

// refresh renders pending entries into the viewport and scrolls to the end.
func (m model) refresh() model {
	entries := make([]entry, len(m.entries))
	copy(entries, m.entries)

	blocks := make([]string, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.rendered == "" {
			switch {
			case e.block != "":
				e.rendered = e.block
			case e.notice != nil:
				e.rendered = e.notice.render()
			case e.msg != nil && m.renderer != nil:
				e.rendered = m.renderer.Message(*e.msg)
			case e.msg != nil:
				e.rendered = string(e.msg.Role) + ": " + e.msg.Content
			}
		}
		blocks = append(blocks, e.rendered)
	}
	m.entries = entries
	m.viewport.SetContent(strings.Join(blocks, "\n"))
	m.viewport.GotoBottom()
	return m
}
