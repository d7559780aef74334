package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mariozechner/gemini-helper/pkg/commands"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

const roleColumnWidth = 50

var (
	accent = lipgloss.Color("#FF8C00")

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(accent).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	cursorStyle       = lipgloss.NewStyle().Foreground(accent)
	selectedItemStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	hintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	headerCellStyle = lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(0, 1)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
	idCellStyle     = cellStyle.Foreground(lipgloss.Color("3")).Bold(true)
	roleCellStyle   = cellStyle.Foreground(lipgloss.Color("6"))
	savedCellStyle  = cellStyle.Foreground(lipgloss.Color("2"))
)

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeWarning
	noticeError
)

type notice struct {
	kind noticeKind
	text string
}

func (n notice) render() string {
	switch n.kind {
	case noticeWarning:
		return warningStyle.Render(n.text)
	case noticeError:
		return errorStyle.Render("ERROR: " + n.text)
	default:
		return infoStyle.Render(n.text)
	}
}

// helpTable lists every chat command.
func helpTable() string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(accent)).
		Headers("Command", "Description").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			if col == 0 {
				return idCellStyle
			}
			return cellStyle
		})
	for _, s := range commands.All() {
		t.Row(s.Usage, s.Description)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		selectedItemStyle.Render("AVAILABLE COMMANDS"),
		t.String(),
		infoStyle.Render("Type #exit to quit."),
	)
}

// chatRow is a saved chat with the ID shown for it.
type chatRow struct {
	id   int
	info store.ChatInfo
}

func numberChats(chats []store.ChatInfo) []chatRow {
	rows := make([]chatRow, len(chats))
	for i, c := range chats {
		rows[i] = chatRow{id: i + 1, info: c}
	}
	return rows
}

// chatsTable lists saved chats. The row at index selected is highlighted;
// pass -1 for none.
func chatsTable(rows []chatRow, selected int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(accent)).
		Headers("ID", "Chat Name", "Role (Context)", "Saved").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerCellStyle
			case row == selected:
				return cellStyle.Foreground(accent).Bold(true).Reverse(true)
			}
			switch col {
			case 0:
				return idCellStyle
			case 2:
				return roleCellStyle
			case 3:
				return savedCellStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(fmt.Sprint(r.id), r.info.Name, truncate(oneLine(r.info.Role), roleColumnWidth), savedDate(r.info.SavedAt))
	}
	return t.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// savedDate keeps the date part of an ISO-8601 timestamp.
func savedDate(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}
