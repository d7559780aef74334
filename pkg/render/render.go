// Package render turns chat messages into terminal output. Prose goes through
// glamour, fenced code blocks are highlighted with chroma.
package render

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/mariozechner/gemini-helper/pkg/parsing"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

const (
	DefaultWidth = 80
	CodeStyle    = "monokai"
	CodeFormat   = "terminal256"
)

var (
	UserLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)

	userTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	ModelLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)

	otherLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	codeBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	codeTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Italic(true)

	lineNumberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Renderer formats messages for a terminal of a given width.
type Renderer struct {
	width     int
	md        *glamour.TermRenderer
	style     *chroma.Style
	formatter chroma.Formatter
}

// New returns a renderer wrapping prose at width columns. Widths below 20
// fall back to DefaultWidth.
func New(width int) (*Renderer, error) {
	if width < 20 {
		width = DefaultWidth
	}
	// A standard style avoids terminal queries that leak into input.
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	formatter := formatters.Get(CodeFormat)
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &Renderer{
		width:     width,
		md:        md,
		style:     styles.Get(CodeStyle),
		formatter: formatter,
	}, nil
}

func (r *Renderer) Width() int { return r.width }

// Label returns the styled speaker label for role.
func Label(role store.Role) string {
	switch role {
	case store.RoleUser:
		return UserLabelStyle.Render("USER:")
	case store.RoleModel:
		return ModelLabelStyle.Render("GEMINI:")
	default:
		return otherLabelStyle.Render(string(role) + ":")
	}
}

// Message renders a labelled transcript entry. Model output is treated as
// markdown; user prose is shown as typed. Code blocks are highlighted in both.
func (r *Renderer) Message(m store.Message) string {
	var body string
	if m.Role == store.RoleUser {
		body = r.segments(m.Content, func(text string) string {
			return userTextStyle.Render(text) + "\n"
		})
	} else {
		body = r.Reply(m.Content)
	}
	return Label(m.Role) + "\n" + strings.TrimRight(body, "\n") + "\n"
}

// Transcript renders every message separated by a blank line.
func (r *Renderer) Transcript(msgs []store.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, r.Message(m))
	}
	return strings.Join(parts, "\n")
}

// Reply renders model output segment by segment.
func (r *Renderer) Reply(text string) string {
	return r.segments(text, r.Prose)
}

func (r *Renderer) segments(text string, prose func(string) string) string {
	var sb strings.Builder
	for _, seg := range parsing.ExtractCodeBlocks(text) {
		switch seg.Kind {
		case parsing.SegmentCode:
			sb.WriteString(r.Code(seg.Content, seg.Language))
			sb.WriteString("\n")
		default:
			sb.WriteString(prose(seg.Content))
		}
	}
	return sb.String()
}

// Prose renders markdown text, returning it unchanged if glamour fails.
func (r *Renderer) Prose(text string) string {
	out, err := r.md.Render(text)
	if err != nil {
		slog.Debug("Markdown rendering failed", "error", err)
		return text + "\n"
	}
	return out
}

// Code highlights code in a bordered box with line numbers. Unknown
// languages are guessed from the content, then rendered as plain text.
func (r *Renderer) Code(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	body, err := r.highlight(lexer, strings.TrimRight(code, "\n"))
	if err != nil {
		slog.Debug("Code highlighting failed", "language", language, "error", err)
		body = numberLines(strings.Split(strings.TrimRight(code, "\n"), "\n"))
	}

	title := codeTitleStyle.Render(language)
	return lipgloss.JoinVertical(lipgloss.Left, title, codeBoxStyle.Render(body))
}

func (r *Renderer) highlight(lexer chroma.Lexer, code string) (string, error) {
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, tokens := range chroma.SplitTokensIntoLines(it.Tokens()) {
		// The line break is ours to place, not the formatter's.
		if n := len(tokens); n > 0 {
			tokens[n-1].Value = strings.TrimRight(tokens[n-1].Value, "\n")
		}
		var sb strings.Builder
		if err := r.formatter.Format(&sb, r.style, chroma.Literator(tokens...)); err != nil {
			return "", err
		}
		lines = append(lines, sb.String())
	}
	return numberLines(lines), nil
}

func numberLines(lines []string) string {
	digits := len(fmt.Sprint(len(lines)))
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = lineNumberStyle.Render(fmt.Sprintf("%*d", digits, i+1)) + "  " + l
	}
	return strings.Join(out, "\n")
}
