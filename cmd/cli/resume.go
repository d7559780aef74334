package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/koki-develop/go-fzf"
	"github.com/spf13/cobra"

	"github.com/mariozechner/gemini-helper/pkg/store"
)

func newResumeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resume [name]",
		Short: "Open a saved chat, picking it with a fuzzy finder when no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			} else {
				mgr, err := c.openStore()
				if err != nil {
					return err
				}
				chats, err := mgr.List()
				if err != nil {
					return err
				}
				picked, err := pickChat(chats)
				if err != nil {
					return err
				}
				if picked == nil {
					return nil
				}
				name = picked.Name
			}
			return c.runTUI(cmd.Context(), name)
		},
	}
}

// pickChat presents saved chats in a fuzzy finder. It returns nil when the
// user cancels.
func pickChat(chats []store.ChatInfo) (*store.ChatInfo, error) {
	if len(chats) == 0 {
		return nil, errors.New("no saved chats")
	}

	f, err := fzf.New(
		fzf.WithPrompt("Chats > "),
		fzf.WithInputPosition(fzf.InputPositionTop),
		fzf.WithLimit(1),
	)
	if err != nil {
		return nil, err
	}

	idxs, err := f.Find(
		chats,
		func(i int) string {
			return formatChatLine(chats[i])
		},
		fzf.WithPreviewWindow(func(i, w, h int) string {
			if i < 0 || i >= len(chats) {
				return ""
			}
			return formatChatPreview(chats[i])
		}),
	)
	if errors.Is(err, fzf.ErrAbort) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(idxs) == 0 {
		return nil, nil
	}
	return &chats[idxs[0]], nil
}

func formatChatLine(c store.ChatInfo) string {
	return fmt.Sprintf("%s  %-30s  %s",
		c.Modified.Format("2006-01-02 15:04"),
		c.Name,
		truncate(oneLine(c.Role), roleColumnWidth))
}

func formatChatPreview(c store.ChatInfo) string {
	var b strings.Builder
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "Chat: %s\n", c.Name)
	fmt.Fprintf(&b, "File: %s\n", c.Path)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(&b, "Role:\n%s\n\n", c.Role)
	fmt.Fprintf(&b, "Saved: %s\n", c.SavedAt)
	fmt.Fprintf(&b, "Last modified: %s\n", c.Modified.Format("2006-01-02 15:04:05"))
	return b.String()
}
