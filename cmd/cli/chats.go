package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mariozechner/gemini-helper/pkg/render"
	"github.com/mariozechner/gemini-helper/pkg/store"
	"github.com/mariozechner/gemini-helper/pkg/store/textfile"
)

// errUnknownFormat is returned for unsupported --output values.
var errUnknownFormat = errors.New("unknown output format")

func newChatsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Manage saved chats",
	}
	cmd.AddCommand(
		newChatsListCmd(c),
		newChatsShowCmd(c),
		newChatsDeleteCmd(c),
	)
	return cmd
}

func (c *cli) openStore() (*textfile.Manager, error) {
	return textfile.NewManager(c.cfg.ChatsDir)
}

func newChatsListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "list [query]",
		Aliases: []string{"ls"},
		Short:   "List saved chats, optionally filtered by name or role",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.openStore()
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			chats, err := mgr.Filter(query)
			if err != nil {
				return err
			}
			return printChats(cmd.OutOrStdout(), chats)
		},
	}
}

func printChats(w io.Writer, chats []store.ChatInfo) error {
	if len(chats) == 0 {
		_, err := fmt.Fprintln(w, warningStyle.Render("No saved chats."))
		return err
	}
	_, err := fmt.Fprintln(w, chatsTable(numberChats(chats), -1))
	return err
}

func newChatsShowCmd(c *cli) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a saved chat",
		Long: `Show a saved chat.

The text format renders the transcript. The json and yaml formats print the
metadata block, including the model history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.openStore()
			if err != nil {
				return err
			}
			rec, err := mgr.Load(args[0])
			if err != nil {
				return err
			}
			return writeRecord(cmd.OutOrStdout(), rec, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func writeRecord(w io.Writer, rec store.Record, format string) error {
	switch strings.ToLower(format) {
	case "text":
		r, err := render.New(render.DefaultWidth)
		if err != nil {
			return err
		}
		bw := bufio.NewWriter(w)
		fmt.Fprintln(bw, titleStyle.Render(rec.Metadata.Name))
		fmt.Fprintf(bw, "Role: %s\nTemperature: %g\nSaved: %s\n\n",
			rec.Metadata.SystemPrompt, rec.Metadata.Temperature, rec.Metadata.SavedAt)
		fmt.Fprint(bw, r.Transcript(rec.Metadata.History.Transcript()))
		return bw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(rec.Metadata)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec.Metadata); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

func newChatsDeleteCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved chat",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.openStore()
			if err != nil {
				return err
			}
			name := args[0]
			if !mgr.Exists(name) {
				return fmt.Errorf("chat '%s': %w", name, store.ErrNotFound)
			}
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Are you sure you want to delete '%s'?", name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			msg, err := mgr.Delete(name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), infoStyle.Render(msg))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

// confirm asks a y/n question on w and reads the answer from r.
func confirm(r io.Reader, w io.Writer, question string) (bool, error) {
	fmt.Fprintf(w, "%s [y/n]: ", warningStyle.Render(question))
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
