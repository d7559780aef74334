package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mariozechner/gemini-helper/pkg/models"
	"github.com/mariozechner/gemini-helper/pkg/parsing"
	"github.com/mariozechner/gemini-helper/pkg/render"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

func newAskCmd(c *cli) *cobra.Command {
	var chatName string
	cmd := &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Send a single message and print the response",
		Long: `Send a single message and print the response.

With --chat the saved chat is loaded first and saved again afterwards, so the
exchange becomes part of it. A chat that does not exist yet is created.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			create := false
			if chatName != "" {
				err := a.runner.Load(chatName)
				if clean := parsing.CleanFilename(chatName); errors.Is(err, store.ErrNotFound) && clean != chatName {
					err = a.runner.Load(clean)
				}
				switch {
				case err == nil:
				case errors.Is(err, models.ErrHistoryRestore):
					fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render(fmt.Sprintf("Warning: %v", err)))
				case errors.Is(err, store.ErrNotFound):
					create = true
				default:
					return err
				}
			}

			prompt := strings.Join(args, " ")
			reply, err := a.runner.Exchange(ctx, prompt)
			if err != nil {
				return err
			}

			r, err := render.New(render.DefaultWidth)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), r.Reply(reply.Text))

			if create {
				msg, err := a.runner.SaveAs(chatName)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), infoStyle.Render(msg))
			}

			if errors.Is(reply.Err, models.ErrTransport) {
				slog.Error("Ask failed", "error", reply.Err)
				return reply.Err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chatName, "chat", "", "saved chat to continue")
	return cmd
}

func newModelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available to the API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.model.List(ctx)
			if errors.Is(err, models.ErrOffline) {
				return errors.New("listing models needs GEMINI_API_KEY")
			}
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
