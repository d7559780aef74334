package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mariozechner/gemini-helper/pkg/config"
	"github.com/mariozechner/gemini-helper/pkg/models/gemini"
	"github.com/mariozechner/gemini-helper/pkg/runner"
	"github.com/mariozechner/gemini-helper/pkg/session"
	"github.com/mariozechner/gemini-helper/pkg/store/textfile"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cli carries state shared by all commands of one invocation.
type cli struct {
	configFile string
	envFile    string

	cfg     *config.Config
	logFile *os.File
}

// app is the wired object graph used by commands that talk to the model.
type app struct {
	store  *textfile.Manager
	model  *gemini.Service
	runner *runner.Runner
}

func newRootCmd(c *cli) *cobra.Command {
	var chatName string

	root := &cobra.Command{
		Use:   "gemini-helper",
		Short: "Console chat client for Google Gemini",
		Long: `A console chat client for Google Gemini.

Conversations are kept as text files in the chats directory: a JSON metadata
block with the model history, followed by a readable transcript. Saved chats
can be searched, resumed and extended.

Without GEMINI_API_KEY the client runs in offline mode.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context(), chatName)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "config file (yaml, toml or json)")
	pf.StringVar(&c.envFile, "env-file", "", "env file to load (default .env)")
	pf.String("chats-dir", config.DefaultChatsDir, "directory holding saved chats")
	pf.String("model", config.DefaultModel, "Gemini model name")
	pf.String("log-level", config.DefaultLogLevel, "log level: TRACE, DEBUG, INFO, WARN or ERROR")

	root.Flags().StringVar(&chatName, "chat", "", "load a saved chat on start")

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.AddCommand(
		newChatsCmd(c),
		newResumeCmd(c),
		newAskCmd(c),
		newModelsCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{
		ConfigFile: c.configFile,
		EnvFile:    c.envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}
	c.cfg = cfg

	f, err := setupLogging(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	c.logFile = f
	slog.Info("Starting", "command", cmd.CommandPath(), "version", version, "chatsDir", cfg.ChatsDir, "model", cfg.Model)
	return nil
}

func (c *cli) close() {
	if c.logFile != nil {
		c.logFile.Close()
	}
}

// newApp wires the store, the Gemini service and a fresh session. A missing
// API key yields an offline service; a key the client rejects is an error.
func (c *cli) newApp(ctx context.Context) (*app, error) {
	mgr, err := textfile.NewManager(c.cfg.ChatsDir)
	if err != nil {
		return nil, err
	}

	svc, err := gemini.New(ctx, c.cfg.APIKey, c.cfg.Model, c.cfg.SystemPrompt, c.cfg.Temperature)
	if err != nil {
		slog.Error("Failed to initialize Gemini model", "error", err)
		return nil, fmt.Errorf("critical error: %w", err)
	}

	sess := session.New(mgr, session.Defaults{
		SystemPrompt: c.cfg.SystemPrompt,
		Temperature:  c.cfg.Temperature,
	})
	return &app{store: mgr, model: svc, runner: runner.New(sess, svc)}, nil
}

func (a *app) Close() error {
	return a.model.Close()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
