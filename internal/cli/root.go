package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"trivia-night/internal/config"
)

// globals is shared by every subcommand; PersistentPreRunE fills cfg and logger.
type globals struct {
	configPath string
	server     string

	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}
	g := &globals{out: os.Stdout}

	cmd := &cobra.Command{
		Use:          "trivia-night",
		Short:        "Multiplayer trivia night over a shared document store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&g.configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&g.server, "server", "", "gateway URL for client commands (default from config)")
	cmd.SetOut(g.out)

	cmd.AddCommand(NewStartCmd(g))
	cmd.AddCommand(NewMigrateCmd(g))
	cmd.AddCommand(newCreateCmd(g))
	cmd.AddCommand(newJoinCmd(g))
	cmd.AddCommand(newSubmitCmd(g))
	cmd.AddCommand(newAdminCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newInviteCmd(g))
	return cmd
}

func (g *globals) load(cmd *cobra.Command) error {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	g.cfg = cfg
	if g.server == "" {
		g.server = cfg.Client.ServerURL
	}
	g.logger = newLogger(cmd.ErrOrStderr(), cfg.Log)
	g.out = cmd.OutOrStdout()
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
