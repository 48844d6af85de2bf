package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"trivia-night/internal/app"
	"trivia-night/internal/config"
	"trivia-night/internal/domain"
	"trivia-night/internal/invite"
)

func newWatchCmd(g *globals) *cobra.Command {
	var code, team string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a game and print the leaderboard whenever it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := g.newClient()
			defer client.Close()
			if _, err := client.AutoJoin(ctx, watchLink(code, team)); err != nil {
				return err
			}

			var last string
			show := func(ctx context.Context) error {
				if err := client.Refresh(ctx); err != nil {
					return err
				}
				game, ok := client.Snapshot()
				if !ok {
					return nil
				}
				raw, err := domain.Encode(game)
				if err != nil || raw == last {
					return err
				}
				last = raw
				printSummary(g.out, game)
				if team != "" {
					fmt.Fprintf(g.out, "%s has answered every question of this round: %t\n", client.Team(), client.HasSubmittedAll(client.Team(), game.CurrentRound))
				}
				return nil
			}

			if err := show(ctx); err != nil {
				return err
			}
			interval := config.DurationOr(g.cfg.Client.PollInterval, app.DefaultPollInterval)
			app.NewPoller(interval, show, g.logger).Run(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "game code")
	cmd.Flags().StringVar(&team, "team", "", "follow as this team (joins it if new)")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func watchLink(code, team string) app.DeepLink {
	if team != "" {
		return app.DeepLink{Code: domain.NormalizeCode(code), Team: team, Role: app.RolePlayer}
	}
	return app.DeepLink{Code: domain.NormalizeCode(code), Role: app.RoleAdmin}
}

func newInviteCmd(g *globals) *cobra.Command {
	var code, team, role, out string
	var size int
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Print a join link for a game and optionally write it as a QR code",
		RunE: func(cmd *cobra.Command, args []string) error {
			link := app.DeepLink{Code: domain.NormalizeCode(code), Team: team, Role: app.Role(role)}
			if link.Role != app.RoleAdmin && link.Role != app.RolePlayer {
				return fmt.Errorf("%w: role must be admin or player", domain.ErrInvalidInput)
			}
			target, err := invite.URL(g.cfg.Client.InviteBase, link)
			if err != nil {
				return err
			}
			fmt.Fprintln(g.out, target)
			if out == "" {
				return nil
			}
			png, err := invite.QRCode(target, size)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write qr code: %w", err)
			}
			g.logger.Info("qr code written", "path", out, "bytes", len(png))
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "game code")
	cmd.Flags().StringVar(&team, "team", "", "team name for player links")
	cmd.Flags().StringVar(&role, "role", string(app.RolePlayer), "admin or player")
	cmd.Flags().StringVar(&out, "out", "", "write a PNG QR code to this path")
	cmd.Flags().IntVar(&size, "size", invite.DefaultQRSize, "QR code size in pixels")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
