package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"trivia-night/internal/app"
	"trivia-night/internal/domain"
	"trivia-night/internal/infra/remote"
	"trivia-night/internal/invite"
)

// newClient builds a one-shot participant over the gateway. Commands that want
// live updates run their own poller, so background polling is off here.
func (g *globals) newClient() *app.Client {
	return app.NewClient(remote.NewDocumentStore(g.server, nil),
		app.WithLogger(g.logger),
		app.WithPollInterval(0),
	)
}

// roundsFile is the YAML layout accepted by create --rounds and admin set-rounds.
// Points is a pointer so an explicit "points: 0" survives and only an absent key
// falls back to the default weight.
type roundsFile struct {
	Rounds []struct {
		Name      string `yaml:"name"`
		Theme     string `yaml:"theme"`
		Questions []struct {
			Question string `yaml:"question"`
			Answer   string `yaml:"answer"`
			Points   *int   `yaml:"points"`
		} `yaml:"questions"`
	} `yaml:"rounds"`
}

func loadRounds(path string) ([]domain.Round, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rounds %s: %w", path, err)
	}
	var f roundsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rounds %s: %w", path, err)
	}
	rounds := make([]domain.Round, 0, len(f.Rounds))
	for i, r := range f.Rounds {
		round := domain.Round{Name: r.Name, Theme: r.Theme, Questions: make([]domain.Question, 0, len(r.Questions))}
		if round.Name == "" {
			round.Name = domain.NewRound(i + 1).Name
		}
		for _, q := range r.Questions {
			question := domain.NewQuestion()
			question.Question = q.Question
			question.Answer = q.Answer
			if q.Points != nil {
				question.Points = *q.Points
			}
			round.Questions = append(round.Questions, question)
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

func newCreateCmd(g *globals) *cobra.Command {
	var name, roundsPath string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game and print its code and admin link",
		RunE: func(cmd *cobra.Command, args []string) error {
			rounds := domain.DefaultRounds()
			if roundsPath != "" {
				loaded, err := loadRounds(roundsPath)
				if err != nil {
					return err
				}
				rounds = loaded
			}
			client := g.newClient()
			defer client.Close()
			game, err := client.Create(cmd.Context(), name, rounds)
			if err != nil {
				return err
			}
			link, err := invite.URL(g.cfg.Client.InviteBase, client.Link())
			if err != nil {
				return err
			}
			fmt.Fprintf(g.out, "code:  %s\nadmin: %s\n", game.Code, link)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "game name")
	cmd.Flags().StringVar(&roundsPath, "rounds", "", "YAML file with rounds and questions")
	return cmd
}

func newJoinCmd(g *globals) *cobra.Command {
	var code, team string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a game as a team",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := g.newClient()
			defer client.Close()
			game, err := client.JoinPlayer(cmd.Context(), code, team)
			if err != nil {
				return err
			}
			return printJSON(g.out, game.Teams[client.Team()])
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "game code")
	cmd.Flags().StringVar(&team, "team", "", "team name")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

func newSubmitCmd(g *globals) *cobra.Command {
	var code, team string
	var answers []string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one answer per question of the current round",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := g.newClient()
			defer client.Close()
			if _, err := client.JoinPlayer(cmd.Context(), code, team); err != nil {
				return err
			}
			game, err := client.Submit(cmd.Context(), answers)
			if err != nil {
				return err
			}
			fmt.Fprintf(g.out, "submitted %d answers for %s, round %d\n", len(answers), client.Team(), game.CurrentRound+1)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "game code")
	cmd.Flags().StringVar(&team, "team", "", "team name")
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "answer text, repeat once per question in order")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("team")
	return cmd
}

func newAdminCmd(g *globals) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Run the host actions of a game",
	}
	cmd.PersistentFlags().StringVar(&code, "code", "", "game code")
	_ = cmd.MarkPersistentFlagRequired("code")

	// action wraps a host action: join as admin, mutate, print the new state.
	action := func(use, short string, args cobra.PositionalArgs, run func(ctx context.Context, c *app.Client, args []string) (domain.Game, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  args,
			RunE: func(cmd *cobra.Command, args []string) error {
				client := g.newClient()
				defer client.Close()
				if _, err := client.JoinAdmin(cmd.Context(), code); err != nil {
					return err
				}
				game, err := run(cmd.Context(), client, args)
				if err != nil {
					return err
				}
				printSummary(g.out, game)
				return nil
			},
		}
	}

	cmd.AddCommand(
		action("start-round", "Open the current round for answers", cobra.NoArgs,
			func(ctx context.Context, c *app.Client, _ []string) (domain.Game, error) { return c.StartRound(ctx) }),
		action("review", "Close the current round for grading", cobra.NoArgs,
			func(ctx context.Context, c *app.Client, _ []string) (domain.Game, error) { return c.Review(ctx) }),
		action("advance", "Move to the next round or finish the game", cobra.NoArgs,
			func(ctx context.Context, c *app.Client, _ []string) (domain.Game, error) { return c.Advance(ctx) }),
		action("restart", "Rewind to the first round and clear all teams", cobra.NoArgs,
			func(ctx context.Context, c *app.Client, _ []string) (domain.Game, error) { return c.Restart(ctx) }),
		action("remove-team NAME", "Remove a team from the roster", cobra.ExactArgs(1),
			func(ctx context.Context, c *app.Client, args []string) (domain.Game, error) {
				return c.RemoveTeam(ctx, args[0])
			}),
		action("grade TEAM ROUND QUESTION true|false", "Mark an answer right or wrong (round and question count from 1)", cobra.ExactArgs(4),
			func(ctx context.Context, c *app.Client, args []string) (domain.Game, error) {
				round, question, correct, err := parseGradeArgs(args[1:])
				if err != nil {
					return domain.Game{}, err
				}
				return c.Grade(ctx, args[0], round, question, correct)
			}),
		action("set-rounds FILE", "Replace the rounds from a YAML file", cobra.ExactArgs(1),
			func(ctx context.Context, c *app.Client, args []string) (domain.Game, error) {
				rounds, err := loadRounds(args[0])
				if err != nil {
					return domain.Game{}, err
				}
				return c.SaveRounds(ctx, rounds)
			}),
		action("show", "Print the game", cobra.NoArgs,
			func(ctx context.Context, c *app.Client, _ []string) (domain.Game, error) {
				game, _ := c.Snapshot()
				return game, nil
			}),
	)
	return cmd
}

func parseGradeArgs(args []string) (round, question int, correct bool, err error) {
	if round, err = strconv.Atoi(args[0]); err != nil || round < 1 {
		return 0, 0, false, fmt.Errorf("%w: round must be a positive number", domain.ErrInvalidInput)
	}
	if question, err = strconv.Atoi(args[1]); err != nil || question < 1 {
		return 0, 0, false, fmt.Errorf("%w: question must be a positive number", domain.ErrInvalidInput)
	}
	if correct, err = strconv.ParseBool(args[2]); err != nil {
		return 0, 0, false, fmt.Errorf("%w: verdict must be true or false", domain.ErrInvalidInput)
	}
	return round - 1, question - 1, correct, nil
}

func printSummary(w io.Writer, game domain.Game) {
	fmt.Fprintf(w, "%s (%s) status=%s round=%d/%d created=%s\n",
		game.Name, game.Code, game.Status, game.CurrentRound+1, len(game.Rounds), game.Created().UTC().Format(time.RFC3339))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEAM\tSCORES\tTOTAL\tSUBMITTED")
	for _, entry := range domain.Leaderboard(game) {
		submitted := domain.HasSubmittedAll(game, entry.Team, game.CurrentRound)
		fmt.Fprintf(tw, "%s\t%v\t%d\t%t\n", entry.Team, entry.Scores, entry.TotalScore, submitted)
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
