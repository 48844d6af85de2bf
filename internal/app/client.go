package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"trivia-night/internal/domain"
)

// View is what a participant is currently looking at.
type View string

const (
	ViewHome   View = "home"
	ViewAdmin  View = "admin"
	ViewPlayer View = "player"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithRand sets the source used to draw game codes.
func WithRand(rnd *rand.Rand) ClientOption {
	return func(c *Client) { c.rnd = rnd }
}

// WithPollInterval sets the refresh interval while in the admin or player
// view. Zero or negative disables background polling.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.interval = d }
}

// WithRepository replaces the document repository built from the store.
func WithRepository(repo GameRepository) ClientOption {
	return func(c *Client) { c.repo = repo }
}

// Client is one participant's view of a game. Every mutation is
// fetch-merge-write-replace: apply a pure transition to the local copy, write
// the whole document, then adopt exactly what was written. Nothing guards
// against concurrent writers; the last write wins.
type Client struct {
	repo     GameRepository
	logger   *slog.Logger
	now      func() time.Time
	interval time.Duration

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu       sync.Mutex
	view     View
	code     string
	team     string
	game     *domain.Game
	link     DeepLink
	stopPoll func()
}

// NewClient builds a client over store. A nil store yields a client whose
// actions fail with domain.ErrNotReady.
func NewClient(store Store, opts ...ClientOption) *Client {
	c := &Client{
		logger:   slog.Default(),
		now:      time.Now,
		interval: DefaultPollInterval,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		view:     ViewHome,
	}
	if store != nil {
		c.repo = NewDocumentRepository(store)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create writes a new lobby game and enters the admin view.
func (c *Client) Create(ctx context.Context, name string, rounds []domain.Round) (domain.Game, error) {
	if c.repo == nil {
		return domain.Game{}, domain.ErrNotReady
	}
	c.rndMu.Lock()
	code := domain.NewCode(c.rnd)
	c.rndMu.Unlock()

	saved, err := c.repo.Save(ctx, domain.NewGame(code, name, rounds, c.now()))
	if err != nil {
		c.logger.Error("create game failed", "code", code, "error", err)
		return domain.Game{}, err
	}
	c.logger.Info("game created", "code", code, "rounds", len(saved.Rounds))
	c.enter(ViewAdmin, saved, "", DeepLink{Code: code, Role: RoleAdmin})
	return saved, nil
}

// JoinPlayer loads the game, adds the team if it is new and writes the
// document back. Joining is allowed in any status.
func (c *Client) JoinPlayer(ctx context.Context, code, team string) (domain.Game, error) {
	if c.repo == nil {
		return domain.Game{}, domain.ErrNotReady
	}
	code = domain.NormalizeCode(code)
	team = strings.TrimSpace(team)
	if code == "" || team == "" {
		return domain.Game{}, fmt.Errorf("%w: game code and team name are required", domain.ErrInvalidInput)
	}

	game, err := c.repo.Load(ctx, code)
	if err != nil {
		c.logger.Warn("join failed", "code", code, "team", team, "error", err)
		return domain.Game{}, err
	}
	saved, err := c.repo.Save(ctx, domain.EnsureTeam(game, team))
	if err != nil {
		c.logger.Error("join write failed", "code", code, "team", team, "error", err)
		return domain.Game{}, err
	}
	c.logger.Info("team joined", "code", code, "team", team)
	c.enter(ViewPlayer, saved, team, DeepLink{Code: code, Team: team, Role: RolePlayer})
	return saved, nil
}

// JoinAdmin loads the game and enters the admin view. Nothing is written.
func (c *Client) JoinAdmin(ctx context.Context, code string) (domain.Game, error) {
	if c.repo == nil {
		return domain.Game{}, domain.ErrNotReady
	}
	code = domain.NormalizeCode(code)
	if code == "" {
		return domain.Game{}, fmt.Errorf("%w: game code is required", domain.ErrInvalidInput)
	}
	game, err := c.repo.Load(ctx, code)
	if err != nil {
		c.logger.Warn("admin join failed", "code", code, "error", err)
		return domain.Game{}, err
	}
	c.enter(ViewAdmin, game, "", DeepLink{Code: code, Role: RoleAdmin})
	return game, nil
}

// AutoJoin performs the join a deep link describes. joined is false when the
// link does not name a complete join. On failure the current link is cleared.
func (c *Client) AutoJoin(ctx context.Context, link DeepLink) (joined bool, err error) {
	switch {
	case link.Code != "" && link.Role == RoleAdmin:
		_, err = c.JoinAdmin(ctx, link.Code)
	case link.Code != "" && link.Role == RolePlayer && link.Team != "":
		_, err = c.JoinPlayer(ctx, link.Code, link.Team)
	default:
		return false, nil
	}
	if err != nil {
		c.mu.Lock()
		c.link = DeepLink{}
		c.mu.Unlock()
		return false, err
	}
	return true, nil
}

// StartRound opens the current round.
func (c *Client) StartRound(ctx context.Context) (domain.Game, error) {
	return c.mutate(ctx, "start round", domain.StartRound)
}

// Review closes the current round for grading.
func (c *Client) Review(ctx context.Context) (domain.Game, error) {
	return c.mutate(ctx, "review", domain.Review)
}

// Advance moves to the next round or completes the game.
func (c *Client) Advance(ctx context.Context) (domain.Game, error) {
	return c.mutate(ctx, "advance", domain.Advance)
}

// Restart rewinds to round 0 and clears the roster.
func (c *Client) Restart(ctx context.Context) (domain.Game, error) {
	return c.mutate(ctx, "restart", func(g domain.Game) (domain.Game, error) {
		return domain.Restart(g), nil
	})
}

// RemoveTeam drops a team from the roster.
func (c *Client) RemoveTeam(ctx context.Context, team string) (domain.Game, error) {
	return c.mutate(ctx, "remove team", func(g domain.Game) (domain.Game, error) {
		return domain.RemoveTeam(g, team), nil
	})
}

// SaveRounds replaces the round list. Edits after the first round has started
// are not blocked, only logged.
func (c *Client) SaveRounds(ctx context.Context, rounds []domain.Round) (domain.Game, error) {
	return c.mutate(ctx, "save rounds", func(g domain.Game) (domain.Game, error) {
		if !domain.RoundsEditable(g) {
			c.logger.Warn("editing rounds after the game started", "code", g.Code, "status", g.Status, "round", g.CurrentRound)
		}
		return domain.ReplaceRounds(g, rounds), nil
	})
}

// Submit sends this client's team answers for the current round, one per question.
// An incomplete set fails with domain.ErrIncompleteSubmission before any write.
func (c *Client) Submit(ctx context.Context, inputs []string) (domain.Game, error) {
	c.mu.Lock()
	team := c.team
	c.mu.Unlock()
	if team == "" {
		return domain.Game{}, fmt.Errorf("%w: join as a team before submitting", domain.ErrInvalidInput)
	}
	return c.mutate(ctx, "submit", func(g domain.Game) (domain.Game, error) {
		return domain.Submit(g, team, inputs, c.now())
	})
}

// Grade records a verdict for one team's answer and recomputes its scores.
func (c *Client) Grade(ctx context.Context, team string, round, question int, correct bool) (domain.Game, error) {
	return c.mutate(ctx, "grade", func(g domain.Game) (domain.Game, error) {
		return domain.Grade(g, team, round, question, correct)
	})
}

// Refresh replaces the local copy with the stored document. A document that
// has disappeared leaves the local copy in place.
func (c *Client) Refresh(ctx context.Context) error {
	if c.repo == nil {
		return domain.ErrNotReady
	}
	c.mu.Lock()
	code := c.code
	c.mu.Unlock()
	if code == "" {
		return nil
	}
	game, err := c.repo.Load(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	c.replace(code, game)
	return nil
}

// Leave returns to the home view and stops polling.
func (c *Client) Leave() {
	c.mu.Lock()
	stop := c.stopPoll
	c.stopPoll = nil
	c.view = ViewHome
	c.code = ""
	c.team = ""
	c.game = nil
	c.link = DeepLink{}
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Close stops background polling.
func (c *Client) Close() {
	c.mu.Lock()
	stop := c.stopPoll
	c.stopPoll = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Snapshot returns a copy of the local game.
func (c *Client) Snapshot() (domain.Game, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.game == nil {
		return domain.Game{}, false
	}
	return c.game.Clone(), true
}

func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Client) Code() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

func (c *Client) Team() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.team
}

// Link is the deep link for the current view, empty after a failed auto-join.
func (c *Client) Link() DeepLink {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link
}

// Leaderboard ranks the teams of the local copy.
func (c *Client) Leaderboard() []domain.LeaderboardEntry {
	g, ok := c.Snapshot()
	if !ok {
		return nil
	}
	return domain.Leaderboard(g)
}

// HasSubmittedAll reports whether team answered every question of round in the local copy.
func (c *Client) HasSubmittedAll(team string, round int) bool {
	g, ok := c.Snapshot()
	if !ok {
		return false
	}
	return domain.HasSubmittedAll(g, team, round)
}

func (c *Client) mutate(ctx context.Context, op string, fn func(domain.Game) (domain.Game, error)) (domain.Game, error) {
	if c.repo == nil {
		return domain.Game{}, domain.ErrNotReady
	}
	local, ok := c.Snapshot()
	if !ok {
		return domain.Game{}, fmt.Errorf("%w: no game joined", domain.ErrNotFound)
	}
	next, err := fn(local)
	if err != nil {
		return domain.Game{}, err
	}
	saved, err := c.repo.Save(ctx, next)
	if err != nil {
		c.logger.Error(op+" failed", "code", local.Code, "error", err)
		return domain.Game{}, err
	}
	c.logger.Debug(op, "code", saved.Code, "status", saved.Status, "round", saved.CurrentRound)
	c.replace(saved.Code, saved)
	return saved, nil
}

// replace adopts game if the client is still on code.
func (c *Client) replace(code string, game domain.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.code != code {
		return
	}
	c.game = &game
}

func (c *Client) enter(view View, game domain.Game, team string, link DeepLink) {
	var stop func()
	if c.interval > 0 {
		poller := NewPoller(c.interval, c.Refresh, c.logger.With("code", game.Code, "view", string(view)))
		stop = poller.Start(context.Background())
	}
	c.mu.Lock()
	prev := c.stopPoll
	c.view = view
	c.code = game.Code
	c.team = team
	c.game = &game
	c.link = link
	c.stopPoll = stop
	c.mu.Unlock()
	if prev != nil {
		prev()
	}
}
