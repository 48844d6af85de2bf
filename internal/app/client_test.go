package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-night/internal/app"
	"trivia-night/internal/domain"
	"trivia-night/internal/infra/memory"
)

var fixedNow = time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)

func TestCreateEntersAdminView(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	admin := newTestClient(store)

	game, err := admin.Create(ctx, "Pub Night", sampleRounds())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(game.Code) != domain.CodeLength || game.Status != domain.StatusLobby || game.CurrentRound != 0 || len(game.Teams) != 0 {
		t.Fatalf("unexpected new game %+v", game)
	}
	if game.CreatedAt != fixedNow.UnixMilli() {
		t.Fatalf("expected createdAt from clock, got %d", game.CreatedAt)
	}
	if admin.View() != app.ViewAdmin || admin.Code() != game.Code {
		t.Fatalf("expected admin view on %s, got %s on %s", game.Code, admin.View(), admin.Code())
	}
	if got := admin.Link(); got != (app.DeepLink{Code: game.Code, Role: app.RoleAdmin}) {
		t.Fatalf("unexpected link %+v", got)
	}
	if _, ok, _ := store.Get(ctx, "game:"+game.Code, true); !ok {
		t.Fatalf("expected document under game:%s", game.Code)
	}
}

func TestJoinPlayerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	admin := newTestClient(store)
	game, _ := admin.Create(ctx, "Pub Night", sampleRounds())

	player := newTestClient(store)
	joined, err := player.JoinPlayer(ctx, strings.ToLower(game.Code), "Foxes")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	foxes := joined.Teams["Foxes"]
	if len(foxes.Scores) != 2 || foxes.TotalScore != 0 || len(foxes.Answers) != 0 {
		t.Fatalf("unexpected team %+v", foxes)
	}
	if player.View() != app.ViewPlayer || player.Team() != "Foxes" || player.Code() != game.Code {
		t.Fatalf("unexpected player state view=%s team=%s code=%s", player.View(), player.Team(), player.Code())
	}

	mustDo(t, func() error { return admin.Refresh(ctx) })
	if _, err := admin.StartRound(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustDo(t, func() error { return player.Refresh(ctx) })
	if _, err := player.Submit(ctx, []string{"4", "Paris"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	mustDo(t, func() error { return admin.Refresh(ctx) })
	if _, err := admin.Grade(ctx, "Foxes", 0, 0, true); err != nil {
		t.Fatalf("grade: %v", err)
	}

	before, _ := admin.Snapshot()
	again := newTestClient(store)
	rejoined, err := again.JoinPlayer(ctx, game.Code, "Foxes")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if !reflect.DeepEqual(before.Teams["Foxes"], rejoined.Teams["Foxes"]) {
		t.Fatalf("rejoin changed team:\nbefore %+v\nafter  %+v", before.Teams["Foxes"], rejoined.Teams["Foxes"])
	}
}

func TestJoinUnknownGame(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(memory.NewDocumentStore())

	if _, err := client.JoinPlayer(ctx, "NOPE00", "Foxes"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.JoinAdmin(ctx, "NOPE00"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.JoinPlayer(ctx, "", "Foxes"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if client.View() != app.ViewHome {
		t.Fatalf("failed join changed view to %s", client.View())
	}
}

func TestAutoJoin(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	admin := newTestClient(store)
	game, _ := admin.Create(ctx, "Pub Night", sampleRounds())

	link, err := app.ParseDeepLink("?code=" + strings.ToLower(game.Code) + "&team=Owls&role=player")
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	player := newTestClient(store)
	joined, err := player.AutoJoin(ctx, link)
	if err != nil || !joined {
		t.Fatalf("auto-join: joined=%v err=%v", joined, err)
	}
	if player.View() != app.ViewPlayer || player.Team() != "Owls" {
		t.Fatalf("unexpected player view %s team %s", player.View(), player.Team())
	}

	host := newTestClient(store)
	if joined, err := host.AutoJoin(ctx, app.DeepLink{Code: game.Code, Role: app.RoleAdmin}); err != nil || !joined {
		t.Fatalf("admin auto-join: joined=%v err=%v", joined, err)
	}
	snap, _ := host.Snapshot()
	if _, ok := snap.Teams["Owls"]; !ok {
		t.Fatalf("admin does not see auto-joined team")
	}

	if joined, err := newTestClient(store).AutoJoin(ctx, app.DeepLink{Code: game.Code, Role: app.RolePlayer}); joined || err != nil {
		t.Fatalf("player link without team should be ignored: joined=%v err=%v", joined, err)
	}

	stale := newTestClient(store)
	if _, err := stale.AutoJoin(ctx, app.DeepLink{Code: "GONE99", Role: app.RoleAdmin}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !stale.Link().IsZero() {
		t.Fatalf("expected link cleared after failed auto-join, got %+v", stale.Link())
	}
}

func TestActionsBeforeStoreIsReady(t *testing.T) {
	ctx := context.Background()
	client := app.NewClient(nil, app.WithPollInterval(0))

	if _, err := client.Create(ctx, "x", sampleRounds()); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("create: expected ErrNotReady, got %v", err)
	}
	if _, err := client.JoinPlayer(ctx, "ABC123", "Foxes"); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("join: expected ErrNotReady, got %v", err)
	}
	if _, err := client.StartRound(ctx); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("start: expected ErrNotReady, got %v", err)
	}
}

func TestRoundScoreAcrossClients(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	admin := newTestClient(store)
	game, _ := admin.Create(ctx, "Pub Night", sampleRounds())

	player := newTestClient(store)
	if _, err := player.JoinPlayer(ctx, game.Code, "Foxes"); err != nil {
		t.Fatalf("join: %v", err)
	}
	mustDo(t, func() error { return admin.Refresh(ctx) })
	if _, err := admin.StartRound(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	mustDo(t, func() error { return player.Refresh(ctx) })
	if _, err := player.Submit(ctx, []string{"4", "Lyon"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !player.HasSubmittedAll("Foxes", 0) {
		t.Fatalf("expected player to see own submission")
	}

	mustDo(t, func() error { return admin.Refresh(ctx) })
	if _, err := admin.Review(ctx); err != nil {
		t.Fatalf("review: %v", err)
	}
	if _, err := admin.Grade(ctx, "Foxes", 0, 0, true); err != nil {
		t.Fatalf("grade q0: %v", err)
	}
	g, err := admin.Grade(ctx, "Foxes", 0, 1, false)
	if err != nil {
		t.Fatalf("grade q1: %v", err)
	}
	if foxes := g.Teams["Foxes"]; foxes.Scores[0] != 10 || foxes.TotalScore != 10 {
		t.Fatalf("expected 10/10, got %v/%d", foxes.Scores, foxes.TotalScore)
	}
	g, _ = admin.Grade(ctx, "Foxes", 0, 1, true)
	if foxes := g.Teams["Foxes"]; foxes.Scores[0] != 30 || foxes.TotalScore != 30 {
		t.Fatalf("expected 30/30, got %v/%d", foxes.Scores, foxes.TotalScore)
	}

	mustDo(t, func() error { return player.Refresh(ctx) })
	lb := player.Leaderboard()
	if len(lb) != 1 || lb[0].Team != "Foxes" || lb[0].TotalScore != 30 {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}
}

func TestIncompleteSubmissionSkipsStore(t *testing.T) {
	ctx := context.Background()
	spy := &spyStore{Store: memory.NewDocumentStore()}
	admin := newTestClient(spy)
	game, _ := admin.Create(ctx, "Pub Night", sampleRounds())
	player := newTestClient(spy)
	_, _ = player.JoinPlayer(ctx, game.Code, "Foxes")

	before := spy.sets.Load()
	if _, err := player.Submit(ctx, []string{"4", " "}); !errors.Is(err, domain.ErrIncompleteSubmission) {
		t.Fatalf("expected ErrIncompleteSubmission, got %v", err)
	}
	if spy.sets.Load() != before {
		t.Fatalf("incomplete submission wrote to the store")
	}
}

func TestLastWriterWinsAcrossPlayers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	admin := newTestClient(store)
	game, _ := admin.Create(ctx, "Pub Night", sampleRounds())

	foxes := newTestClient(store)
	owls := newTestClient(store)
	_, _ = foxes.JoinPlayer(ctx, game.Code, "Foxes")
	_, _ = owls.JoinPlayer(ctx, game.Code, "Owls")
	mustDo(t, func() error { return admin.Refresh(ctx) })
	_, _ = admin.StartRound(ctx)
	mustDo(t, func() error { return foxes.Refresh(ctx) })
	mustDo(t, func() error { return owls.Refresh(ctx) })

	// Both hold the same snapshot; the second write carries no Foxes answers.
	if _, err := foxes.Submit(ctx, []string{"4", "Paris"}); err != nil {
		t.Fatalf("foxes submit: %v", err)
	}
	if _, err := owls.Submit(ctx, []string{"5", "Rome"}); err != nil {
		t.Fatalf("owls submit: %v", err)
	}

	mustDo(t, func() error { return admin.Refresh(ctx) })
	if admin.HasSubmittedAll("Foxes", 0) {
		t.Fatalf("expected Foxes submission to be clobbered by the later whole-document write")
	}
	if !admin.HasSubmittedAll("Owls", 0) {
		t.Fatalf("expected Owls submission to survive")
	}
}

func TestWriteFailureKeepsLocalCopy(t *testing.T) {
	ctx := context.Background()
	spy := &spyStore{Store: memory.NewDocumentStore()}
	admin := newTestClient(spy)
	_, _ = admin.Create(ctx, "Pub Night", sampleRounds())

	spy.setErr = domain.ErrTooLarge
	if _, err := admin.StartRound(ctx); !errors.Is(err, domain.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	spy.setErr = errors.New("connection reset")
	if _, err := admin.StartRound(ctx); !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	local, _ := admin.Snapshot()
	if local.Status != domain.StatusLobby {
		t.Fatalf("failed write changed local status to %s", local.Status)
	}
}

func TestInvalidRoundsAreNeverWritten(t *testing.T) {
	ctx := context.Background()
	spy := &spyStore{Store: memory.NewDocumentStore()}
	admin := newTestClient(spy)
	game, err := admin.Create(ctx, "Pub Night", sampleRounds())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _, _ := spy.Store.Get(ctx, domain.GameKey(game.Code), true)
	writes := spy.sets.Load()

	bad := []domain.Round{{Name: "Broken", Questions: []domain.Question{{Question: "?", Points: -5}}}}
	if _, err := admin.SaveRounds(ctx, bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := spy.sets.Load(); n != writes {
		t.Fatalf("rejected rounds reached the store: %d writes, want %d", n, writes)
	}
	after, ok, _ := spy.Store.Get(ctx, domain.GameKey(game.Code), true)
	if !ok || after.Value != before.Value {
		t.Fatalf("stored document changed after rejected save")
	}

	// The game stays playable for everyone else.
	other := newTestClient(spy)
	if _, err := other.JoinAdmin(ctx, game.Code); err != nil {
		t.Fatalf("join admin after rejected save: %v", err)
	}
	if _, err := other.JoinPlayer(ctx, game.Code, "Owls"); err != nil {
		t.Fatalf("join player after rejected save: %v", err)
	}

	if _, err := admin.Create(ctx, "Broken Night", bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected create with negative points to fail, got %v", err)
	}
}

func TestAdminLifecycleAndRoster(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	admin := newTestClient(store)
	game, _ := admin.Create(ctx, "Pub Night", sampleRounds())
	_, _ = newTestClient(store).JoinPlayer(ctx, game.Code, "Foxes")
	_, _ = newTestClient(store).JoinPlayer(ctx, game.Code, "Owls")
	mustDo(t, func() error { return admin.Refresh(ctx) })

	edited := append(sampleRounds(), domain.NewRound(3))
	g, err := admin.SaveRounds(ctx, edited)
	if err != nil || len(g.Rounds) != 3 {
		t.Fatalf("save rounds: rounds=%d err=%v", len(g.Rounds), err)
	}
	if g, _ = admin.RemoveTeam(ctx, "Owls"); len(g.Teams) != 1 {
		t.Fatalf("expected one team after removal, got %d", len(g.Teams))
	}
	if _, err := admin.RemoveTeam(ctx, "Nobody"); err != nil {
		t.Fatalf("removing unknown team: %v", err)
	}

	for i := 0; i < len(g.Rounds); i++ {
		for _, step := range []func(context.Context) (domain.Game, error){admin.StartRound, admin.Review, admin.Advance} {
			if g, err = step(ctx); err != nil {
				t.Fatalf("round %d: %v", i, err)
			}
		}
	}
	if g.Status != domain.StatusCompleted || g.CurrentRound != 2 {
		t.Fatalf("expected completed at round 2, got %s at %d", g.Status, g.CurrentRound)
	}
	if _, err := admin.StartRound(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	g, err = admin.Restart(ctx)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if g.Status != domain.StatusLobby || g.CurrentRound != 0 || len(g.Teams) != 0 || g.Code != game.Code || len(g.Rounds) != 3 {
		t.Fatalf("unexpected restart state %+v", g)
	}
}

func TestPollingPicksUpRemoteChanges(t *testing.T) {
	ctx := context.Background()
	spy := &spyStore{Store: memory.NewDocumentStore()}
	admin := newTestClient(spy)
	game, _ := admin.Create(ctx, "Pub Night", sampleRounds())

	player := app.NewClient(spy, app.WithLogger(discardLogger()), app.WithPollInterval(10*time.Millisecond))
	defer player.Close()
	if _, err := player.JoinPlayer(ctx, game.Code, "Foxes"); err != nil {
		t.Fatalf("join: %v", err)
	}
	mustDo(t, func() error { return admin.Refresh(ctx) })
	if _, err := admin.StartRound(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, _ := player.Snapshot()
		if snap.Status == domain.StatusActive {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("player never observed the started round")
		}
		time.Sleep(5 * time.Millisecond)
	}

	player.Leave()
	gets := spy.gets.Load()
	time.Sleep(50 * time.Millisecond)
	if spy.gets.Load() != gets {
		t.Fatalf("polling continued after leaving the view")
	}
	if player.View() != app.ViewHome {
		t.Fatalf("expected home view after leave")
	}
}

func TestPollerSwallowsErrors(t *testing.T) {
	var calls atomic.Int32
	poller := app.NewPoller(5*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return domain.ErrBackend
	}, discardLogger())

	stop := poller.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("poller stopped after errors, calls=%d", calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	stop()
	stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Fatalf("poller kept running after stop")
	}
}

func TestDeepLinkEncoding(t *testing.T) {
	link, err := app.ParseDeepLink("code=abc123&team=Night+Owls&role=player")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if link != (app.DeepLink{Code: "ABC123", Team: "Night Owls", Role: app.RolePlayer}) {
		t.Fatalf("unexpected link %+v", link)
	}
	if got := link.Query(); got != "?code=ABC123&role=player&team=Night+Owls" {
		t.Fatalf("unexpected query %q", got)
	}
	admin := app.DeepLink{Code: "ABC123", Team: "ignored", Role: app.RoleAdmin}
	if got := admin.Query(); got != "?code=ABC123&role=admin" {
		t.Fatalf("unexpected admin query %q", got)
	}
	if (app.DeepLink{}).Query() != "" {
		t.Fatalf("empty link should encode to nothing")
	}
}

type spyStore struct {
	app.Store
	gets   atomic.Int32
	sets   atomic.Int32
	mu     sync.Mutex
	setErr error
}

func (s *spyStore) Get(ctx context.Context, key string, shared bool) (app.Record, bool, error) {
	s.gets.Add(1)
	return s.Store.Get(ctx, key, shared)
}

func (s *spyStore) Set(ctx context.Context, key, value string, shared bool) (app.Record, error) {
	s.sets.Add(1)
	s.mu.Lock()
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return app.Record{}, err
	}
	return s.Store.Set(ctx, key, value, shared)
}

func newTestClient(store app.Store) *app.Client {
	return app.NewClient(store,
		app.WithLogger(discardLogger()),
		app.WithClock(func() time.Time { return fixedNow }),
		app.WithRand(rand.New(rand.NewSource(7))),
		app.WithPollInterval(0),
	)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRounds() []domain.Round {
	return []domain.Round{
		{
			Name: "Warmup",
			Questions: []domain.Question{
				{Question: "2+2?", Answer: "4", Points: 10},
				{Question: "Capital of France?", Answer: "Paris", Points: 20},
			},
		},
		{
			Name:  "Music",
			Theme: "80s",
			Questions: []domain.Question{
				{Question: "Who sang Thriller?", Answer: "Michael Jackson", Points: 5},
			},
		},
	}
}

func mustDo(t *testing.T, fn func() error) {
	t.Helper()
	if err := fn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
