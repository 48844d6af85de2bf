package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trivia-night/internal/infra/memory"
	transport "trivia-night/internal/transport/http"
)

const roundsYAML = `
rounds:
  - name: Warmup
    questions:
      - question: Capital of France?
        answer: Paris
      - question: 2 + 2?
        answer: "4"
        points: 5
`

func TestClientCommandsPlayAGame(t *testing.T) {
	server := newTestGateway(t)
	dir := t.TempDir()
	roundsPath := filepath.Join(dir, "rounds.yaml")
	if err := os.WriteFile(roundsPath, []byte(roundsYAML), 0o600); err != nil {
		t.Fatalf("write rounds: %v", err)
	}

	out := run(t, server.URL, "create", "--name", "Pub Night", "--rounds", roundsPath)
	code := codeFrom(t, out)
	if !strings.Contains(out, "role=admin") {
		t.Fatalf("expected admin link, got %q", out)
	}

	out = run(t, server.URL, "join", "--code", strings.ToLower(code), "--team", "Owls")
	if !strings.Contains(out, `"name": "Owls"`) {
		t.Fatalf("expected team record, got %q", out)
	}

	run(t, server.URL, "admin", "start-round", "--code", code)
	run(t, server.URL, "submit", "--code", code, "--team", "Owls", "--answer", "Paris", "--answer", "5")
	run(t, server.URL, "admin", "review", "--code", code)
	run(t, server.URL, "admin", "grade", "Owls", "1", "1", "true", "--code", code)
	run(t, server.URL, "admin", "grade", "Owls", "1", "2", "false", "--code", code)

	out = run(t, server.URL, "admin", "show", "--code", code)
	if !strings.Contains(out, "status=reviewing") || !strings.Contains(out, "created=") {
		t.Fatalf("expected reviewing status, got %q", out)
	}
	if !strings.Contains(out, "Owls") || !strings.Contains(out, "[10]") {
		t.Fatalf("expected Owls with 10 points, got %q", out)
	}

	out = run(t, server.URL, "admin", "advance", "--code", code)
	if !strings.Contains(out, "status=completed") {
		t.Fatalf("expected completed after last round, got %q", out)
	}
}

func TestSubmitRejectsIncompleteAnswers(t *testing.T) {
	server := newTestGateway(t)
	code := codeFrom(t, run(t, server.URL, "create", "--name", "Quick"))
	run(t, server.URL, "admin", "start-round", "--code", code)

	if _, err := execute(server.URL, "submit", "--code", code, "--team", "Owls", "--answer", "   "); err == nil {
		t.Fatalf("expected blank answer to be rejected")
	}
}

func TestAdminRejectsUnknownGame(t *testing.T) {
	server := newTestGateway(t)
	if _, err := execute(server.URL, "admin", "show", "--code", "NOPE00"); err == nil {
		t.Fatalf("expected error for unknown game")
	}
}

func TestInviteWritesQRCode(t *testing.T) {
	server := newTestGateway(t)
	path := filepath.Join(t.TempDir(), "invite.png")

	out := run(t, server.URL, "invite", "--code", "abc123", "--team", "Owls", "--out", path)
	if strings.TrimSpace(out) != "http://localhost:8080/?code=ABC123&role=player&team=Owls" {
		t.Fatalf("unexpected invite url %q", out)
	}
	png, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("expected png output")
	}

	if _, err := execute(server.URL, "invite", "--code", "ABC123", "--role", "judge"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestLoadRoundsKeepsExplicitZeroPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.yaml")
	file := `
rounds:
  - questions:
      - question: Warm-up, just for fun
        points: 0
      - question: Defaulted
`
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatalf("write rounds: %v", err)
	}
	rounds, err := loadRounds(path)
	if err != nil {
		t.Fatalf("load rounds: %v", err)
	}
	if len(rounds) != 1 || rounds[0].Name != "Round 1" || len(rounds[0].Questions) != 2 {
		t.Fatalf("unexpected rounds %+v", rounds)
	}
	if got := rounds[0].Questions[0].Points; got != 0 {
		t.Fatalf("explicit zero points rewritten to %d", got)
	}
	if got := rounds[0].Questions[1].Points; got != 10 {
		t.Fatalf("expected default 10 points, got %d", got)
	}
}

func TestSetRoundsRejectsNegativePointsWithoutWriting(t *testing.T) {
	server := newTestGateway(t)
	code := codeFrom(t, run(t, server.URL, "create", "--name", "Quick"))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("rounds:\n  - questions:\n      - question: x\n        points: -5\n"), 0o600); err != nil {
		t.Fatalf("write rounds: %v", err)
	}
	if _, err := execute(server.URL, "admin", "set-rounds", path, "--code", code); err == nil {
		t.Fatalf("expected negative points to be rejected")
	}
	out := run(t, server.URL, "admin", "show", "--code", code)
	if !strings.Contains(out, "status=lobby") {
		t.Fatalf("game should still load after rejected rounds, got %q", out)
	}
}

func TestParseGradeArgs(t *testing.T) {
	round, question, correct, err := parseGradeArgs([]string{"2", "3", "true"})
	if err != nil || round != 1 || question != 2 || !correct {
		t.Fatalf("unexpected parse: %d %d %v %v", round, question, correct, err)
	}
	if _, _, _, err := parseGradeArgs([]string{"0", "1", "true"}); err == nil {
		t.Fatalf("expected error for round 0")
	}
	if _, _, _, err := parseGradeArgs([]string{"1", "1", "maybe"}); err == nil {
		t.Fatalf("expected error for bad verdict")
	}
}

func newTestGateway(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httptest.NewServer(transport.NewGateway(memory.NewDocumentStore(), logger, 0).Routes())
	t.Cleanup(server.Close)
	return server
}

func execute(serverURL string, args ...string) (string, error) {
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", "testdata/absent.yaml", "--server", serverURL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func run(t *testing.T, serverURL string, args ...string) string {
	t.Helper()
	out, err := execute(serverURL, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func codeFrom(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "code:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("no code in output %q", out)
	return ""
}
