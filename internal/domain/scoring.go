package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Submit records one answer per question of the current round for team.
// Every entry in inputs must be non-blank after trimming and there must be one
// per question, otherwise ErrIncompleteSubmission is returned and g is untouched.
// Answers from other rounds are kept; re-submitting overwrites this round's answers.
func Submit(g Game, team string, inputs []string, now time.Time) (Game, error) {
	round, ok := g.Round(g.CurrentRound)
	if !ok {
		return g, fmt.Errorf("%w: round %d", ErrQuestionNotFound, g.CurrentRound)
	}
	if len(inputs) < len(round.Questions) {
		return g, ErrIncompleteSubmission
	}
	answers := make(map[string]Answer, len(round.Questions))
	for qi := range round.Questions {
		text := strings.TrimSpace(inputs[qi])
		if text == "" {
			return g, ErrIncompleteSubmission
		}
		answers[AnswerKey(g.CurrentRound, qi)] = Answer{
			Answer:    text,
			Timestamp: now.UnixMilli(),
		}
	}

	out := EnsureTeam(g, team)
	t := out.Teams[team]
	for key, a := range answers {
		t.Answers[key] = a
	}
	out.Teams[team] = t
	return out, nil
}

// Grade records a verdict on one team's answer and recomputes that round's
// score and the team total from scratch. Grading never creates an answer.
func Grade(g Game, team string, round, question int, correct bool) (Game, error) {
	r, ok := g.Round(round)
	if !ok || question < 0 || question >= len(r.Questions) {
		return g, fmt.Errorf("%w: %s", ErrQuestionNotFound, AnswerKey(round, question))
	}
	if _, ok := g.Teams[team]; !ok {
		return g, fmt.Errorf("%w: %q", ErrTeamNotFound, team)
	}
	key := AnswerKey(round, question)
	if _, ok := g.Teams[team].Answers[key]; !ok {
		return g, fmt.Errorf("%w: team %q question %s", ErrAnswerNotFound, team, key)
	}

	out := g.Clone()
	t := out.Teams[team]
	a := t.Answers[key]
	verdict := correct
	a.IsCorrect = &verdict
	t.Answers[key] = a

	for len(t.Scores) <= round {
		t.Scores = append(t.Scores, 0)
	}
	t.Scores[round] = RoundScore(out, t, round)
	t.TotalScore = sum(t.Scores)
	out.Teams[team] = t
	return out, nil
}

// RoundScore is the sum of points of every question in round whose answer is graded correct.
func RoundScore(g Game, t Team, round int) int {
	r, ok := g.Round(round)
	if !ok {
		return 0
	}
	score := 0
	for qi, q := range r.Questions {
		if a, ok := t.Answers[AnswerKey(round, qi)]; ok && a.Correct() {
			score += q.Points
		}
	}
	return score
}

// HasSubmittedAll reports whether team has an answer for every question of round,
// graded or not. A missing team or round has not submitted.
func HasSubmittedAll(g Game, team string, round int) bool {
	t, ok := g.Teams[team]
	if !ok || t.Answers == nil {
		return false
	}
	r, ok := g.Round(round)
	if !ok {
		return false
	}
	for qi := range r.Questions {
		if _, ok := t.Answers[AnswerKey(round, qi)]; !ok {
			return false
		}
	}
	return true
}

// Leaderboard orders teams by total score, highest first, then by name.
func Leaderboard(g Game) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(g.Teams))
	for _, t := range g.Teams {
		entries = append(entries, LeaderboardEntry{
			Team:       t.Name,
			Scores:     append([]int(nil), t.Scores...),
			TotalScore: t.TotalScore,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].Team < entries[j].Team
	})
	return entries
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
