package domain

import (
	"strconv"
	"time"
)

// Status is the round lifecycle state of a game.
type Status string

const (
	StatusLobby     Status = "lobby"
	StatusActive    Status = "active"
	StatusReviewing Status = "reviewing"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusLobby, StatusActive, StatusReviewing, StatusCompleted:
		return true
	}
	return false
}

// DefaultPoints is the weight given to a freshly added question.
const DefaultPoints = 10

// Question is a single prompt with its canonical answer. Answer is shown to the
// host for manual grading and is never matched against player input.
type Question struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
	Points   int    `json:"points" yaml:"points"`
}

// Round is an ordered group of questions.
type Round struct {
	Name      string     `json:"name" yaml:"name"`
	Theme     string     `json:"theme" yaml:"theme"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Answer is one submitted response. IsCorrect stays nil until graded.
type Answer struct {
	Answer    string `json:"answer"`
	Timestamp int64  `json:"timestamp"` // unix millis
	IsCorrect *bool  `json:"isCorrect,omitempty"`
}

// Graded reports whether a verdict has been recorded.
func (a Answer) Graded() bool {
	return a.IsCorrect != nil
}

// Correct reports whether the answer has been graded true.
func (a Answer) Correct() bool {
	return a.IsCorrect != nil && *a.IsCorrect
}

// Team is a participant group. Scores holds one total per round and
// TotalScore is always their sum.
type Team struct {
	Name       string            `json:"name"`
	Scores     []int             `json:"scores"`
	Answers    map[string]Answer `json:"answers"`
	TotalScore int               `json:"totalScore"`
}

// Game is the whole shared document for one game code.
type Game struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Rounds       []Round         `json:"rounds"`
	CurrentRound int             `json:"currentRound"`
	Status       Status          `json:"status"`
	Teams        map[string]Team `json:"teams"`
	CreatedAt    int64           `json:"createdAt"` // unix millis
}

// NewGame builds a game in the lobby with no teams.
func NewGame(code, name string, rounds []Round, now time.Time) Game {
	return Game{
		Code:         code,
		Name:         name,
		Rounds:       cloneRounds(rounds),
		CurrentRound: 0,
		Status:       StatusLobby,
		Teams:        make(map[string]Team),
		CreatedAt:    now.UnixMilli(),
	}
}

// Created returns CreatedAt as a time.
func (g Game) Created() time.Time {
	return time.UnixMilli(g.CreatedAt)
}

// Round returns the round at index i.
func (g Game) Round(i int) (Round, bool) {
	if i < 0 || i >= len(g.Rounds) {
		return Round{}, false
	}
	return g.Rounds[i], true
}

// IsLastRound reports whether the current round is the final one.
func (g Game) IsLastRound() bool {
	return g.CurrentRound >= len(g.Rounds)-1
}

// Clone returns a deep copy so that pure transitions never alias the caller's maps.
func (g Game) Clone() Game {
	out := g
	out.Rounds = cloneRounds(g.Rounds)
	out.Teams = make(map[string]Team, len(g.Teams))
	for name, team := range g.Teams {
		out.Teams[name] = team.clone()
	}
	return out
}

func (t Team) clone() Team {
	out := t
	if t.Scores != nil {
		out.Scores = append([]int(nil), t.Scores...)
	}
	out.Answers = make(map[string]Answer, len(t.Answers))
	for k, a := range t.Answers {
		if a.IsCorrect != nil {
			v := *a.IsCorrect
			a.IsCorrect = &v
		}
		out.Answers[k] = a
	}
	return out
}

func cloneRounds(rounds []Round) []Round {
	if rounds == nil {
		return []Round{}
	}
	out := make([]Round, len(rounds))
	for i, r := range rounds {
		out[i] = r
		out[i].Questions = append([]Question{}, r.Questions...)
	}
	return out
}

// NewQuestion returns a blank question with the default weight.
func NewQuestion() Question {
	return Question{Points: DefaultPoints}
}

// NewRound returns a blank round named after its 1-based position.
func NewRound(position int) Round {
	return Round{
		Name:      "Round " + strconv.Itoa(position),
		Questions: []Question{NewQuestion()},
	}
}

// DefaultRounds is the template offered when a host has not written any rounds yet.
func DefaultRounds() []Round {
	return []Round{NewRound(1)}
}

// LeaderboardEntry is a team's standing.
type LeaderboardEntry struct {
	Team       string `json:"team"`
	Scores     []int  `json:"scores"`
	TotalScore int    `json:"totalScore"`
}
