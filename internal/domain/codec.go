package domain

import (
	"encoding/json"
	"fmt"
)

// MaxDocumentSize is the default ceiling on an encoded game document, in characters.
const MaxDocumentSize = 1_000_000

// Encode serializes a game to its JSON wire form.
func Encode(g Game) (string, error) {
	if g.Teams == nil {
		g.Teams = map[string]Team{}
	}
	if g.Rounds == nil {
		g.Rounds = []Round{}
	}
	data, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("%w: encode game %s: %w", ErrBackend, g.Code, err)
	}
	return string(data), nil
}

// Decode parses and validates a stored document. Malformed documents are
// reported as ErrBackend.
func Decode(raw string) (Game, error) {
	var g Game
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return Game{}, fmt.Errorf("%w: decode game: %w", ErrBackend, err)
	}
	if err := Validate(g); err != nil {
		return Game{}, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	if g.Teams == nil {
		g.Teams = make(map[string]Team)
	}
	if g.Rounds == nil {
		g.Rounds = []Round{}
	}
	for name, team := range g.Teams {
		if team.Answers == nil {
			team.Answers = make(map[string]Answer)
			g.Teams[name] = team
		}
	}
	return g, nil
}

// Validate checks the structural invariants a decoded document must satisfy.
// Score totals are not checked: they are recomputed on every grade.
func Validate(g Game) error {
	if g.Code == "" {
		return fmt.Errorf("game has no code")
	}
	if !g.Status.Valid() {
		return fmt.Errorf("game %s: unknown status %q", g.Code, g.Status)
	}
	if len(g.Rounds) == 0 {
		if g.CurrentRound != 0 {
			return fmt.Errorf("game %s: current round %d with no rounds", g.Code, g.CurrentRound)
		}
	} else if g.CurrentRound < 0 || g.CurrentRound >= len(g.Rounds) {
		return fmt.Errorf("game %s: current round %d out of range [0,%d)", g.Code, g.CurrentRound, len(g.Rounds))
	}
	for ri, r := range g.Rounds {
		for qi, q := range r.Questions {
			if q.Points < 0 {
				return fmt.Errorf("game %s: question %s has negative points", g.Code, AnswerKey(ri, qi))
			}
		}
	}
	for name, team := range g.Teams {
		if team.Name != name {
			return fmt.Errorf("game %s: team key %q does not match name %q", g.Code, name, team.Name)
		}
		for key := range team.Answers {
			if _, _, err := ParseAnswerKey(key); err != nil {
				return fmt.Errorf("game %s: team %q: %w", g.Code, name, err)
			}
		}
	}
	return nil
}
