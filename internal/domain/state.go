package domain

import "fmt"

// Round lifecycle:
//
//	lobby --start--> active --review--> reviewing --advance--> lobby (next round)
//	                                              \-advance--> completed (last round)
//	any --restart--> lobby, round 0, no teams
//
// Transitions never check who invokes them.

// StartRound opens the current round for answers.
func StartRound(g Game) (Game, error) {
	if g.Status != StatusLobby {
		return g, transitionError(g.Status, "start round")
	}
	out := g.Clone()
	out.Status = StatusActive
	return out, nil
}

// Review closes the current round for grading.
func Review(g Game) (Game, error) {
	if g.Status != StatusActive {
		return g, transitionError(g.Status, "review")
	}
	out := g.Clone()
	out.Status = StatusReviewing
	return out, nil
}

// Advance moves to the next round's lobby, or completes the game after the
// last round. Advancing a completed game leaves it completed.
func Advance(g Game) (Game, error) {
	switch g.Status {
	case StatusReviewing:
	case StatusCompleted:
		return g.Clone(), nil
	default:
		return g, transitionError(g.Status, "advance")
	}
	out := g.Clone()
	if out.IsLastRound() {
		out.Status = StatusCompleted
		return out, nil
	}
	out.CurrentRound++
	out.Status = StatusLobby
	return out, nil
}

// Restart rewinds to the first round and clears the roster. Code, name and
// rounds are kept as they are.
func Restart(g Game) Game {
	out := g.Clone()
	out.CurrentRound = 0
	out.Status = StatusLobby
	out.Teams = make(map[string]Team)
	return out
}

// RoundsEditable reports whether structural edits to rounds are allowed,
// which is only before the first round has started.
func RoundsEditable(g Game) bool {
	return g.Status == StatusLobby && g.CurrentRound == 0
}

func transitionError(from Status, action string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, from)
}
