package domain

// EnsureTeam adds team with zeroed scores for every current round if it is not
// already on the roster. An existing team is returned untouched.
func EnsureTeam(g Game, team string) Game {
	out := g.Clone()
	if t, ok := out.Teams[team]; ok {
		if t.Answers == nil {
			t.Answers = make(map[string]Answer)
			out.Teams[team] = t
		}
		return out
	}
	out.Teams[team] = Team{
		Name:       team,
		Scores:     make([]int, len(out.Rounds)),
		Answers:    make(map[string]Answer),
		TotalScore: 0,
	}
	return out
}

// RemoveTeam drops team from the roster. Removing an unknown team is a no-op.
func RemoveTeam(g Game, team string) Game {
	out := g.Clone()
	delete(out.Teams, team)
	return out
}

// ReplaceRounds swaps the whole round list for an edited copy. No structural
// validation happens here; see RoundsEditable for when callers should allow it.
func ReplaceRounds(g Game, rounds []Round) Game {
	out := g.Clone()
	out.Rounds = cloneRounds(rounds)
	if out.CurrentRound >= len(out.Rounds) {
		out.CurrentRound = max(len(out.Rounds)-1, 0)
	}
	return out
}
