package domain

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

const (
	// CodeLength is the number of characters in a game code.
	CodeLength = 6
	// GameKeyPrefix namespaces game documents in the store.
	GameKeyPrefix = "game:"
)

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCode draws CodeLength base-36 characters from rnd and upper-cases them.
// Collisions are not checked.
func NewCode(rnd *rand.Rand) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[rnd.Intn(len(codeAlphabet))])
	}
	return strings.ToUpper(b.String())
}

// NormalizeCode trims and upper-cases a user-supplied game code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GameKey is the store key of the document for code.
func GameKey(code string) string {
	return GameKeyPrefix + NormalizeCode(code)
}

// CodeFromKey strips the game key prefix. ok is false for keys outside the game namespace.
func CodeFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, GameKeyPrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, GameKeyPrefix), true
}

// AnswerKey is the slot identifier "{round}-{question}" binding an answer to one question.
func AnswerKey(round, question int) string {
	return strconv.Itoa(round) + "-" + strconv.Itoa(question)
}

// ParseAnswerKey is the inverse of AnswerKey.
func ParseAnswerKey(key string) (round, question int, err error) {
	r, q, ok := strings.Cut(key, "-")
	if !ok {
		return 0, 0, fmt.Errorf("answer key %q: missing separator", key)
	}
	round, err = strconv.Atoi(r)
	if err != nil || round < 0 {
		return 0, 0, fmt.Errorf("answer key %q: bad round index", key)
	}
	question, err = strconv.Atoi(q)
	if err != nil || question < 0 {
		return 0, 0, fmt.Errorf("answer key %q: bad question index", key)
	}
	return round, question, nil
}
