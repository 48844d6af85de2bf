package domain

import "errors"

var (
	// ErrNotFound is returned when no document exists for a game code.
	ErrNotFound = errors.New("game not found")
	// ErrIncompleteSubmission is returned when a round is submitted with unanswered questions.
	ErrIncompleteSubmission = errors.New("all questions must be answered before submitting")
	// ErrTooLarge is returned when an encoded document exceeds the backend size ceiling.
	ErrTooLarge = errors.New("document too large")
	// ErrBackend wraps any other store failure, including undecodable documents.
	ErrBackend = errors.New("backend error")
	// ErrNotReady is returned when an action runs before a store has been attached.
	ErrNotReady = errors.New("storage not ready, try again shortly")
	// ErrInvalidTransition is returned when a lifecycle action does not apply to the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidInput is returned for empty codes or team names.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTeamNotFound is returned when grading addresses a team that is not in the roster.
	ErrTeamNotFound = errors.New("team not found")
	// ErrQuestionNotFound is returned when a round or question index is out of range.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAnswerNotFound is returned when grading a question the team never answered.
	ErrAnswerNotFound = errors.New("answer not found")
)
