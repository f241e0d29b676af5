package domain

import "errors"

var (
	// ErrDeckNotFound indicates the deck id does not resolve.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrMatchNotFound indicates the match id does not resolve.
	ErrMatchNotFound = errors.New("match not found")
	// ErrUserNotFound indicates the user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotHost is returned when a non-host tries to start a match.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrNotPlayer is returned when a user who never joined submits an answer.
	ErrNotPlayer = errors.New("player has not joined the match")
	// ErrAlreadyStarted guards the gameStarted latch against double starts.
	ErrAlreadyStarted = errors.New("game already started")
	// ErrNoCurrentQuestion is returned when answering a match with no question left.
	ErrNoCurrentQuestion = errors.New("no current question")
	// ErrVersionConflict signals a lost optimistic-concurrency race; callers reload and retry.
	ErrVersionConflict = errors.New("match version conflict")
)
