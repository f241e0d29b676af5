package domain

import "time"

// Card is a single question/answer pair inside a deck.
type Card struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Deck is a named collection of flashcards. Read-mostly; a match snapshots
// its cards at creation time, so editing a deck never affects running games.
type Deck struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Cards       []Card    `json:"cards"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Question is a match-local copy of a card plus its answered state.
type Question struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Answered   bool   `json:"answered"`
	AnsweredBy string `json:"answeredBy,omitempty"`
}

// MatchStatus is the lifecycle phase of a match.
type MatchStatus string

const (
	StatusWaiting   MatchStatus = "waiting"
	StatusActive    MatchStatus = "active"
	StatusCompleted MatchStatus = "completed"
)

// Match is one game session over a fixed question set.
// Players[0] is the host and the only principal allowed to start the game.
// Version is the optimistic-concurrency token bumped on every persisted write.
type Match struct {
	ID                   string         `json:"id"`
	DeckID               string         `json:"deckId"`
	Players              []string       `json:"players"`
	Scores               map[string]int `json:"scores"`
	Questions            []Question     `json:"questions"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	Status               MatchStatus    `json:"status"`
	GameStarted          bool           `json:"gameStarted"`
	Winner               string         `json:"winner,omitempty"`
	Version              int64          `json:"version"`
	CreatedAt            time.Time      `json:"createdAt"`
}

// User carries the lifetime score accumulated across matches.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	TotalScore int       `json:"totalScore"`
	CreatedAt  time.Time `json:"createdAt"`
}
