package domain

import (
	"strings"
	"time"
)

// AnswerVerdict classifies the outcome of a submission.
type AnswerVerdict int

const (
	// VerdictIncorrect means the normalized answer did not match.
	VerdictIncorrect AnswerVerdict = iota
	// VerdictCorrect means the submitter claimed the current question.
	VerdictCorrect
	// VerdictAlreadyAnswered means another player won the race first.
	VerdictAlreadyAnswered
)

// AnswerResult summarizes one submission against the current question.
type AnswerResult struct {
	Verdict       AnswerVerdict
	Score         int
	QuestionIndex int
	CorrectAnswer string
	Completed     bool
	Winner        string
}

// NewMatch builds a waiting match from a deck snapshot with the creator as host.
func NewMatch(id string, deck Deck, hostID string, now time.Time) *Match {
	questions := make([]Question, len(deck.Cards))
	for i, card := range deck.Cards {
		questions[i] = Question{Question: card.Question, Answer: card.Answer}
	}
	return &Match{
		ID:        id,
		DeckID:    deck.ID,
		Players:   []string{hostID},
		Scores:    map[string]int{hostID: 0},
		Questions: questions,
		Status:    StatusWaiting,
		CreatedAt: now,
	}
}

// AddPlayer appends a player with a zero score. Joining twice is a no-op;
// the return value reports whether the player list actually changed.
func (m *Match) AddPlayer(userID string) bool {
	if m.hasPlayer(userID) {
		return false
	}
	m.Players = append(m.Players, userID)
	if m.Scores == nil {
		m.Scores = make(map[string]int)
	}
	m.Scores[userID] = 0
	return true
}

// Start flips the match active. Only the host may start, and only once.
func (m *Match) Start(userID string) error {
	if len(m.Players) == 0 || m.Players[0] != userID {
		return ErrNotHost
	}
	if m.GameStarted {
		return ErrAlreadyStarted
	}
	m.GameStarted = true
	m.Status = StatusActive
	return nil
}

// CurrentQuestion returns the question accepting answers, if any.
func (m *Match) CurrentQuestion() (Question, bool) {
	if m.CurrentQuestionIndex >= len(m.Questions) {
		return Question{}, false
	}
	return m.Questions[m.CurrentQuestionIndex], true
}

// ApplyAnswer runs one submission against the current question. Only joined
// players may submit; keeping Scores keyed by Players is what makes the
// winner scan sound. Only a correct first answer mutates the match: it marks
// the question, credits the submitter, advances the index and, when the last
// question falls, completes the match and picks the winner. The caller
// persists the mutation with a conditional write so that concurrent
// submitters cannot double-claim.
func (m *Match) ApplyAnswer(userID, rawAnswer string) (AnswerResult, error) {
	if !m.hasPlayer(userID) {
		return AnswerResult{}, ErrNotPlayer
	}
	idx := m.CurrentQuestionIndex
	if idx >= len(m.Questions) {
		return AnswerResult{}, ErrNoCurrentQuestion
	}
	question := &m.Questions[idx]
	if question.Answered {
		return AnswerResult{Verdict: VerdictAlreadyAnswered, QuestionIndex: idx}, nil
	}
	if NormalizeAnswer(rawAnswer) != NormalizeAnswer(question.Answer) {
		return AnswerResult{Verdict: VerdictIncorrect, QuestionIndex: idx}, nil
	}

	question.Answered = true
	question.AnsweredBy = userID
	m.Scores[userID]++
	m.CurrentQuestionIndex++

	result := AnswerResult{
		Verdict:       VerdictCorrect,
		Score:         m.Scores[userID],
		QuestionIndex: idx,
		CorrectAnswer: question.Answer,
	}
	if m.CurrentQuestionIndex >= len(m.Questions) {
		m.Status = StatusCompleted
		m.Winner = m.winner()
		result.Completed = true
		result.Winner = m.Winner
	}
	return result, nil
}

func (m *Match) hasPlayer(userID string) bool {
	for _, p := range m.Players {
		if p == userID {
			return true
		}
	}
	return false
}

// winner scans players in join order and returns the first strict maximum,
// so ties resolve deterministically in favor of the earlier joiner.
func (m *Match) winner() string {
	maxScore := 0
	winner := ""
	for _, player := range m.Players {
		if score := m.Scores[player]; score > maxScore {
			maxScore = score
			winner = player
		}
	}
	return winner
}

// NormalizeAnswer lowercases and trims surrounding whitespace. Punctuation
// is kept: "PARIS!" does not match "Paris".
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Clone deep-copies the match so stores can hand out independent documents.
func (m *Match) Clone() *Match {
	clone := *m
	clone.Players = append([]string(nil), m.Players...)
	clone.Questions = append([]Question(nil), m.Questions...)
	clone.Scores = make(map[string]int, len(m.Scores))
	for player, score := range m.Scores {
		clone.Scores[player] = score
	}
	return &clone
}
