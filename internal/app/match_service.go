package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"flashduel-service/internal/domain"
	"github.com/google/uuid"
)

// MatchRepository persists match documents. UpdateConditional must be an
// atomic compare-and-swap on Match.Version: it bumps the version on success
// and returns domain.ErrVersionConflict when another writer got there first.
type MatchRepository interface {
	Create(ctx context.Context, match *domain.Match) error
	Get(ctx context.Context, matchID string) (*domain.Match, error)
	UpdateConditional(ctx context.Context, match *domain.Match) error
	ListByStatus(ctx context.Context, statuses ...domain.MatchStatus) ([]*domain.Match, error)
	ListByPlayer(ctx context.Context, userID string, status domain.MatchStatus) ([]*domain.Match, error)
}

// DeckRepository loads deck content (from cache/backing store).
type DeckRepository interface {
	GetDeck(ctx context.Context, deckID string) (domain.Deck, error)
	ListDecks(ctx context.Context) ([]domain.Deck, error)
	CreateDeck(ctx context.Context, deck *domain.Deck) error
}

// UserRepository tracks lifetime scores in user profiles.
type UserRepository interface {
	AddToTotalScore(ctx context.Context, userID string, delta int) error
}

// Broadcaster publishes engine events to a per-match topic. Delivery is
// at-least-once and best-effort; subscribers reconcile via a full-state fetch.
type Broadcaster interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

// Scheduler runs a function once after a delay, off the request path.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// maxClaimAttempts bounds the reload-and-retry loop on version conflicts.
// Each retry re-reads the match, so a submitter that lost the question race
// observes answered=true on the next pass and settles without writing.
const maxClaimAttempts = 5

// MatchService implements the match progression state machine: create, join,
// start, and the first-correct-answer race.
type MatchService struct {
	matches     MatchRepository
	decks       DeckRepository
	users       UserRepository
	broadcaster Broadcaster
	scheduler   Scheduler
	revealDelay time.Duration
	now         func() time.Time

	mu      sync.Mutex
	reveals map[string]func()
}

func NewMatchService(matches MatchRepository, decks DeckRepository, users UserRepository, broadcaster Broadcaster, scheduler Scheduler, revealDelay time.Duration) *MatchService {
	return &MatchService{
		matches:     matches,
		decks:       decks,
		users:       users,
		broadcaster: broadcaster,
		scheduler:   scheduler,
		revealDelay: revealDelay,
		now:         time.Now,
		reveals:     make(map[string]func()),
	}
}

// NewMatchServiceWithClock is test-only for deterministic timestamps.
func NewMatchServiceWithClock(matches MatchRepository, decks DeckRepository, users UserRepository, broadcaster Broadcaster, scheduler Scheduler, revealDelay time.Duration, now func() time.Time) *MatchService {
	s := NewMatchService(matches, decks, users, broadcaster, scheduler, revealDelay)
	s.now = now
	return s
}

// CreateMatch snapshots the deck into a new waiting match hosted by userID.
func (s *MatchService) CreateMatch(ctx context.Context, deckID, userID string) (string, error) {
	deck, err := s.decks.GetDeck(ctx, deckID)
	if err != nil {
		return "", err
	}
	match := domain.NewMatch(uuid.NewString(), deck, userID, s.now())
	if err := s.matches.Create(ctx, match); err != nil {
		return "", err
	}
	return match.ID, nil
}

// JoinMatch adds the player with a zero score. Re-joining is a no-op and
// emits no duplicate event.
func (s *MatchService) JoinMatch(ctx context.Context, matchID, userID string) error {
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		match, err := s.matches.Get(ctx, matchID)
		if err != nil {
			return err
		}
		if !match.AddPlayer(userID) {
			return nil
		}
		if err := s.matches.UpdateConditional(ctx, match); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				continue
			}
			return err
		}
		s.publish(matchID, domain.EventPlayerJoined, domain.PlayerJoinedPayload{
			PlayerID: userID,
			Players:  match.Players,
		})
		return nil
	}
	return domain.ErrVersionConflict
}

// StartMatch flips the match active and reveals the first question. The
// gameStarted latch makes a second start fail with ErrAlreadyStarted instead
// of re-broadcasting game-start.
func (s *MatchService) StartMatch(ctx context.Context, matchID, userID string) error {
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		match, err := s.matches.Get(ctx, matchID)
		if err != nil {
			return err
		}
		if err := match.Start(userID); err != nil {
			return err
		}
		if err := s.matches.UpdateConditional(ctx, match); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				continue
			}
			return err
		}
		if question, ok := match.CurrentQuestion(); ok {
			s.publish(matchID, domain.EventGameStart, domain.CardPayload{
				Question:      question.Question,
				QuestionIndex: match.CurrentQuestionIndex,
			})
		}
		return nil
	}
	return domain.ErrVersionConflict
}

// SubmitAnswer runs the answer race. Exactly one concurrent submitter can
// claim a question: the claim is committed with a conditional write, and a
// loser's retry re-reads the advanced match and settles on AlreadyAnswered.
// Incorrect and AlreadyAnswered verdicts never mutate or broadcast.
func (s *MatchService) SubmitAnswer(ctx context.Context, matchID, userID, rawAnswer string) (domain.AnswerResult, error) {
	targetIndex := -1
	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		match, err := s.matches.Get(ctx, matchID)
		if err != nil {
			return domain.AnswerResult{}, err
		}
		if targetIndex == -1 {
			targetIndex = match.CurrentQuestionIndex
		} else if match.CurrentQuestionIndex != targetIndex {
			// The question this submission raced on was claimed while we
			// retried; the race loss is a normal outcome, not an error.
			return domain.AnswerResult{Verdict: domain.VerdictAlreadyAnswered, QuestionIndex: targetIndex}, nil
		}
		result, err := match.ApplyAnswer(userID, rawAnswer)
		if err != nil {
			return domain.AnswerResult{}, err
		}
		if result.Verdict != domain.VerdictCorrect {
			return result, nil
		}
		if err := s.matches.UpdateConditional(ctx, match); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				continue
			}
			return domain.AnswerResult{}, err
		}
		s.afterClaim(matchID, userID, match, result)
		return result, nil
	}
	return domain.AnswerResult{}, domain.ErrVersionConflict
}

// afterClaim runs the post-commit side effects of a winning answer. The state
// change is already durable, so failures here are logged, never surfaced.
func (s *MatchService) afterClaim(matchID, userID string, match *domain.Match, result domain.AnswerResult) {
	ctx := context.Background()
	if err := s.users.AddToTotalScore(ctx, userID, 1); err != nil {
		log.Printf("match %s: lifetime score update for %s failed: %v", matchID, userID, err)
	}

	// A reveal still pending for the previous question must not fire after
	// this claim's events.
	s.cancelReveal(matchID)

	s.publish(matchID, domain.EventScoreUpdate, domain.ScoreUpdatePayload{
		Scores:        match.Scores,
		AnsweredBy:    userID,
		QuestionIndex: result.QuestionIndex,
		CorrectAnswer: result.CorrectAnswer,
	})

	if result.Completed {
		s.publish(matchID, domain.EventGameOver, domain.GameOverPayload{
			Winner:      result.Winner,
			FinalScores: match.Scores,
		})
		return
	}

	// Reveal the next question after a short pause so clients can show the
	// correct answer. Scheduled off the request path; the handler returns now.
	question := match.Questions[match.CurrentQuestionIndex]
	index := match.CurrentQuestionIndex
	cancel := s.scheduler.After(s.revealDelay, func() {
		// The match may have moved on while the reveal was pending. A stale
		// reveal after game-over (or after the question fell) stays silent.
		current, err := s.matches.Get(context.Background(), matchID)
		if err != nil || current.Status == domain.StatusCompleted || current.CurrentQuestionIndex != index {
			return
		}
		s.publish(matchID, domain.EventNextCard, domain.CardPayload{
			Question:      question.Question,
			QuestionIndex: index,
		})
	})
	s.mu.Lock()
	s.reveals[matchID] = cancel
	s.mu.Unlock()
}

func (s *MatchService) cancelReveal(matchID string) {
	s.mu.Lock()
	cancel := s.reveals[matchID]
	delete(s.reveals, matchID)
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// GetMatch returns the full match state (clients reconcile on connect).
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	return s.matches.Get(ctx, matchID)
}

// ActiveMatches lists joinable and running matches, newest first.
func (s *MatchService) ActiveMatches(ctx context.Context) ([]*domain.Match, error) {
	return s.matches.ListByStatus(ctx, domain.StatusWaiting, domain.StatusActive)
}

// History lists the completed matches a player took part in, newest first.
func (s *MatchService) History(ctx context.Context, userID string) ([]*domain.Match, error) {
	return s.matches.ListByPlayer(ctx, userID, domain.StatusCompleted)
}

// ListDecks exposes deck summaries for the lobby.
func (s *MatchService) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	return s.decks.ListDecks(ctx)
}

// CreateDeck stores a new deck, assigning an id when absent.
func (s *MatchService) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	if deck.ID == "" {
		deck.ID = uuid.NewString()
	}
	if deck.CreatedAt.IsZero() {
		deck.CreatedAt = s.now()
	}
	return s.decks.CreateDeck(ctx, deck)
}

func (s *MatchService) publish(matchID, event string, payload any) {
	if err := s.broadcaster.Publish(context.Background(), domain.MatchTopic(matchID), event, payload); err != nil {
		log.Printf("match %s: broadcast %s failed: %v", matchID, event, err)
	}
}
