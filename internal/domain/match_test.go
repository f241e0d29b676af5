package domain

import (
	"testing"
	"time"
)

func sampleDeck() Deck {
	return Deck{
		ID:          "deck-1",
		Name:        "Math",
		Description: "Quick sums",
		Cards: []Card{
			{Question: "2+2?", Answer: "4"},
			{Question: "3+3?", Answer: "6"},
		},
	}
}

func TestNewMatchSnapshotsDeck(t *testing.T) {
	now := time.Now()
	match := NewMatch("m1", sampleDeck(), "alice", now)

	if match.Status != StatusWaiting {
		t.Fatalf("expected waiting, got %s", match.Status)
	}
	if len(match.Players) != 1 || match.Players[0] != "alice" {
		t.Fatalf("expected host alice, got %v", match.Players)
	}
	if match.Scores["alice"] != 0 {
		t.Fatalf("expected zero score for host")
	}
	if len(match.Questions) != 2 || match.Questions[0].Answered {
		t.Fatalf("expected 2 unanswered questions, got %+v", match.Questions)
	}
	if match.CurrentQuestionIndex != 0 {
		t.Fatalf("expected index 0, got %d", match.CurrentQuestionIndex)
	}
}

func TestAddPlayerIdempotent(t *testing.T) {
	match := NewMatch("m1", sampleDeck(), "alice", time.Now())

	if !match.AddPlayer("bob") {
		t.Fatalf("expected bob to be added")
	}
	if match.AddPlayer("bob") {
		t.Fatalf("expected re-join to be a no-op")
	}
	if len(match.Players) != 2 {
		t.Fatalf("expected 2 players, got %v", match.Players)
	}
	if score, ok := match.Scores["bob"]; !ok || score != 0 {
		t.Fatalf("expected zero score entry for bob")
	}
}

func TestStartGuards(t *testing.T) {
	match := NewMatch("m1", sampleDeck(), "alice", time.Now())
	match.AddPlayer("bob")

	if err := match.Start("bob"); err != ErrNotHost {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := match.Start("alice"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if match.Status != StatusActive || !match.GameStarted {
		t.Fatalf("expected active started match, got %+v", match)
	}
	if err := match.Start("alice"); err != ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestApplyAnswerRace(t *testing.T) {
	match := NewMatch("m1", sampleDeck(), "alice", time.Now())
	match.AddPlayer("bob")
	_ = match.Start("alice")

	result, err := match.ApplyAnswer("alice", " 4 ")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Verdict != VerdictCorrect || result.Score != 1 {
		t.Fatalf("expected correct with score 1, got %+v", result)
	}
	if match.CurrentQuestionIndex != 1 {
		t.Fatalf("expected index advanced to 1, got %d", match.CurrentQuestionIndex)
	}
	if !match.Questions[0].Answered || match.Questions[0].AnsweredBy != "alice" {
		t.Fatalf("expected question claimed by alice, got %+v", match.Questions[0])
	}

	// Incorrect answer mutates nothing.
	result, err = match.ApplyAnswer("bob", "5")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Verdict != VerdictIncorrect {
		t.Fatalf("expected incorrect, got %+v", result)
	}
	if match.CurrentQuestionIndex != 1 || match.Scores["bob"] != 0 {
		t.Fatalf("incorrect answer must not mutate, got %+v", match)
	}
}

func TestApplyAnswerAlreadyAnswered(t *testing.T) {
	match := NewMatch("m1", sampleDeck(), "alice", time.Now())
	match.AddPlayer("bob")
	_ = match.Start("alice")

	// Simulate bob racing on a question alice already claimed: the reloaded
	// document shows answered=true at the same index bob targeted.
	match.Questions[0].Answered = true
	match.Questions[0].AnsweredBy = "alice"

	result, err := match.ApplyAnswer("bob", "4")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Verdict != VerdictAlreadyAnswered {
		t.Fatalf("expected already answered, got %+v", result)
	}
}

func TestApplyAnswerRejectsNonPlayer(t *testing.T) {
	match := NewMatch("m1", sampleDeck(), "alice", time.Now())
	_ = match.Start("alice")

	if _, err := match.ApplyAnswer("ghost", "4"); err != ErrNotPlayer {
		t.Fatalf("expected ErrNotPlayer, got %v", err)
	}
	if match.CurrentQuestionIndex != 0 || match.Questions[0].Answered {
		t.Fatalf("rejected submission must not mutate, got %+v", match)
	}
	if _, ok := match.Scores["ghost"]; ok {
		t.Fatalf("expected no score entry for ghost, got %v", match.Scores)
	}

	// A match can only ever complete via joined players, so the winner scan
	// over Players always finds the claimant.
	if _, err := match.ApplyAnswer("alice", "4"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := match.ApplyAnswer("alice", "6"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if match.Status != StatusCompleted || match.Winner == "" {
		t.Fatalf("expected completed match with a winner, got %+v", match)
	}
}

func TestCompletionAndWinnerTieBreak(t *testing.T) {
	match := NewMatch("m1", sampleDeck(), "alice", time.Now())
	match.AddPlayer("bob")
	_ = match.Start("alice")

	if _, err := match.ApplyAnswer("alice", "4"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	result, err := match.ApplyAnswer("bob", "6")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !result.Completed {
		t.Fatalf("expected completion, got %+v", result)
	}
	if match.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", match.Status)
	}
	// 1-1 tie resolves to the earlier joiner.
	if match.Winner != "alice" {
		t.Fatalf("expected alice to win the tie, got %q", match.Winner)
	}

	if _, err := match.ApplyAnswer("bob", "anything"); err != ErrNoCurrentQuestion {
		t.Fatalf("expected ErrNoCurrentQuestion, got %v", err)
	}
}

func TestNormalizeAnswer(t *testing.T) {
	match := NewMatch("m1", Deck{ID: "d", Cards: []Card{{Question: "Capital of France?", Answer: "Paris"}}}, "alice", time.Now())
	_ = match.Start("alice")

	clone := match.Clone()
	result, _ := clone.ApplyAnswer("alice", " Paris ")
	if result.Verdict != VerdictCorrect {
		t.Fatalf("expected trimmed/lowercased match, got %+v", result)
	}

	result, _ = match.ApplyAnswer("alice", "PARIS!")
	if result.Verdict != VerdictIncorrect {
		t.Fatalf("punctuation must not be stripped, got %+v", result)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	match := NewMatch("m1", sampleDeck(), "alice", time.Now())
	clone := match.Clone()

	clone.AddPlayer("bob")
	clone.Questions[0].Answered = true

	if len(match.Players) != 1 {
		t.Fatalf("clone mutated original players: %v", match.Players)
	}
	if match.Questions[0].Answered {
		t.Fatalf("clone mutated original questions")
	}
	if _, ok := match.Scores["bob"]; ok {
		t.Fatalf("clone mutated original scores")
	}
}
