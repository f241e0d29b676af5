package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flashduel-service/internal/app"
	"flashduel-service/internal/domain"
	"flashduel-service/internal/infra/memory"
)

// immediateScheduler fires synchronously so tests see events right away.
type immediateScheduler struct{}

func (immediateScheduler) After(_ time.Duration, fn func()) (cancel func()) {
	fn()
	return func() {}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Broker) {
	t.Helper()
	matches := memory.NewMatchStore()
	decks := memory.NewDeckStore(map[string]domain.Deck{
		"deck-1": {
			ID:   "deck-1",
			Name: "Math",
			Cards: []domain.Card{
				{Question: "2+2?", Answer: "4"},
				{Question: "3+3?", Answer: "6"},
			},
		},
	})
	users := memory.NewUserStore()
	broker := memory.NewBroker()
	service := app.NewMatchService(matches, decks, users, broker, immediateScheduler{}, 0)

	mux := http.NewServeMux()
	NewHandler(service, HeaderAuthenticator{}).Register(mux)
	mux.HandleFunc("GET /ws", NewWSHandler(service, broker).ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, broker
}

func doJSON(t *testing.T, method, url, userID string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/matches", "alice", map[string]string{"deckId": "deck-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create match: status %d", resp.StatusCode)
	}
	matchID, _ := body["matchId"].(string)
	if matchID == "" {
		t.Fatalf("expected matchId, got %v", body)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/matches/"+matchID+"/join", "bob", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/matches/"+matchID+"/start", "bob", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-host start: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/matches/"+matchID+"/start", "alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/matches/"+matchID+"/start", "alice", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double start: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/matches/"+matchID+"/answer", "carol", map[string]string{"answer": "4"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-player answer: status %d", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/matches/"+matchID+"/answer", "bob", map[string]string{"answer": "5"})
	if resp.StatusCode != http.StatusOK || body["correct"] != false {
		t.Fatalf("wrong answer: status %d body %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/matches/"+matchID+"/answer", "bob", map[string]string{"answer": " 4 "})
	if resp.StatusCode != http.StatusOK || body["correct"] != true {
		t.Fatalf("correct answer: status %d body %v", resp.StatusCode, body)
	}
	if body["score"] != float64(1) {
		t.Fatalf("expected score 1, got %v", body["score"])
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/matches/"+matchID, "alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get match: status %d", resp.StatusCode)
	}
	if body["currentQuestionIndex"] != float64(1) {
		t.Fatalf("expected index 1, got %v", body["currentQuestionIndex"])
	}

	// Finish the game and check history.
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/matches/"+matchID+"/answer", "alice", map[string]string{"answer": "6"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("final answer: status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/user/history", nil)
	req.Header.Set("X-User-ID", "bob")
	historyResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer historyResp.Body.Close()
	var history []map[string]any
	if err := json.NewDecoder(historyResp.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0]["status"] != string(domain.StatusCompleted) {
		t.Fatalf("expected one completed match in history, got %v", history)
	}
}

func TestAuthAndNotFoundMapping(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/matches", "", map[string]string{"deckId": "deck-1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/matches", "alice", map[string]string{"deckId": "nope"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing deck, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/matches/missing/join", "alice", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing match, got %d", resp.StatusCode)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	h := NewHandler(nil, HeaderAuthenticator{})
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrVersionConflict, http.StatusConflict},
		{domain.ErrNotPlayer, http.StatusForbidden},
		{domain.ErrAlreadyStarted, http.StatusConflict},
		{domain.ErrMatchNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.writeError(rr, tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, rr.Code)
		}
	}
}

func TestDeckEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/decks", "alice", domain.Deck{
		Name:        "Capitals",
		Description: "Cities",
		Cards:       []domain.Card{{Question: "Capital of France?", Answer: "Paris"}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create deck: status %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/decks", nil)
	listResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list decks: %v", err)
	}
	defer listResp.Body.Close()
	var decks []domain.Deck
	if err := json.NewDecoder(listResp.Body).Decode(&decks); err != nil {
		t.Fatalf("decode decks: %v", err)
	}
	if len(decks) != 2 {
		t.Fatalf("expected 2 decks, got %d", len(decks))
	}
}
