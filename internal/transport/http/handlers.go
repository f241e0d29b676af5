package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"flashduel-service/internal/app"
	"flashduel-service/internal/domain"
)

// Handler exposes the match engine over a REST-ish surface. Client actions
// (create/join/start/answer) mutate through here; live state transitions
// reach clients through the WebSocket event feed.
type Handler struct {
	service *app.MatchService
	auth    Authenticator
}

func NewHandler(service *app.MatchService, auth Authenticator) *Handler {
	return &Handler{service: service, auth: auth}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/decks", h.listDecks)
	mux.HandleFunc("POST /api/decks", h.createDeck)
	mux.HandleFunc("POST /api/matches", h.createMatch)
	mux.HandleFunc("GET /api/matches/active", h.activeMatches)
	mux.HandleFunc("GET /api/matches/{matchID}", h.getMatch)
	mux.HandleFunc("POST /api/matches/{matchID}/join", h.joinMatch)
	mux.HandleFunc("POST /api/matches/{matchID}/start", h.startMatch)
	mux.HandleFunc("POST /api/matches/{matchID}/answer", h.submitAnswer)
	mux.HandleFunc("GET /api/user/history", h.history)
}

func (h *Handler) listDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.service.ListDecks(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decks)
}

func (h *Handler) createDeck(w http.ResponseWriter, r *http.Request) {
	var deck domain.Deck
	if err := json.NewDecoder(r.Body).Decode(&deck); err != nil {
		http.Error(w, "invalid deck payload", http.StatusBadRequest)
		return
	}
	if deck.Name == "" || len(deck.Cards) == 0 {
		http.Error(w, "deck needs a name and at least one card", http.StatusBadRequest)
		return
	}
	if err := h.service.CreateDeck(r.Context(), &deck); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deck)
}

func (h *Handler) createMatch(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Resolve(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var body struct {
		DeckID string `json:"deckId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DeckID == "" {
		http.Error(w, "missing deckId", http.StatusBadRequest)
		return
	}
	matchID, err := h.service.CreateMatch(r.Context(), body.DeckID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"matchId": matchID})
}

func (h *Handler) activeMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.ActiveMatches(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *Handler) getMatch(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Resolve(r); err != nil {
		h.writeError(w, err)
		return
	}
	match, err := h.service.GetMatch(r.Context(), r.PathValue("matchID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *Handler) joinMatch(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Resolve(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.JoinMatch(r.Context(), r.PathValue("matchID"), userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) startMatch(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Resolve(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.StartMatch(r.Context(), r.PathValue("matchID"), userID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "gameStarted": true})
}

type answerResponse struct {
	Correct         bool   `json:"correct"`
	AlreadyAnswered bool   `json:"alreadyAnswered,omitempty"`
	Score           int    `json:"score,omitempty"`
	CorrectAnswer   string `json:"correctAnswer,omitempty"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Resolve(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var body struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "missing answer", http.StatusBadRequest)
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), r.PathValue("matchID"), userID, body.Answer)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Losing the race and answering wrong are normal outcomes, not errors.
	switch result.Verdict {
	case domain.VerdictCorrect:
		writeJSON(w, http.StatusOK, answerResponse{
			Correct:       true,
			Score:         result.Score,
			CorrectAnswer: result.CorrectAnswer,
		})
	case domain.VerdictAlreadyAnswered:
		writeJSON(w, http.StatusOK, answerResponse{AlreadyAnswered: true})
	default:
		writeJSON(w, http.StatusOK, answerResponse{Correct: false})
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Resolve(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	matches, err := h.service.History(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrDeckNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotHost), errors.Is(err, domain.ErrNotPlayer):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyStarted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrVersionConflict):
		// Sustained contention exhausted the engine's retries; the client can
		// simply resubmit.
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoCurrentQuestion):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		http.Error(w, "internal error", status)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
