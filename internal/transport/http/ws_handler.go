package http

import (
	"encoding/json"
	"log"
	"net/http"

	"flashduel-service/internal/app"
	"flashduel-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler streams match events to connected clients. The feed is
// read-only; mutations go through the REST handlers. On connect the client
// receives a full match-state snapshot so events it missed before
// subscribing are reconciled.
type WSHandler struct {
	service    *app.MatchService
	subscriber app.Subscriber
	upgrader   websocket.Upgrader
}

func NewWSHandler(service *app.MatchService, subscriber app.Subscriber) *WSHandler {
	return &WSHandler{
		service:    service,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades the request and pipes match events into the socket until
// the client hangs up.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("matchId")
	if matchID == "" {
		http.Error(w, "missing matchId", http.StatusBadRequest)
		return
	}

	match, err := h.service.GetMatch(r.Context(), matchID)
	if err != nil {
		status := http.StatusInternalServerError
		if err == domain.ErrMatchNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	events, cancel, err := h.subscriber.Subscribe(r.Context(), domain.MatchTopic(matchID))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Drain inbound frames so close/ping handling works; the feed accepts no commands.
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send <- outboundMessage{Event: "match-state", Payload: match}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				close(send)
				<-writerDone
				return
			}
			select {
			case send <- outboundMessage{Event: event.Event, Payload: json.RawMessage(event.Payload)}:
			case <-writerDone:
				return
			case <-readerDone:
				close(send)
				<-writerDone
				return
			}
		case <-writerDone:
			return
		case <-readerDone:
			close(send)
			<-writerDone
			return
		}
	}
}
