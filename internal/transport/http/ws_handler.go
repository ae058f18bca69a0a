package http

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"skillsprint-arena/internal/app"
	"skillsprint-arena/internal/common/ident"
	"skillsprint-arena/internal/domain"
)

type WSHandler struct {
	arena    *app.Arena
	ids      ident.Generator
	upgrader websocket.Upgrader
}

func NewWSHandler(arena *app.Arena, ids ident.Generator) *WSHandler {
	return &WSHandler{
		arena: arena,
		ids:   ids,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Username string `json:"username"`
}

type answerPayload struct {
	MatchID       string `json:"matchId"`
	QIndex        int    `json:"qIndex"`
	SelectedIndex int    `json:"selectedIndex"`
	TimeTakenMs   int64  `json:"timeTakenMs"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// wsSink bridges arena events onto one connection's write channel. Sends from
// any goroutine are safe, never block, and become no-ops once the connection
// is torn down.
type wsSink struct {
	mu     sync.Mutex
	closed bool
	ch     chan outboundMessage
}

func newWSSink() *wsSink {
	return &wsSink{ch: make(chan outboundMessage, 16)}
}

func (s *wsSink) Send(event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	msg := outboundMessage{Type: event, Payload: payload}
	select {
	case s.ch <- msg:
	default:
		// Drop the oldest update so a slow client cannot stall the arena.
		select {
		case <-s.ch:
		default:
		}
		s.ch <- msg
	}
}

func (s *wsSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// ServeWS upgrades HTTP requests to websockets and dispatches typed events
// into the arena. Connection loss is surfaced as a disconnect signal.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := h.ids.NewID()
	sink := newWSSink()
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range sink.ch {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join-lobby":
			var payload joinPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					sink.Send("error", errorPayload{Message: "invalid join payload"})
					continue
				}
			}
			if err := h.arena.JoinLobby(r.Context(), connID, payload.Username, sink); err != nil {
				sink.Send("error", errorPayload{Message: err.Error()})
			}
		case "submit-answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sink.Send("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			h.arena.SubmitAnswer(r.Context(), connID, domain.AnswerSubmission{
				MatchID:       payload.MatchID,
				QIndex:        payload.QIndex,
				SelectedIndex: payload.SelectedIndex,
				TimeTakenMs:   payload.TimeTakenMs,
			})
		case "get-leaderboard":
			h.arena.Leaderboard(r.Context(), sink)
		default:
			sink.Send("error", errorPayload{Message: "unsupported message type"})
		}
	}

	h.arena.Disconnect(r.Context(), connID)
	sink.close()
	<-writerDone
}
