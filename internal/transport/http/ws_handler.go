package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"lexicon-quiz-service/internal/app"
	"lexicon-quiz-service/internal/domain"
)

type WSHandler struct {
	games    *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(games *app.GameService) *WSHandler {
	return &WSHandler{
		games: games,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades HTTP requests to websockets and plays the user's active game over them.
// Inbound: start, step, answer {step, answer}, advance.
// Outbound: game, step, answerResult, completed, error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn().Err(err).Str("user", userID).Msg("ws write error")
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.handle(ctx, userID, inbound) {
			send <- msg
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, userID string, in inboundMessage) []outboundMessage[any] {
	switch in.Type {
	case "start":
		session, err := h.games.InitGameForUser(ctx, userID)
		if err != nil {
			return errorMessages(err)
		}
		gamesStarted.Inc()
		return append([]outboundMessage[any]{{Type: "game", Payload: newGameView(session)}}, nextMessages(session)...)

	case "step":
		session, err := h.games.ActiveSession(ctx, userID)
		if err != nil {
			return errorMessages(err)
		}
		return nextMessages(session)

	case "answer":
		var payload answerRequest
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return []outboundMessage[any]{{Type: "error", Payload: errorResponse{Error: "bad_json", Message: "invalid answer payload"}}}
		}
		session, err := h.games.ActiveSession(ctx, userID)
		if err != nil {
			return errorMessages(err)
		}
		result, err := h.games.SubmitAnswer(ctx, userID, session.ID, payload.Step, payload.Answer)
		if err != nil {
			return errorMessages(err)
		}
		recordAnswer(result.Correct)
		out := []outboundMessage[any]{{Type: "answerResult", Payload: result}}
		return append(out, h.followUp(ctx, userID, session.ID)...)

	case "advance":
		session, err := h.games.ActiveSession(ctx, userID)
		if err != nil {
			return errorMessages(err)
		}
		advanced, err := h.games.Advance(ctx, userID, session.ID)
		if err != nil {
			return errorMessages(err)
		}
		return nextMessages(advanced)

	default:
		return []outboundMessage[any]{{Type: "error", Payload: errorResponse{Error: "unsupported", Message: "unsupported message type"}}}
	}
}

func (h *WSHandler) followUp(ctx context.Context, userID, sessionID string) []outboundMessage[any] {
	session, err := h.games.Session(ctx, userID, sessionID)
	if err != nil {
		return errorMessages(err)
	}
	return nextMessages(session)
}

// nextMessages returns the open step, or the final game once the session is completed.
func nextMessages(session domain.GameSession) []outboundMessage[any] {
	step, ok := session.CurrentStep()
	if !ok {
		return []outboundMessage[any]{{Type: "completed", Payload: newGameView(session)}}
	}
	return []outboundMessage[any]{{Type: "step", Payload: newStepView(session, step)}}
}

func errorMessages(err error) []outboundMessage[any] {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("ws request failed")
	}
	return []outboundMessage[any]{{Type: "error", Payload: body}}
}
