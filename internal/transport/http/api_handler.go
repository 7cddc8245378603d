package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lexicon-quiz-service/internal/app"
	"lexicon-quiz-service/internal/domain"
)

// APIHandler serves the REST surface over the game and user use cases.
type APIHandler struct {
	games *app.GameService
	users *app.UserService
}

func NewAPIHandler(games *app.GameService, users *app.UserService) *APIHandler {
	return &APIHandler{games: games, users: users}
}

// Mount registers the REST routes on r.
func (h *APIHandler) Mount(r chi.Router) {
	r.Get("/languages", h.languages)
	r.Post("/users", h.registerUser)
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/", h.getUser)
		r.Get("/configuration", h.getConfiguration)
		r.Put("/configuration", h.updateConfiguration)
		r.Route("/games", func(r chi.Router) {
			r.Post("/", h.startGame)
			r.Get("/", h.history)
			r.Get("/active", h.activeGame)
			r.Get("/{gameID}/step", h.currentStep)
			r.Post("/{gameID}/advance", h.advance)
			r.Post("/{gameID}/answers", h.submitAnswer)
		})
	})
}

type registerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type answerRequest struct {
	Step   int    `json:"step"`
	Answer string `json:"answer"`
}

func (h *APIHandler) languages(w http.ResponseWriter, r *http.Request) {
	langs, err := h.games.SupportedLanguages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, langs)
}

func (h *APIHandler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.Register(r.Context(), req.Email, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *APIHandler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *APIHandler) getConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.games.UserConfiguration(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *APIHandler) updateConfiguration(w http.ResponseWriter, r *http.Request) {
	var candidate domain.GameConfiguration
	if !decode(w, r, &candidate) {
		return
	}
	cfg, err := h.games.Configure(r.Context(), candidate, chi.URLParam(r, "userID"))
	recordConfigurationUpdate(err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *APIHandler) startGame(w http.ResponseWriter, r *http.Request) {
	session, err := h.games.InitGameForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	gamesStarted.Inc()
	writeJSON(w, http.StatusCreated, newGameView(session))
}

func (h *APIHandler) history(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.games.History(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameViews(sessions))
}

func (h *APIHandler) activeGame(w http.ResponseWriter, r *http.Request) {
	session, err := h.games.ActiveSession(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(session))
}

func (h *APIHandler) currentStep(w http.ResponseWriter, r *http.Request) {
	userID, gameID := chi.URLParam(r, "userID"), chi.URLParam(r, "gameID")
	session, err := h.games.Session(r.Context(), userID, gameID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	step, ok := session.CurrentStep()
	if !ok {
		writeError(w, r, domain.ErrGameCompleted)
		return
	}
	writeJSON(w, http.StatusOK, newStepView(session, step))
}

func (h *APIHandler) advance(w http.ResponseWriter, r *http.Request) {
	session, err := h.games.Advance(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(session))
}

func (h *APIHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.games.SubmitAnswer(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "gameID"), req.Step, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recordAnswer(result.Correct)
	writeJSON(w, http.StatusOK, result)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_json", Message: "invalid request body"})
		return false
	}
	return true
}
