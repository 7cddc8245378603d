package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"lexicon-quiz-service/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// statusFor maps domain errors onto HTTP statuses and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfiguration):
		return http.StatusBadRequest, "invalid_configuration"
	case errors.Is(err, domain.ErrInvalidUser):
		return http.StatusBadRequest, "invalid_user"
	case errors.Is(err, domain.ErrAnswerNotOffered):
		return http.StatusBadRequest, "answer_not_offered"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "game_not_found"
	case errors.Is(err, domain.ErrGameAlreadyActive):
		return http.StatusConflict, "game_already_active"
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, domain.ErrStepMismatch):
		return http.StatusConflict, "step_mismatch"
	case errors.Is(err, domain.ErrGameCompleted):
		return http.StatusGone, "game_completed"
	case errors.Is(err, domain.ErrGameCreationFailed):
		return http.StatusUnprocessableEntity, "game_creation_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorBody(err error) (int, errorResponse) {
	status, code := statusFor(err)
	body := errorResponse{Error: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		body.Field = cfgErr.Field
	}
	return status, body
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
