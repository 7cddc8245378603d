package domain

import "errors"

var (
	// ErrInvalidConfiguration is returned when a requested game configuration breaks a validation rule.
	ErrInvalidConfiguration = errors.New("invalid game configuration")
	// ErrGameAlreadyActive is returned when a user tries to start a game while one is still in progress.
	ErrGameAlreadyActive = errors.New("game already active")
	// ErrGameCreationFailed indicates step generation could not complete.
	ErrGameCreationFailed = errors.New("game creation failed")
	// ErrTranslationUnavailable indicates the translator cannot serve a language pair.
	ErrTranslationUnavailable = errors.New("translation unavailable")
	// ErrGameCompleted is the terminal indicator for sessions whose cursor passed the last step.
	ErrGameCompleted = errors.New("game completed")
	// ErrSessionNotFound is returned when a game session does not exist for the user.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrUserNotFound is returned when a user id is unknown.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when registering an email that is already in use.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidUser is returned when registration input is malformed.
	ErrInvalidUser = errors.New("invalid user")
	// ErrStepMismatch indicates an answer targeted a step other than the current one.
	ErrStepMismatch = errors.New("answer does not target the current step")
	// ErrAnswerNotOffered indicates a submitted answer is not one of the step's candidates.
	ErrAnswerNotOffered = errors.New("answer is not one of the candidates")
	// ErrPersistence wraps storage write failures.
	ErrPersistence = errors.New("persistence write failed")
)

// ConfigurationError names the configuration rule a candidate violated.
type ConfigurationError struct {
	Field string
	Rule  string
}

func (e *ConfigurationError) Error() string {
	return "invalid game configuration: " + e.Field + " " + e.Rule
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}
