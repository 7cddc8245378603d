package domain

// System-wide defaults applied to users without an explicit configuration.
const (
	DefaultTranslateFrom     = "english"
	DefaultTranslateTo       = "spanish"
	DefaultNumberOfSteps     = 10
	DefaultStepTimeInSeconds = 20
	DefaultAnswerCount       = 4

	// MinAnswerCount is one correct answer plus at least one distractor.
	MinAnswerCount = 2
)

// GameConfiguration describes the quiz parameters of a single user.
type GameConfiguration struct {
	UserID            string `json:"userId,omitempty"`
	TranslateFrom     string `json:"translateFrom"`
	TranslateTo       string `json:"translateTo"`
	NumberOfSteps     int    `json:"numberOfSteps"`
	StepTimeInSeconds int    `json:"stepTimeInSeconds"`
	AnswerCount       int    `json:"answerCount"`
}

// DefaultConfiguration returns a configuration populated entirely from system defaults.
func DefaultConfiguration() GameConfiguration {
	return GameConfiguration{
		TranslateFrom:     DefaultTranslateFrom,
		TranslateTo:       DefaultTranslateTo,
		NumberOfSteps:     DefaultNumberOfSteps,
		StepTimeInSeconds: DefaultStepTimeInSeconds,
		AnswerCount:       DefaultAnswerCount,
	}
}

// Apply overwrites the quiz attributes with the ones from requested, keeping the record identity.
func (c *GameConfiguration) Apply(requested GameConfiguration) {
	c.TranslateFrom = requested.TranslateFrom
	c.TranslateTo = requested.TranslateTo
	c.NumberOfSteps = requested.NumberOfSteps
	c.StepTimeInSeconds = requested.StepTimeInSeconds
	c.AnswerCount = requested.AnswerCount
}

// SameSettings reports whether both configurations carry equal quiz attributes.
func (c GameConfiguration) SameSettings(other GameConfiguration) bool {
	return c.TranslateFrom == other.TranslateFrom &&
		c.TranslateTo == other.TranslateTo &&
		c.NumberOfSteps == other.NumberOfSteps &&
		c.StepTimeInSeconds == other.StepTimeInSeconds &&
		c.AnswerCount == other.AnswerCount
}

// Validate checks candidate against the rules of a playable configuration.
// The returned error is a *ConfigurationError for the first violated rule.
func Validate(candidate GameConfiguration, supportedLanguages []string) error {
	supported := make(map[string]struct{}, len(supportedLanguages))
	for _, lang := range supportedLanguages {
		supported[lang] = struct{}{}
	}

	if _, ok := supported[candidate.TranslateFrom]; !ok {
		return &ConfigurationError{Field: "translateFrom", Rule: "language " + quote(candidate.TranslateFrom) + " is not supported"}
	}
	if _, ok := supported[candidate.TranslateTo]; !ok {
		return &ConfigurationError{Field: "translateTo", Rule: "language " + quote(candidate.TranslateTo) + " is not supported"}
	}
	if candidate.TranslateFrom == candidate.TranslateTo {
		return &ConfigurationError{Field: "translateTo", Rule: "must differ from translateFrom"}
	}
	if candidate.NumberOfSteps <= 0 {
		return &ConfigurationError{Field: "numberOfSteps", Rule: "must be positive"}
	}
	if candidate.StepTimeInSeconds <= 0 {
		return &ConfigurationError{Field: "stepTimeInSeconds", Rule: "must be positive"}
	}
	if candidate.AnswerCount < MinAnswerCount {
		return &ConfigurationError{Field: "answerCount", Rule: "must be at least 2"}
	}
	return nil
}

func quote(s string) string {
	return `"` + s + `"`
}
