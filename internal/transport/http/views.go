package http

import (
	"time"

	"lexicon-quiz-service/internal/domain"
)

// stepView is what a player sees while a step is open. The translation is withheld.
type stepView struct {
	GameID           string   `json:"gameId"`
	Index            int      `json:"index"`
	TotalSteps       int      `json:"totalSteps"`
	Prompt           string   `json:"prompt"`
	Answers          []string `json:"answers"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

type stepSummary struct {
	Index       int      `json:"index"`
	Prompt      string   `json:"prompt"`
	Answers     []string `json:"answers"`
	Answered    bool     `json:"answered"`
	Chosen      string   `json:"chosen,omitempty"`
	Correct     bool     `json:"correct"`
	Translation string   `json:"translation,omitempty"`
}

type gameView struct {
	ID            string                   `json:"id"`
	UserID        string                   `json:"userId"`
	State         domain.GameState         `json:"state"`
	Cursor        int                      `json:"cursor"`
	TotalSteps    int                      `json:"totalSteps"`
	Score         int                      `json:"score"`
	Configuration domain.GameConfiguration `json:"configuration"`
	Steps         []stepSummary            `json:"steps"`
	CreatedAt     time.Time                `json:"createdAt"`
	CompletedAt   *time.Time               `json:"completedAt,omitempty"`
}

func newStepView(session domain.GameSession, step domain.Step) stepView {
	return stepView{
		GameID:           session.ID,
		Index:            step.Index,
		TotalSteps:       len(session.Steps),
		Prompt:           step.Prompt,
		Answers:          step.Answers,
		TimeLimitSeconds: session.Configuration.StepTimeInSeconds,
	}
}

// newGameView reveals a step's translation only once the cursor has moved past it.
func newGameView(session domain.GameSession) gameView {
	steps := make([]stepSummary, len(session.Steps))
	for i, step := range session.Steps {
		summary := stepSummary{
			Index:    step.Index,
			Prompt:   step.Prompt,
			Answers:  step.Answers,
			Answered: step.Answered,
			Chosen:   step.Chosen,
			Correct:  step.Correct,
		}
		if i < session.Cursor {
			summary.Translation = step.Translation
		}
		steps[i] = summary
	}
	return gameView{
		ID:            session.ID,
		UserID:        session.UserID,
		State:         session.State(),
		Cursor:        session.Cursor,
		TotalSteps:    len(session.Steps),
		Score:         session.Score,
		Configuration: session.Configuration,
		Steps:         steps,
		CreatedAt:     session.CreatedAt,
		CompletedAt:   session.CompletedAt,
	}
}

func newGameViews(sessions []domain.GameSession) []gameView {
	out := make([]gameView, len(sessions))
	for i, s := range sessions {
		out[i] = newGameView(s)
	}
	return out
}
