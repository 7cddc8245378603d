package domain

import (
	"sort"
	"time"
)

// User is a registered player. Configuration and sessions are keyed by its ID.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// SupportedLanguages is the set of language codes the translator can serve, sorted.
type SupportedLanguages struct {
	Languages []string `json:"languages"`
}

// Contains reports whether lang is supported.
func (s SupportedLanguages) Contains(lang string) bool {
	for _, l := range s.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Question is a single translation prompt produced by the translator.
type Question struct {
	Prompt      string
	Answer      string
	Distractors []string
}

// Step is one question within a session. Answers holds the shuffled candidate set.
type Step struct {
	Index       int      `json:"index"`
	Prompt      string   `json:"prompt"`
	Translation string   `json:"translation"`
	Answers     []string `json:"answers"`
	Chosen      string   `json:"chosen,omitempty"`
	Answered    bool     `json:"answered"`
	Correct     bool     `json:"correct"`
}

// Offers reports whether answer is one of the step's candidates.
func (s Step) Offers(answer string) bool {
	for _, a := range s.Answers {
		if a == answer {
			return true
		}
	}
	return false
}

// GameState is the coarse lifecycle state of a session.
type GameState string

const (
	GameStateActive    GameState = "active"
	GameStateCompleted GameState = "completed"
)

// GameSession is one quiz attempt. Steps are fixed at creation; Cursor moves forward only.
type GameSession struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	Configuration GameConfiguration `json:"configuration"`
	Steps         []Step            `json:"steps"`
	Cursor        int               `json:"cursor"`
	Score         int               `json:"score"`
	CreatedAt     time.Time         `json:"createdAt"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

// Active reports whether the cursor has not yet passed the last step.
func (g GameSession) Active() bool {
	return g.Cursor < len(g.Steps)
}

// State returns the lifecycle state derived from the cursor.
func (g GameSession) State() GameState {
	if g.Active() {
		return GameStateActive
	}
	return GameStateCompleted
}

// CurrentStep returns the step at the cursor, or false once the session is completed.
func (g GameSession) CurrentStep() (Step, bool) {
	if !g.Active() {
		return Step{}, false
	}
	return g.Steps[g.Cursor], true
}

// Advance moves the cursor by one. Completed sessions are left untouched.
func (g *GameSession) Advance(now time.Time) {
	if !g.Active() {
		return
	}
	g.Cursor++
	if !g.Active() {
		completed := now
		g.CompletedAt = &completed
	}
}

// Answer records answer on the current step at stepIndex and advances the cursor.
func (g *GameSession) Answer(stepIndex int, answer string, now time.Time) (bool, error) {
	if !g.Active() {
		return false, ErrGameCompleted
	}
	if stepIndex != g.Cursor {
		return false, ErrStepMismatch
	}
	step := &g.Steps[g.Cursor]
	if !step.Offers(answer) {
		return false, ErrAnswerNotOffered
	}
	step.Chosen = answer
	step.Answered = true
	step.Correct = answer == step.Translation
	if step.Correct {
		g.Score++
	}
	g.Advance(now)
	return step.Correct, nil
}

// Clone returns a deep copy so stores never share step slices with callers.
func (g GameSession) Clone() GameSession {
	out := g
	out.Steps = make([]Step, len(g.Steps))
	for i, step := range g.Steps {
		step.Answers = append([]string(nil), step.Answers...)
		out.Steps[i] = step
	}
	if g.CompletedAt != nil {
		completed := *g.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}

// AnswerResult summarizes the outcome of a submitted answer.
type AnswerResult struct {
	Step        int       `json:"step"`
	Correct     bool      `json:"correct"`
	Translation string    `json:"translation"`
	Score       int       `json:"score"`
	State       GameState `json:"state"`
}

// Vocabulary maps concept keys to the word expressing that concept in Language.
type Vocabulary struct {
	Language string            `json:"language"`
	Words    map[string]string `json:"words"`
}

// Concepts returns the concept keys in sorted order.
func (v Vocabulary) Concepts() []string {
	keys := make([]string, 0, len(v.Words))
	for k := range v.Words {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
