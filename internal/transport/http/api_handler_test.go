package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lexicon-quiz-service/internal/app"
	"lexicon-quiz-service/internal/domain"
	"lexicon-quiz-service/internal/infra/memory"
	"lexicon-quiz-service/internal/translation"
)

func TestRESTGameFlow(t *testing.T) {
	games, users, store := newTestServices(t)
	server := httptest.NewServer(NewRouter(games, users))
	defer server.Close()

	var user domain.User
	do(t, server, http.MethodPost, "/users", `{"email":"user@gmail.com","name":"first last"}`, http.StatusCreated, &user)
	base := "/users/" + user.ID

	var cfg domain.GameConfiguration
	do(t, server, http.MethodGet, base+"/configuration", "", http.StatusOK, &cfg)
	if !cfg.SameSettings(domain.DefaultConfiguration()) {
		t.Fatalf("expected default configuration, got %+v", cfg)
	}

	var rejected errorResponse
	do(t, server, http.MethodPut, base+"/configuration",
		`{"translateFrom":"english","translateTo":"english","numberOfSteps":3,"stepTimeInSeconds":5,"answerCount":3}`,
		http.StatusBadRequest, &rejected)
	if rejected.Error != "invalid_configuration" || rejected.Field != "translateTo" {
		t.Fatalf("unexpected rejection %+v", rejected)
	}
	do(t, server, http.MethodPut, base+"/configuration",
		`{"translateFrom":"english","translateTo":"german","numberOfSteps":3,"stepTimeInSeconds":5,"answerCount":3}`,
		http.StatusOK, &cfg)

	var game gameView
	do(t, server, http.MethodPost, base+"/games", "", http.StatusCreated, &game)
	if game.TotalSteps != 3 || game.State != domain.GameStateActive {
		t.Fatalf("unexpected game %+v", game)
	}
	for _, step := range game.Steps {
		if step.Translation != "" {
			t.Fatalf("translation leaked before answering: %+v", step)
		}
	}
	do(t, server, http.MethodPost, base+"/games", "", http.StatusConflict, nil)

	gamePath := base + "/games/" + game.ID
	raw := doRaw(t, server, http.MethodGet, gamePath+"/step", "", http.StatusOK)
	if strings.Contains(raw, "translation") {
		t.Fatalf("step view must not carry the translation: %s", raw)
	}
	var step stepView
	decodeBody(t, raw, &step)
	if step.Index != 0 || len(step.Answers) != 3 || step.TimeLimitSeconds != 5 {
		t.Fatalf("unexpected step %+v", step)
	}

	stored, _, _ := store.FindSession(context.Background(), game.ID)
	correct := stored.Steps[0].Translation

	var result domain.AnswerResult
	do(t, server, http.MethodPost, gamePath+"/answers", `{"step":0,"answer":"`+correct+`"}`, http.StatusOK, &result)
	if !result.Correct || result.Score != 1 || result.Translation != correct {
		t.Fatalf("unexpected result %+v", result)
	}
	do(t, server, http.MethodPost, gamePath+"/answers", `{"step":0,"answer":"`+correct+`"}`, http.StatusConflict, nil)
	do(t, server, http.MethodPost, gamePath+"/answers", `{"step":1,"answer":"not-a-word"}`, http.StatusBadRequest, nil)

	do(t, server, http.MethodPost, gamePath+"/advance", "", http.StatusOK, &game)
	do(t, server, http.MethodPost, gamePath+"/advance", "", http.StatusOK, &game)
	if game.State != domain.GameStateCompleted || game.CompletedAt == nil {
		t.Fatalf("expected completed game, got %+v", game)
	}
	do(t, server, http.MethodPost, gamePath+"/advance", "", http.StatusOK, &game)
	do(t, server, http.MethodGet, gamePath+"/step", "", http.StatusGone, nil)
	do(t, server, http.MethodGet, base+"/games/active", "", http.StatusNotFound, nil)

	var history []gameView
	do(t, server, http.MethodGet, base+"/games", "", http.StatusOK, &history)
	if len(history) != 1 || history[0].Score != 1 || history[0].Steps[2].Translation == "" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestRESTUsersAndLanguages(t *testing.T) {
	games, users, _ := newTestServices(t)
	server := httptest.NewServer(NewRouter(games, users))
	defer server.Close()

	var langs domain.SupportedLanguages
	do(t, server, http.MethodGet, "/languages", "", http.StatusOK, &langs)
	if !langs.Contains("japanese") || !langs.Contains("german") {
		t.Fatalf("unexpected languages %+v", langs)
	}

	do(t, server, http.MethodPost, "/users", `{"email":"user@gmail.com","name":"a"}`, http.StatusCreated, nil)
	do(t, server, http.MethodPost, "/users", `{"email":"user@gmail.com","name":"b"}`, http.StatusConflict, nil)
	do(t, server, http.MethodPost, "/users", `{"email":"broken","name":"b"}`, http.StatusBadRequest, nil)
	do(t, server, http.MethodPost, "/users", `{`, http.StatusBadRequest, nil)
	do(t, server, http.MethodGet, "/users/missing", "", http.StatusNotFound, nil)
	do(t, server, http.MethodGet, "/users/u1/games/unknown/step", "", http.StatusNotFound, nil)

	if body := doRaw(t, server, http.MethodGet, "/healthz", "", http.StatusOK); body != "ok" {
		t.Fatalf("unexpected health body %q", body)
	}
	if body := doRaw(t, server, http.MethodGet, "/metrics", "", http.StatusOK); !strings.Contains(body, "http_requests_total") {
		t.Fatalf("expected request metrics to be exported")
	}
}

func TestStatusForMapsDomainErrors(t *testing.T) {
	cases := map[error]int{
		&domain.ConfigurationError{Field: "answerCount", Rule: "must be at least 2"}: http.StatusBadRequest,
		domain.ErrSessionNotFound:        http.StatusNotFound,
		domain.ErrGameAlreadyActive:      http.StatusConflict,
		domain.ErrGameCompleted:          http.StatusGone,
		domain.ErrTranslationUnavailable: http.StatusInternalServerError,
		domain.ErrPersistence:            http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got, _ := statusFor(err); got != want {
			t.Fatalf("%v: expected %d, got %d", err, want, got)
		}
	}

	creation := fmt.Errorf("%w: step 2: %w", domain.ErrGameCreationFailed, domain.ErrTranslationUnavailable)
	if got, code := statusFor(creation); got != http.StatusUnprocessableEntity || code != "game_creation_failed" {
		t.Fatalf("expected 422 game_creation_failed, got %d %s", got, code)
	}
}

func newTestServices(t *testing.T) (*app.GameService, *app.UserService, *memory.SessionStore) {
	t.Helper()
	vocabularies, err := translation.SeedVocabularies()
	if err != nil {
		t.Fatalf("seed vocabulary: %v", err)
	}
	store := memory.NewSessionStore()
	vocab := memory.NewVocabularyRepository(memory.NewStaticVocabularyLoader(vocabularies), time.Minute)
	translator := translation.NewDictionary(vocab, rand.New(rand.NewSource(7)))
	configs := app.NewConfigurationManager(store, translator)
	games := app.NewGameService(store, translator, configs, rand.New(rand.NewSource(7)))
	return games, app.NewUserService(store), store
}

func do(t *testing.T, server *httptest.Server, method, path, body string, wantStatus int, out any) {
	t.Helper()
	raw := doRaw(t, server, method, path, body, wantStatus)
	if out != nil {
		decodeBody(t, raw, out)
	}
}

func doRaw(t *testing.T, server *httptest.Server, method, path, body string, wantStatus int) string {
	t.Helper()
	req, err := http.NewRequest(method, server.URL+path, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, resp.StatusCode, data)
	}
	return string(data)
}

func decodeBody(t *testing.T, raw string, out any) {
	t.Helper()
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
}
