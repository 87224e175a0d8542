package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/plugmind-go/internal/bot"
	"github.com/54b3r/plugmind-go/internal/botstore"
	"github.com/54b3r/plugmind-go/internal/chatbot"
	"github.com/54b3r/plugmind-go/internal/sqlagent"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeBots struct {
	bots map[string]*bot.Config
	err  error
}

func (f *fakeBots) Get(_ context.Context, id string) (*bot.Config, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.bots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", botstore.ErrNotFound, id)
	}
	cp := *b
	return &cp, nil
}

type fakeAnswerer struct {
	mu        sync.Mutex
	res       bot.Result
	err       error
	questions []string
}

func (f *fakeAnswerer) Answer(_ context.Context, _ *bot.Config, q string) (bot.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, q)
	return f.res, f.err
}

type fakeResolver struct {
	mu          sync.Mutex
	res         bot.Result
	err         error
	questions   []string
	invalidated []string
}

func (f *fakeResolver) Resolve(_ context.Context, _ *bot.Config, q string) (bot.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, q)
	return f.res, f.err
}

func (f *fakeResolver) Invalidate(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, id)
	return id == "7"
}

type fakeCollections struct {
	exists map[string]bool
	err    error
}

func (f *fakeCollections) CollectionExists(_ context.Context, name string) (bool, error) {
	return f.exists[name], f.err
}

// testEnv bundles a Server with its fakes and isolated registry.
type testEnv struct {
	srv         *Server
	reg         *prometheus.Registry
	bots        *fakeBots
	chat        *fakeAnswerer
	search      *fakeResolver
	collections *fakeCollections
}

func newTestEnv(t *testing.T, cfg *Config) *testEnv {
	t.Helper()
	env := &testEnv{
		reg: prometheus.NewRegistry(),
		bots: &fakeBots{bots: map[string]*bot.Config{
			"42": {ID: "42", Kind: bot.KindChatbot, WebsiteURL: "https://www.acme.com"},
			"7":  {ID: "7", Kind: bot.KindSearchbot, AllowedTables: []string{"hotels"}},
		}},
		chat:        &fakeAnswerer{},
		search:      &fakeResolver{},
		collections: &fakeCollections{exists: map[string]bool{"chatbot_42": true}},
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.MetricsRegistry = env.reg
	cfg.MetricsGatherer = env.reg
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(Deps{Bots: env.bots, Chatbots: env.chat, Searchbots: env.search, Collections: env.collections}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	env.srv = s
	return env
}

func (e *testEnv) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

// counterValue returns the value of the counter name whose labels include
// every pair in labels, or -1 when absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return -1
}

type answerBody struct {
	Answer  json.RawMessage `json:"answer"`
	Sources []string        `json:"sources"`
	Error   string          `json:"error"`
}

func decodeAnswer(t *testing.T, w *httptest.ResponseRecorder) answerBody {
	t.Helper()
	var b answerBody
	if err := json.NewDecoder(w.Body).Decode(&b); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return b
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew_RequiresDeps(t *testing.T) {
	t.Parallel()

	full := Deps{Bots: &fakeBots{}, Chatbots: &fakeAnswerer{}, Searchbots: &fakeResolver{}, Collections: &fakeCollections{}}
	tests := []struct {
		name  string
		strip func(*Deps)
	}{
		{"bots", func(d *Deps) { d.Bots = nil }},
		{"chatbots", func(d *Deps) { d.Chatbots = nil }},
		{"searchbots", func(d *Deps) { d.Searchbots = nil }},
		{"collections", func(d *Deps) { d.Collections = nil }},
	}
	for _, tt := range tests {
		d := full
		tt.strip(&d)
		if _, err := New(d, &Config{MetricsRegistry: prometheus.NewRegistry()}); err == nil {
			t.Errorf("missing %s: expected error", tt.name)
		}
	}
}

// ---------------------------------------------------------------------------
// POST /api/chatbots/{id}/chat
// ---------------------------------------------------------------------------

func TestChatbot_Answered(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.chat.res = bot.Result{Answer: "Breakfast is served from 7am.", Sources: []string{"Breakfast 7-10am"}, Outcome: bot.OutcomeAnswered}

	w := env.do(http.MethodPost, "/api/chatbots/42/chat", `{"message":"When is breakfast?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("expected X-Request-ID on the response")
	}
	body := decodeAnswer(t, w)
	if string(body.Answer) != `"Breakfast is served from 7am."` || len(body.Sources) != 1 {
		t.Errorf("body = %+v", body)
	}
	if len(env.chat.questions) != 1 || env.chat.questions[0] != "When is breakfast?" {
		t.Errorf("questions = %v", env.chat.questions)
	}
	if v := counterValue(t, env.reg, "plugmind_query_requests_total", map[string]string{"kind": "chatbot", "outcome": "answered"}); v != 1 {
		t.Errorf("query counter = %v, want 1", v)
	}
	if v := counterValue(t, env.reg, "plugmind_http_requests_total", map[string]string{"handler": "POST /api/chatbots/{id}/chat", "code": "200"}); v != 1 {
		t.Errorf("http counter = %v, want 1", v)
	}
}

func TestChatbot_NilSourcesEncodeAsEmptyList(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.chat.res = bot.Result{Answer: bot.DefaultGreeting, Outcome: bot.OutcomeGreeting}

	w := env.do(http.MethodPost, "/api/chatbots/42/chat", `{"message":"bonjour"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"sources":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestChatbot_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		body    string
		err     error
		want    int
		outcome string
	}{
		{"unknown bot", "/api/chatbots/999/chat", `{"message":"hi there"}`, nil, http.StatusNotFound, outcomeNotFound},
		{"searchbot id on chatbot route", "/api/chatbots/7/chat", `{"message":"hi there"}`, nil, http.StatusNotFound, outcomeNotFound},
		{"no documents", "/api/chatbots/42/chat", `{"message":"price?"}`, fmt.Errorf("chatbot: %w", chatbot.ErrDocumentsNotFound), http.StatusNotFound, outcomeNoDocuments},
		{"invalid json", "/api/chatbots/42/chat", `{"message":`, nil, http.StatusUnprocessableEntity, outcomeBadRequest},
		{"blank message", "/api/chatbots/42/chat", `{"message":"   "}`, nil, http.StatusUnprocessableEntity, outcomeBadRequest},
		{"timeout", "/api/chatbots/42/chat", `{"message":"price?"}`, context.DeadlineExceeded, http.StatusGatewayTimeout, outcomeTimeout},
		{"unexpected", "/api/chatbots/42/chat", `{"message":"price?"}`, errors.New("boom"), http.StatusInternalServerError, outcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, nil)
			env.chat.err = tt.err

			w := env.do(http.MethodPost, tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if body := decodeAnswer(t, w); body.Error == "" {
				t.Error("expected an error message in the body")
			}
			if v := counterValue(t, env.reg, "plugmind_query_requests_total", map[string]string{"kind": "chatbot", "outcome": tt.outcome}); v != 1 {
				t.Errorf("outcome %s counter = %v, want 1", tt.outcome, v)
			}
		})
	}
}

func TestChatbot_RegistryFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.bots.err = errors.New("database is locked")

	w := env.do(http.MethodPost, "/api/chatbots/42/chat", `{"message":"hello?"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if len(env.chat.questions) != 0 {
		t.Error("pipeline must not run without a bot")
	}
}

// ---------------------------------------------------------------------------
// POST /api/searchbots/{id}/chat
// ---------------------------------------------------------------------------

func TestSearchbot_Rows(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.search.res = bot.Result{
		Answer:  []map[string]any{{"name": "Riad Atlas", "city": "Marrakech"}},
		Sources: []string{},
		Outcome: bot.OutcomeRows,
	}

	w := env.do(http.MethodPost, "/api/searchbots/7/chat", `{"query":"hotels in Marrakech"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeAnswer(t, w)
	var rows []map[string]any
	if err := json.Unmarshal(body.Answer, &rows); err != nil || len(rows) != 1 || rows[0]["name"] != "Riad Atlas" {
		t.Errorf("rows = %v (%v)", rows, err)
	}
	if body.Sources == nil || len(body.Sources) != 0 {
		t.Errorf("sources = %#v, want []", body.Sources)
	}
	if v := counterValue(t, env.reg, "plugmind_query_requests_total", map[string]string{"kind": "searchbot", "outcome": "rows"}); v != 1 {
		t.Errorf("counter = %v", v)
	}
}

func TestSearchbot_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		body string
		err  error
		want int
	}{
		{"no allowed tables", "/api/searchbots/7/chat", `{"query":"hotels"}`, sqlagent.ErrNoAllowedTables, http.StatusBadRequest},
		{"unknown bot", "/api/searchbots/8/chat", `{"query":"hotels"}`, nil, http.StatusNotFound},
		{"chatbot id on searchbot route", "/api/searchbots/42/chat", `{"query":"hotels"}`, nil, http.StatusNotFound},
		{"message field instead of query", "/api/searchbots/7/chat", `{"message":"hotels"}`, nil, http.StatusUnprocessableEntity},
		{"agent build failure", "/api/searchbots/7/chat", `{"query":"hotels"}`, errors.New("sqlconn: ping: refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, nil)
			env.search.err = tt.err
			if w := env.do(http.MethodPost, tt.path, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestSearchbot_Invalidate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/searchbots/7/invalidate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp invalidateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.BotID != "7" || !resp.Evicted {
		t.Errorf("resp = %+v", resp)
	}
	if len(env.search.invalidated) != 1 || env.search.invalidated[0] != "7" {
		t.Errorf("invalidated = %v", env.search.invalidated)
	}
}

// ---------------------------------------------------------------------------
// GET /api/chatbots/{id}/status
// ---------------------------------------------------------------------------

func TestChatbotStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	w := env.do(http.MethodGet, "/api/chatbots/42/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Collection != "chatbot_42" || !resp.Ready {
		t.Errorf("resp = %+v", resp)
	}

	env.collections.exists = nil
	w = env.do(http.MethodGet, "/api/chatbots/42/status", "")
	if !strings.Contains(w.Body.String(), `"ready":false`) {
		t.Errorf("body = %s", w.Body.String())
	}

	env.collections.err = errors.New("unavailable")
	if w := env.do(http.MethodGet, "/api/chatbots/42/status", ""); w.Code != http.StatusBadGateway {
		t.Errorf("gateway error status = %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/chatbots/7/status", ""); w.Code != http.StatusNotFound {
		t.Errorf("searchbot status = %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Routing, auth and metrics endpoint
// ---------------------------------------------------------------------------

func TestRoutes_AuthAppliesToQueryRoutesOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &Config{APIKey: "s3cret"})
	env.chat.res = bot.Result{Answer: "ok", Outcome: bot.OutcomeAnswered}

	if w := env.do(http.MethodPost, "/api/chatbots/42/chat", `{"message":"hi"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/chatbots/42/chat", `{"message":"hi"}`, "Authorization", "Bearer s3cret"); w.Code != http.StatusOK {
		t.Errorf("with token: status = %d", w.Code)
	}
	for _, path := range []string{"/api/health", "/api/ready", "/metrics"} {
		if w := env.do(http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 without token", path, w.Code)
		}
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	if w := env.do(http.MethodGet, "/api/chatbots/42/chat", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRoutes_RequestIDPropagated(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/health", "", requestIDHeader, "widget-abc_123")
	if got := w.Header().Get(requestIDHeader); got != "widget-abc_123" {
		t.Errorf("request id = %q", got)
	}
	w = env.do(http.MethodGet, "/api/health", "", requestIDHeader, "bad id with spaces")
	if got := w.Header().Get(requestIDHeader); got == "bad id with spaces" || len(got) != 16 {
		t.Errorf("malformed inbound id should be replaced, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.chat.res = bot.Result{Answer: "ok", Outcome: bot.OutcomeAnswered}
	env.do(http.MethodPost, "/api/chatbots/42/chat", `{"message":"hi"}`)

	w := env.do(http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content-type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), `plugmind_query_requests_total{kind="chatbot",outcome="answered"} 1`) {
		t.Errorf("scrape missing query counter:\n%s", w.Body.String())
	}
}
