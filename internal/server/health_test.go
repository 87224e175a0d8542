package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/54b3r/plugmind-go/internal/provider"
	"github.com/54b3r/plugmind-go/internal/version"
)

// fakePinger is a test double for the Pinger interface.
type fakePinger struct {
	name string
	err  error
}

func (f *fakePinger) Name() string                 { return f.name }
func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: expected application/json, got %q", ct)
	}
	var body healthResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Version != version.Version {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pingers   []Pinger
		want      int
		wantReady bool
		failing   []string
	}{
		{name: "no pingers", want: http.StatusOK, wantReady: true},
		{
			name:      "all healthy",
			pingers:   []Pinger{&fakePinger{name: "qdrant"}, &fakePinger{name: "bots"}},
			want:      http.StatusOK,
			wantReady: true,
		},
		{
			name:    "one failing",
			pingers: []Pinger{&fakePinger{name: "qdrant", err: errors.New("connection refused")}, &fakePinger{name: "bots"}},
			want:    http.StatusServiceUnavailable,
			failing: []string{"qdrant"},
		},
		{
			name: "all failing",
			pingers: []Pinger{
				NewPinger("qdrant", func(context.Context) error { return errors.New("down") }),
				NewPinger("bots", func(context.Context) error { return errors.New("locked") }),
			},
			want:    http.StatusServiceUnavailable,
			failing: []string{"qdrant", "bots"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, &Config{Pingers: tt.pingers})

			w := env.do(http.MethodGet, "/api/ready", "")
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			var resp readyResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Ready != tt.wantReady || len(resp.Checks) != len(tt.pingers) {
				t.Fatalf("resp = %+v", resp)
			}
			var failing []string
			for i, c := range resp.Checks {
				if c.Name != tt.pingers[i].Name() {
					t.Errorf("check %d = %s, want registration order", i, c.Name)
				}
				if !c.OK {
					if c.Error == "" {
						t.Errorf("check %s failed without an error message", c.Name)
					}
					failing = append(failing, c.Name)
				}
			}
			if len(failing) != len(tt.failing) {
				t.Errorf("failing = %v, want %v", failing, tt.failing)
			}
		})
	}
}

func TestModelPinger_BackendWithoutHealthEndpoint(t *testing.T) {
	t.Parallel()

	p := NewModelPinger(&provider.Config{Backend: provider.BackendArk})
	if p.Name() != "ark" {
		t.Errorf("name = %q", p.Name())
	}
	if err := p.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
