package operator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/tradebot/internal/bot"
)

type fakeBot struct {
	out      string
	err      error
	commands []string
	panics   bool
}

func (b *fakeBot) HandleCommand(_ context.Context, command string) (string, error) {
	if b.panics {
		panic("command blew up")
	}
	b.commands = append(b.commands, command)
	return b.out, b.err
}

func (b *fakeBot) Status() bot.Status {
	return bot.Status{Running: true, State: "online", DisplayName: "Trader"}
}

func (b *fakeBot) RecentLog() []string {
	return []string{"level=INFO msg=\"Done loading bot\""}
}

type fakeSink struct {
	codes []string
	err   error
}

func (s *fakeSink) Submit(code string) error {
	if s.err != nil {
		return s.err
	}
	s.codes = append(s.codes, code)
	return nil
}

func newTestServer(t *testing.T, b Bot, codes CodeSink) *httptest.Server {
	t.Helper()
	h := NewHandler(b, codes, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(NewRouter(h, "tok"))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var got map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&got)
	return resp.StatusCode, got
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"foo": "bar"})

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestStatusRequiresToken(t *testing.T) {
	srv := newTestServer(t, &fakeBot{}, nil)

	resp, err := srv.Client().Get(srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	code, got := do(t, srv, http.MethodGet, "/api/status", "")
	if code != http.StatusOK || got["state"] != "online" || got["display_name"] != "Trader" {
		t.Fatalf("unexpected status %d %v", code, got)
	}

	hb, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	hb.Body.Close()
	if hb.StatusCode != http.StatusOK {
		t.Fatalf("heartbeat should be public, got %d", hb.StatusCode)
	}
}

func TestGetLog(t *testing.T) {
	srv := newTestServer(t, &fakeBot{}, nil)
	code, got := do(t, srv, http.MethodGet, "/api/log", "")
	lines, _ := got["lines"].([]any)
	if code != http.StatusOK || len(lines) != 1 {
		t.Fatalf("unexpected log response %d %v", code, got)
	}
}

func TestPostCommand(t *testing.T) {
	tests := []struct {
		name string
		bot  *fakeBot
		body string
		want int
	}{
		{name: "ok", bot: &fakeBot{out: "done"}, body: `{"command":"status"}`, want: http.StatusOK},
		{name: "not running", bot: &fakeBot{err: bot.ErrNotRunning}, body: `{"command":"status"}`, want: http.StatusServiceUnavailable},
		{name: "timeout", bot: &fakeBot{err: context.DeadlineExceeded}, body: `{"command":"status"}`, want: http.StatusGatewayTimeout},
		{name: "handler error", bot: &fakeBot{err: errors.New("unknown command")}, body: `{"command":"x"}`, want: http.StatusUnprocessableEntity},
		{name: "empty", bot: &fakeBot{}, body: `{"command":"  "}`, want: http.StatusBadRequest},
		{name: "bad json", bot: &fakeBot{}, body: `{`, want: http.StatusBadRequest},
		{name: "panic", bot: &fakeBot{panics: true}, body: `{"command":"x"}`, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.bot, nil)
			code, got := do(t, srv, http.MethodPost, "/api/command", tt.body)
			if code != tt.want {
				t.Fatalf("expected %d, got %d (%v)", tt.want, code, got)
			}
			if code == http.StatusOK {
				if got["output"] != "done" || got["id"] == "" {
					t.Fatalf("unexpected body %v", got)
				}
				if len(tt.bot.commands) != 1 || tt.bot.commands[0] != "status" {
					t.Fatalf("unexpected commands %v", tt.bot.commands)
				}
			}
		})
	}
}

func TestPostAuthCode(t *testing.T) {
	sink := &fakeSink{}
	srv := newTestServer(t, &fakeBot{}, sink)

	if code, _ := do(t, srv, http.MethodPost, "/api/auth", `{"code":"ABCDE"}`); code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", code)
	}
	if len(sink.codes) != 1 || sink.codes[0] != "ABCDE" {
		t.Fatalf("unexpected codes %v", sink.codes)
	}

	sink.err = bot.ErrNoPendingCode
	if code, _ := do(t, srv, http.MethodPost, "/api/auth", `{"code":"FGHIJ"}`); code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}

	noSink := newTestServer(t, &fakeBot{}, nil)
	if code, _ := do(t, noSink, http.MethodPost, "/api/auth", `{"code":"ABCDE"}`); code != http.StatusNotFound {
		t.Fatalf("expected 404 without a sink, got %d", code)
	}
}
