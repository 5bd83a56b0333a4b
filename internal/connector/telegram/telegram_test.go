package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/helpdesk-io/helpdesk/internal/connector"
)

// Verify Connector implements connector.Connector at compile time.
var _ connector.Connector = (*Connector)(nil)

// fakeBotAPI records sendMessage calls and answers like the Bot API.
type fakeBotAPI struct {
	mu       sync.Mutex
	calls    []url.Values
	failHTML bool
	notOK    bool
	delay    time.Duration
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	vals, _ := url.ParseQuery(string(body))
	f.mu.Lock()
	f.calls = append(f.calls, vals)
	f.mu.Unlock()
	time.Sleep(f.delay)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case f.notOK:
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	case f.failHTML && vals.Get("parse_mode") == "HTML":
		fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`)
	default:
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	}
}

func newTestConnector(t *testing.T, api *fakeBotAPI, cfg Config, h connector.InboundHandler) *Connector {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	cfg.Token = "123:ABC"
	cfg.APIEndpoint = srv.URL + "/bot%s/%s"
	if h == nil {
		h = func(context.Context, connector.InboundMessage) error { return nil }
	}
	c, err := New(cfg, h, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestSend(t *testing.T) {
	api := &fakeBotAPI{}
	c := newTestConnector(t, api, Config{}, nil)

	err := c.Send(context.Background(), connector.OutboundMessage{ChatID: "42", Content: "<b>hi</b>"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(api.calls))
	}
	got := api.calls[0]
	if got.Get("chat_id") != "42" || got.Get("text") != "<b>hi</b>" || got.Get("parse_mode") != "HTML" {
		t.Errorf("unexpected params: %v", got)
	}
}

func TestSend_Channel(t *testing.T) {
	api := &fakeBotAPI{}
	c := newTestConnector(t, api, Config{}, nil)
	if err := c.Send(context.Background(), connector.OutboundMessage{ChatID: "@desk", Content: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if api.calls[0].Get("chat_id") != "@desk" {
		t.Errorf("chat_id = %q", api.calls[0].Get("chat_id"))
	}
}

func TestSend_PlainTextFallback(t *testing.T) {
	api := &fakeBotAPI{failHTML: true}
	c := newTestConnector(t, api, Config{}, nil)

	err := c.Send(context.Background(), connector.OutboundMessage{ChatID: "42", Content: "<b>a &amp; b</b>"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(api.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(api.calls))
	}
	if api.calls[1].Get("text") != "a & b" || api.calls[1].Get("parse_mode") != "" {
		t.Errorf("unexpected fallback params: %v", api.calls[1])
	}
}

func TestSend_APIError(t *testing.T) {
	api := &fakeBotAPI{notOK: true}
	c := newTestConnector(t, api, Config{}, nil)
	if err := c.Send(context.Background(), connector.OutboundMessage{ChatID: "42", Content: "x"}); err == nil {
		t.Fatal("expected error when ok=false")
	}
	if len(api.calls) != 1 {
		t.Errorf("expected no retry, got %d calls", len(api.calls))
	}
}

func TestSend_HonorsContext(t *testing.T) {
	api := &fakeBotAPI{delay: 500 * time.Millisecond}
	c := newTestConnector(t, api, Config{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := c.Send(ctx, connector.OutboundMessage{ChatID: "42", Content: "hi"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("send waited %v past its deadline", elapsed)
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	api.mu.Lock()
	before := len(api.calls)
	api.mu.Unlock()
	if err := c.Send(cancelled, connector.OutboundMessage{ChatID: "42", Content: "hi"}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.calls) != before {
		t.Error("cancelled send reached the Bot API")
	}
}

func TestSend_InvalidChatID(t *testing.T) {
	c := newTestConnector(t, &fakeBotAPI{}, Config{}, nil)
	if err := c.Send(context.Background(), connector.OutboundMessage{ChatID: "abc", Content: "x"}); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

const updateJSON = `{"update_id":7,"message":{"message_id":3,"date":0,
	"from":{"id":555,"is_bot":false,"first_name":"Alice","username":"alice"},
	"chat":{"id":777,"type":"private"},"text":"  /new  "}}`

func TestServeHTTP(t *testing.T) {
	var got []connector.InboundMessage
	h := func(_ context.Context, m connector.InboundMessage) error {
		got = append(got, m)
		return nil
	}
	c := newTestConnector(t, &fakeBotAPI{}, Config{WebhookSecret: "s3cret"}, h)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(updateJSON))
	w := httptest.NewRecorder()
	c.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without secret, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(updateJSON))
	req.Header.Set(SecretHeader, "s3cret")
	w = httptest.NewRecorder()
	c.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 inbound message, got %d", len(got))
	}
	want := connector.InboundMessage{
		Channel: "telegram", SenderID: "555", ChatID: "777",
		Username: "alice", DisplayName: "Alice", Content: "/new",
	}
	if got[0] != want {
		t.Errorf("got %+v, want %+v", got[0], want)
	}
}

func TestServeHTTP_HandlerErrorStillOK(t *testing.T) {
	h := func(context.Context, connector.InboundMessage) error { return fmt.Errorf("boom") }
	c := newTestConnector(t, &fakeBotAPI{}, Config{}, h)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(updateJSON))
	w := httptest.NewRecorder()
	c.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestServeHTTP_BadRequests(t *testing.T) {
	c := newTestConnector(t, &fakeBotAPI{}, Config{}, nil)

	w := httptest.NewRecorder()
	c.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/telegram/webhook", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: expected 405, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	c.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{bad")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: expected 400, got %d", w.Code)
	}
}

func TestServeHTTP_AllowFrom(t *testing.T) {
	called := false
	h := func(context.Context, connector.InboundMessage) error { called = true; return nil }
	c := newTestConnector(t, &fakeBotAPI{}, Config{AllowFrom: []int64{1}}, h)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(updateJSON))
	c.ServeHTTP(httptest.NewRecorder(), req)
	if called {
		t.Error("handler should not be called for a user outside allow_from")
	}
}

func TestInboundFromUpdate_IgnoresNonText(t *testing.T) {
	c := newTestConnector(t, &fakeBotAPI{}, Config{}, func(context.Context, connector.InboundMessage) error {
		t.Error("handler should not be called")
		return nil
	})
	body := `{"update_id":8,"edited_message":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"},"text":"x"}}`
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	c.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestContains(t *testing.T) {
	ids := []int64{100, 200, 300}

	if !contains(ids, 200) {
		t.Error("expected 200 to be found")
	}
	if contains(ids, 999) {
		t.Error("expected 999 to not be found")
	}
	if contains(nil, 100) {
		t.Error("expected nil slice to return false")
	}
}
