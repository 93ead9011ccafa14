package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jdelaire/evalbot/internal/config"
	"github.com/jdelaire/evalbot/internal/engine"
)

// fakeVK serves the API methods and the long poll endpoint the bot uses.
type fakeVK struct {
	t       *testing.T
	srv     *httptest.Server
	mu      sync.Mutex
	methods []string
	sent    []string
	updates []any
	polled  bool
}

func newFakeVK(t *testing.T, updates ...any) *fakeVK {
	f := &fakeVK{t: t, updates: updates}
	mux := http.NewServeMux()
	mux.HandleFunc("/method/", f.method)
	mux.HandleFunc("/lp", f.poll)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeVK) method(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	name := strings.TrimPrefix(r.URL.Path, "/method/")
	f.mu.Lock()
	f.methods = append(f.methods, name)
	if name == "messages.send" {
		f.sent = append(f.sent, r.PostForm.Get("peer_id")+":"+r.PostForm.Get("message"))
	}
	f.mu.Unlock()

	switch name {
	case "groups.getLongPollServer":
		json.NewEncoder(w).Encode(map[string]any{"response": map[string]any{
			"key": "k", "server": f.srv.URL + "/lp", "ts": "1",
		}})
	default:
		w.Write([]byte(`{"response":1}`))
	}
}

func (f *fakeVK) poll(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	first := !f.polled
	f.polled = true
	f.mu.Unlock()
	if !first {
		<-r.Context().Done()
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"ts": "2", "updates": f.updates})
}

func msg(from, peer int64, text string) map[string]any {
	return map[string]any{
		"type":   "message_new",
		"object": map[string]any{"message": map[string]any{"from_id": from, "peer_id": peer, "text": text}},
	}
}

func testConfig(apiURL string) *config.Config {
	v := config.New()
	v.Set("vk.group_id", 123456)
	v.Set("vk.group_name", "calcbot")
	v.Set("vk.owner_id", 184536960)
	v.Set("vk.token", "secret")
	v.Set("vk.api_base_url", apiURL+"/method")
	v.Set("engine.mode", "local")
	return config.Load(v, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunBotUntilOwnerExit(t *testing.T) {
	vk := newFakeVK(t,
		msg(42, 7, "eval 2+2"),
		msg(42, 7, "[club123456|@calcbot] x = 3"),
		msg(42, 7, "hello"),
		msg(184536960, 7, "exit"),
	)
	cfg := testConfig(vk.srv.URL)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var banner bytes.Buffer
	if err := runBot(ctx, &banner, cfg, discardLogger()); err != nil {
		t.Fatalf("runBot: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("runBot only returned after the test deadline")
	}

	vk.mu.Lock()
	defer vk.mu.Unlock()
	want := []string{"7:4", "7:3", "7:The bot is stopped."}
	if strings.Join(vk.sent, "|") != strings.Join(want, "|") {
		t.Errorf("sent = %q, want %q", vk.sent, want)
	}
	if vk.methods[0] != "groups.enableOnline" {
		t.Errorf("first call = %s, want groups.enableOnline", vk.methods[0])
	}
	var disabled bool
	for _, m := range vk.methods {
		disabled = disabled || m == "groups.disableOnline"
	}
	if !disabled {
		t.Errorf("groups.disableOnline never called: %v", vk.methods)
	}
	if !strings.Contains(banner.String(), "club123456") {
		t.Errorf("banner = %q", banner.String())
	}
}

func TestRunBotEngineLoadFailure(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Engine.Mode = engine.ModeProcess
	cfg.Engine.Exec = "/nonexistent/evalbot-engine"

	err := runBot(context.Background(), io.Discard, cfg, discardLogger())
	if !errors.Is(err, engine.ErrEngineLoad) {
		t.Fatalf("runBot error = %v, want ErrEngineLoad", err)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "evalbot dev") {
		t.Errorf("output = %q", out.String())
	}
}

func TestEngineCommandHidden(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"engine"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !cmd.Hidden {
		t.Error("engine subcommand should be hidden")
	}
}
