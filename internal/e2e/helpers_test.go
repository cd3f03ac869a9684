package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/backend"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/contextwindow"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/httpapi"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/manager"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/registry"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/relay"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/store"
	"github.com/TasosParaskevakis/lmstudio-chat-app/pkg/types"
)

// fakeLMStudio imitates the OpenAI-compatible endpoints the relay uses.
type fakeLMStudio struct {
	mu          sync.Mutex
	models      []string
	tokens      []string
	streamCode  int
	warmups     int
	lastRequest openai.ChatCompletionRequest
}

func (f *fakeLMStudio) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := openai.ModelsList{}
		for _, m := range f.models {
			list.Models = append(list.Models, openai.Model{ID: m, Object: "model"})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		if !req.Stream {
			f.warmups++
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"pong"}}]}`)
			return
		}
		f.lastRequest = req
		code, tokens := f.streamCode, append([]string(nil), f.tokens...)
		f.mu.Unlock()
		if code != 0 {
			http.Error(w, "boom", code)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		for _, tok := range tokens {
			b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"delta": map[string]string{"content": tok}}}})
			fmt.Fprintf(w, "data: %s\n\n", b)
			if fl != nil {
				fl.Flush()
			}
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})
	return mux
}

func (f *fakeLMStudio) prompt() []openai.ChatCompletionMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionMessage(nil), f.lastRequest.Messages...)
}

type stack struct {
	api     *httptest.Server
	lm      *fakeLMStudio
	manager *manager.Manager
	store   *store.Store
	dbPath  string
}

type stackOpts struct {
	dbPath     string
	backendURL string
	history    bool
	maxTokens  int
}

// newStack wires the full service graph against a fake backend. A non-empty
// backendURL overrides the fake.
func newStack(t *testing.T, o stackOpts) *stack {
	t.Helper()
	lm := &fakeLMStudio{models: []string{"qwen2.5-7b-instruct", "llama-3.2-3b-instruct"}, tokens: []string{"Hel", "lo", "!"}}
	lmSrv := httptest.NewServer(lm.handler())
	t.Cleanup(lmSrv.Close)
	baseURL := lmSrv.URL + "/v1"
	if o.backendURL != "" {
		baseURL = o.backendURL
	}
	if o.dbPath == "" {
		o.dbPath = filepath.Join(t.TempDir(), "dev.db")
	}
	if o.maxTokens == 0 {
		o.maxTokens = 4096
	}

	st, err := store.Open(context.Background(), "file:"+o.dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	be := backend.New(baseURL, backend.Options{})
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Warmer:        be,
		Memory:        store.ModelMemory{S: st},
		TickInterval:  5 * time.Millisecond,
		MinVisual:     30 * time.Millisecond,
		MaxVisual:     40 * time.Millisecond,
		WarmupTimeout: 2 * time.Second,
		UnloadDelay:   20 * time.Millisecond,
	})
	if err := mgr.Init(context.Background()); err != nil {
		t.Fatalf("init manager: %v", err)
	}
	rl := relay.New(mgr, st, be, contextwindow.NewBuilder(nil), relay.Config{
		MaxContextTokens: o.maxTokens,
		HistoryEnabled:   o.history,
	})
	mux := httpapi.NewMux(httpapi.Deps{
		Lifecycle: mgr,
		Catalog:   registry.NewCatalog(be, "", nil),
		Store:     st,
		Relay:     rl,
	})
	api := httptest.NewServer(mux)
	t.Cleanup(func() {
		api.Close()
		mgr.Close()
		st.Close()
	})
	return &stack{api: api, lm: lm, manager: mgr, store: st, dbPath: o.dbPath}
}

func (s *stack) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	return s.do(t, http.MethodGet, path, "")
}

func (s *stack) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	return s.do(t, http.MethodPost, path, body)
}

func (s *stack) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.api.URL+path, rd)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func (s *stack) status(t *testing.T) types.StatusResponse {
	t.Helper()
	_, body := s.get(t, "/api/models/status")
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("status json: %v (%q)", err, body)
	}
	return st
}

// waitStatus polls until cond holds or the deadline passes.
func (s *stack) waitStatus(t *testing.T, cond func(types.StatusResponse) bool) types.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		st := s.status(t)
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for status, last=%+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *stack) loadAndWait(t *testing.T, model string) {
	t.Helper()
	resp, body := s.post(t, "/api/models/load", `{"name":"`+model+`"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("load status=%d body=%s", resp.StatusCode, body)
	}
	s.waitStatus(t, func(st types.StatusResponse) bool {
		return st.Status == "idle" && st.Model != nil && *st.Model == model && st.Progress == 100
	})
}

func (s *stack) newChat(t *testing.T) string {
	t.Helper()
	_, body := s.post(t, "/api/chats", `{"title":"e2e"}`)
	var c types.ChatResponse
	if err := json.Unmarshal(body, &c); err != nil || c.Chat.ID == "" {
		t.Fatalf("create chat: %v (%q)", err, body)
	}
	return c.Chat.ID
}

// dataFrames returns the payloads of every "data: " frame in an event stream.
func dataFrames(body []byte) []string {
	var out []string
	for _, block := range strings.Split(string(body), "\n\n") {
		if p, ok := strings.CutPrefix(block, "data: "); ok {
			out = append(out, p)
		}
	}
	return out
}
