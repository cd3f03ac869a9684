package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/contextwindow"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/manager"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/registry"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/relay"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/store"
	"github.com/TasosParaskevakis/lmstudio-chat-app/pkg/types"
)

type mockLifecycle struct {
	snap    manager.Snapshot
	loads   []string
	unloads int
}

func (m *mockLifecycle) Status() manager.Snapshot { return m.snap }
func (m *mockLifecycle) Ready() bool { return m.snap.Ready() }
func (m *mockLifecycle) RequestLoad(name string) bool {
	m.loads = append(m.loads, name)
	return true
}
func (m *mockLifecycle) RequestUnload() bool { m.unloads++; return true }

type mockCatalog struct{ l registry.Listing }

func (m mockCatalog) Available(context.Context) registry.Listing { return m.l }

type mockStreamer struct{ body string }

func (m mockStreamer) StreamChat(context.Context, string, []contextwindow.PromptMessage) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(m.body)), nil
}

const twoDeltas = "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n\n" +
	"data: [DONE]\n\n"

type testEnv struct {
	mux   http.Handler
	life  *mockLifecycle
	store *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	life := &mockLifecycle{snap: manager.Snapshot{State: manager.StateIdle}}
	rl := relay.New(life, st, mockStreamer{body: twoDeltas}, contextwindow.NewBuilder(nil), relay.Config{
		MaxContextTokens: 4096,
		HistoryEnabled:   true,
	})
	mux := NewMux(Deps{
		Lifecycle: life,
		Catalog:   mockCatalog{l: registry.Listing{Models: []string{"m1", "m2"}}},
		Store:     st,
		Relay:     rl,
	})
	return &testEnv{mux: mux, life: life, store: st}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("body=%q", w.Body.String())
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestModelsAvailable(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/api/models/available", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 || body.Note != "" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if strings.Contains(w.Body.String(), "note") {
		t.Fatalf("note should be omitted: %q", w.Body.String())
	}
}

func TestModelsStatus_NullModelWhenIdle(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/api/models/status", "/api/models/loaded"} {
		w := e.do(http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"model":null`) || !strings.Contains(w.Body.String(), `"status":"idle"`) {
			t.Fatalf("%s body=%q", path, w.Body.String())
		}
	}
}

func TestModelsStatus_Loading(t *testing.T) {
	e := newTestEnv(t)
	e.life.snap = manager.Snapshot{ActiveModel: "m1", State: manager.StateLoading, Progress: 42}
	w := e.do(http.MethodGet, "/api/models/status", "")
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Model == nil || *body.Model != "m1" || body.Status != "loading" || body.Progress != 42 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestModelsLoad(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodPost, "/api/models/load", `{"name":"m1"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"statusUrl":"/api/models/status"`) {
		t.Fatalf("body=%q", w.Body.String())
	}
	if len(e.life.loads) != 1 || e.life.loads[0] != "m1" {
		t.Fatalf("loads=%v", e.life.loads)
	}
}

func TestModelsLoad_Validation(t *testing.T) {
	e := newTestEnv(t)
	cases := map[string]string{
		"missing name": `{}`,
		"blank name":   `{"name":"  "}`,
		"bad json":     `{"name":`,
	}
	for name, body := range cases {
		w := e.do(http.MethodPost, "/api/models/load", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", name, w.Code)
		}
	}
	if len(e.life.loads) != 0 {
		t.Fatalf("no load expected, got %v", e.life.loads)
	}
}

func TestModelsUnload(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodPost, "/api/models/unload", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d", w.Code)
	}
	if e.life.unloads != 1 {
		t.Fatalf("unloads=%d", e.life.unloads)
	}
}

func TestReadyz(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/readyz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	e.life.snap = manager.Snapshot{ActiveModel: "m1", State: manager.StateIdle, Progress: 100}
	w = e.do(http.MethodGet, "/readyz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestChatsCRUD(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/chats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%q", w.Code, w.Body.String())
	}
	var created types.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("json: %v", err)
	}
	if created.Chat.Title != "New Chat" || created.Chat.ID == "" {
		t.Fatalf("unexpected chat: %+v", created.Chat)
	}
	id := created.Chat.ID

	w = e.do(http.MethodPatch, "/api/chats/"+id, `{"title":"Renamed","systemPrompt":"be brief"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status=%d", w.Code)
	}
	var patched types.ChatResponse
	_ = json.Unmarshal(w.Body.Bytes(), &patched)
	if patched.Chat.Title != "Renamed" || patched.Chat.SystemPrompt == nil || *patched.Chat.SystemPrompt != "be brief" {
		t.Fatalf("unexpected patched chat: %+v", patched.Chat)
	}

	w = e.do(http.MethodPost, "/api/chats/"+id+"/messages", `{"role":"user","content":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("add message status=%d", w.Code)
	}
	var msg types.MessageResponse
	_ = json.Unmarshal(w.Body.Bytes(), &msg)

	w = e.do(http.MethodGet, "/api/chats/"+id, "")
	var detail types.ChatDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(detail.Messages) != 1 || detail.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", detail.Messages)
	}

	w = e.do(http.MethodGet, "/api/chats", "")
	var list types.ChatsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Chats) != 1 {
		t.Fatalf("chats=%d", len(list.Chats))
	}

	w = e.do(http.MethodDelete, "/api/chats/"+id+"/messages/"+msg.Message.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete message status=%d", w.Code)
	}
	w = e.do(http.MethodDelete, "/api/chats/"+id, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete chat status=%d", w.Code)
	}
	w = e.do(http.MethodGet, "/api/chats/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"Not found"`) {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestAddMessage_Validation(t *testing.T) {
	e := newTestEnv(t)
	c, err := e.store.CreateChat(context.Background(), "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := e.do(http.MethodPost, "/api/chats/"+c.ID+"/messages", `{"role":"user"}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "role and content required") {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	w = e.do(http.MethodPost, "/api/chats/"+c.ID+"/messages", `{"role":"tool","content":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	w = e.do(http.MethodPost, "/api/chats/missing/messages", `{"role":"user","content":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestChat_NotReadyBeatsBadInput(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodPost, "/api/chat", `{}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"needModelLoad":true}` {
		t.Fatalf("body=%q", w.Body.String())
	}
	w = e.do(http.MethodPost, "/api/chat", `{"chatId":`)
	if w.Code != http.StatusConflict {
		t.Fatalf("bad json while not ready: status=%d", w.Code)
	}
}

func TestChat_MissingFields(t *testing.T) {
	e := newTestEnv(t)
	e.life.snap = manager.Snapshot{ActiveModel: "m1", State: manager.StateIdle, Progress: 100}
	w := e.do(http.MethodPost, "/api/chat", `{"chatId":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "chatId and message required") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestChat_StreamsAndPersists(t *testing.T) {
	e := newTestEnv(t)
	e.life.snap = manager.Snapshot{ActiveModel: "m1", State: manager.StateIdle, Progress: 100}
	c, err := e.store.CreateChat(context.Background(), "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := e.do(http.MethodPost, "/api/chat", `{"chatId":"`+c.ID+`","message":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%s", ct)
	}
	want := "data: Hi\n\ndata:  there\n\ndata: [DONE]\n\n"
	if w.Body.String() != want {
		t.Fatalf("body=%q want %q", w.Body.String(), want)
	}

	msgs, err := e.store.ListMessages(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Content != "Hi there" {
		t.Fatalf("unexpected transcript: %+v", msgs)
	}
	got, _ := e.store.GetChat(context.Background(), c.ID)
	if got.Model != "m1" {
		t.Fatalf("chat model=%q", got.Model)
	}
}

func TestChat_UnknownChatErrorFrame(t *testing.T) {
	e := newTestEnv(t)
	e.life.snap = manager.Snapshot{ActiveModel: "m1", State: manager.StateIdle, Progress: 100}
	w := e.do(http.MethodPost, "/api/chat", `{"chatId":"nope","message":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `data: {"error":"Chat not found"}`) {
		t.Fatalf("body=%q", w.Body.String())
	}
}
