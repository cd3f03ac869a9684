package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/contextwindow"
)

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"m1","object":"model"},{"id":""},{"id":"m2","object":"model"}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/v1/", Options{})
	assert.Equal(t, srv.URL+"/v1", c.BaseURL())
	got, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, got)
}

func TestListModels_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, Options{ConnectTimeout: 200 * time.Millisecond}).ListModels(context.Background())
	assert.Error(t, err)
}

func TestWarmup_SendsDeterministicOneTokenRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	require.NoError(t, New(srv.URL, Options{APIKey: "k"}).Warmup(context.Background(), "m1"))
	assert.Equal(t, "m1", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, float64(0), got["temperature"])
	assert.Equal(t, float64(1), got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": WarmupPrompt}, msgs[0])
}

func TestWarmup_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL, Options{}).Warmup(context.Background(), "m1")
	require.Error(t, err)
	assert.True(t, IsUpstreamStatus(err))
}

func TestStreamChat_ReturnsBody(t *testing.T) {
	var req map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	body, err := New(srv.URL, Options{}).StreamChat(context.Background(), "m1", []contextwindow.PromptMessage{
		{Role: contextwindow.RoleSystem, Content: "sys"},
		{Role: contextwindow.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	defer body.Close()
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[DONE]")

	assert.Equal(t, true, req["stream"])
	assert.Equal(t, "m1", req["model"])
	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "hello", msgs[1].(map[string]any)["content"])
}

func TestStreamChat_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no model loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, Options{}).StreamChat(context.Background(), "m1", nil)
	require.Error(t, err)
	var ue *UpstreamStatusError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
	assert.Equal(t, "Upstream error 503", ue.Error())
	assert.Contains(t, ue.Body, "no model loaded")
}
