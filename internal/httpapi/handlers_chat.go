package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/manager"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/relay"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/sse"
	"github.com/TasosParaskevakis/lmstudio-chat-app/pkg/types"
)

// chat godoc
// @Summary      Send a message and stream the reply
// @Description  Persists the user turn, streams the completion as `data: <token>` frames ending in `data: [DONE]`, then persists the reply. Failures after the stream has started arrive as a `data: {"error": "..."}` frame.
// @Tags         chat
// @Accept       json
// @Produce      text/event-stream
// @Param        body body types.ChatRequest true "Chat id and message"
// @Success      200 {string} string "event stream"
// @Failure      400 {object} types.ErrorResponse
// @Failure      409 {object} types.NeedModelLoadResponse
// @Router       /api/chat [post]
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		// The lifecycle check still comes first.
		if !h.Lifecycle.Ready() {
			IncrementChatRejected("not_ready")
			writeJSON(w, http.StatusConflict, types.NeedModelLoadResponse{NeedModelLoad: true})
			return
		}
		IncrementChatRejected("bad_json")
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rreq := relay.Request{ChatID: req.ChatID, Message: req.Message}
	model, err := h.Relay.Check(rreq)
	if err != nil {
		if manager.IsModelNotReady(err) {
			IncrementChatRejected("not_ready")
			writeJSON(w, http.StatusConflict, types.NeedModelLoadResponse{NeedModelLoad: true})
			return
		}
		IncrementChatRejected("bad_request")
		writeJSONError(w, statusFor(err), err.Error())
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	logEvent(r, lvl, "chat start", http.StatusOK, time.Time{}, nil, map[string]any{"model": model, "chat_id": req.ChatID})

	sse.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	// Optional logging of outbound frames
	out := io.Writer(w)
	if lvl >= LevelDebug {
		out = &flushingMultiWriter{Writer: io.MultiWriter(w, &loggingLineWriter{}), f: w}
	}

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	res := h.Relay.Stream(ctx, model, rreq, sse.NewWriter(out))

	logEvent(r, lvl, "chat end", http.StatusOK, start, res.Err, map[string]any{
		"model":       model,
		"deltas":      res.Deltas,
		"persisted":   res.Persisted,
		"client_gone": res.ClientGone,
	})
}

// flushingMultiWriter keeps http.Flusher reachable behind an io.MultiWriter.
type flushingMultiWriter struct {
	io.Writer
	f http.ResponseWriter
}

func (m *flushingMultiWriter) Flush() {
	if fl, ok := m.f.(http.Flusher); ok {
		fl.Flush()
	}
}
