// Package relay proxies one chat exchange: it persists the user turn, builds
// a bounded prompt, streams the backend completion to the caller as it
// arrives and persists the assistant reply once the stream ends.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/contextwindow"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/manager"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/sse"
	"github.com/TasosParaskevakis/lmstudio-chat-app/internal/store"
)

const defaultPersistTimeout = 10 * time.Second

// StatusReader exposes the lifecycle snapshot.
type StatusReader interface {
	Status() manager.Snapshot
}

// Store is the persistence the relay needs.
type Store interface {
	GetChat(ctx context.Context, id string) (store.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]store.Message, error)
	AddMessage(ctx context.Context, chatID, role, content string) (store.Message, error)
	TouchChat(ctx context.Context, id string, model *string) error
}

// Streamer opens a streaming completion on the inference backend.
type Streamer interface {
	StreamChat(ctx context.Context, model string, messages []contextwindow.PromptMessage) (io.ReadCloser, error)
}

// FrameWriter receives outbound event-stream frames.
type FrameWriter interface {
	Data(payload string) error
	Done() error
}

// Config holds the relay tunables.
type Config struct {
	MaxContextTokens int
	HistoryEnabled   bool
	// PersistTimeout bounds the assistant write, which runs detached from
	// the request so a disconnect does not lose received content.
	PersistTimeout time.Duration
	Logger         *zerolog.Logger
}

// Relay is safe for concurrent use; each Stream call is independent.
type Relay struct {
	status  StatusReader
	store   Store
	backend Streamer
	builder contextwindow.Builder
	cfg     Config
	log     zerolog.Logger
}

// New wires a relay. A zero Builder uses the approximate estimator.
func New(status StatusReader, st Store, backend Streamer, builder contextwindow.Builder, cfg Config) *Relay {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	r := &Relay{status: status, store: st, backend: backend, builder: builder, cfg: cfg}
	if cfg.Logger != nil {
		r.log = *cfg.Logger
	} else {
		r.log = zerolog.Nop()
	}
	return r
}

// Request is an inbound chat turn.
type Request struct {
	ChatID  string
	Message string
}

// Check validates preconditions before anything is written. The lifecycle
// is checked first, so a missing model wins over bad input. It returns the
// active model name.
func (r *Relay) Check(req Request) (string, error) {
	s := r.status.Status()
	if err := manager.RequireReady(s); err != nil {
		exchangesTotal.WithLabelValues("not_ready").Inc()
		return "", err
	}
	if strings.TrimSpace(req.ChatID) == "" || strings.TrimSpace(req.Message) == "" {
		exchangesTotal.WithLabelValues("bad_request").Inc()
		return "", &ClientInputError{Msg: "chatId and message required"}
	}
	return s.ActiveModel, nil
}

// Outcome summarizes a finished exchange.
type Outcome struct {
	Deltas     int
	Transcript string
	Persisted  bool
	ClientGone bool
	// Err is the error delivered in-band, if any.
	Err error
}

// Stream runs the exchange for a request that passed Check. All failures are
// reported to out as a single {"error": ...} frame; Stream never returns an
// HTTP-level error.
func (r *Relay) Stream(ctx context.Context, model string, req Request, out FrameWriter) Outcome {
	var res Outcome
	prompt, err := r.begin(ctx, model, req)
	if err != nil {
		res.Err = err
		r.finish(out, &res, false)
		return res
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	body, err := r.backend.StreamChat(streamCtx, model, prompt)
	if err != nil {
		res.Err = &UpstreamError{Err: err}
		r.finish(out, &res, false)
		return res
	}
	defer body.Close()

	var transcript strings.Builder
	sawDone := false
loop:
	for line, rerr := range sse.Lines(body) {
		if rerr != nil {
			if !res.ClientGone && ctx.Err() == nil {
				res.Err = &UpstreamError{Err: rerr}
			}
			break
		}
		f := sse.Parse(line)
		switch f.Kind {
		case sse.KindDone:
			sawDone = true
			break loop
		case sse.KindDelta:
			transcript.WriteString(f.Delta)
			res.Deltas++
			deltasTotal.Inc()
			if res.ClientGone {
				continue
			}
			if werr := out.Data(f.Delta); werr != nil {
				// Nobody is listening any more; stop reading the backend
				// and keep what has arrived.
				res.ClientGone = true
				cancel()
			}
		}
	}
	if ctx.Err() != nil {
		res.ClientGone = true
	}

	res.Transcript = transcript.String()
	r.finish(out, &res, sawDone)
	r.persistReply(ctx, req.ChatID, &res)
	return res
}

// begin persists the user turn, stamps the chat with the active model and
// builds the prompt. Any error here aborts before the backend is called.
func (r *Relay) begin(ctx context.Context, model string, req Request) ([]contextwindow.PromptMessage, error) {
	if _, err := r.store.AddMessage(ctx, req.ChatID, store.RoleUser, req.Message); err != nil {
		persistFailures.WithLabelValues("user").Inc()
		return nil, persistError(err)
	}
	if err := r.store.TouchChat(ctx, req.ChatID, &model); err != nil {
		persistFailures.WithLabelValues("touch").Inc()
		return nil, persistError(err)
	}
	chat, err := r.store.GetChat(ctx, req.ChatID)
	if err != nil {
		return nil, persistError(err)
	}
	in := contextwindow.Input{
		MaxTokens:      r.cfg.MaxContextTokens,
		HistoryEnabled: r.cfg.HistoryEnabled,
		Incoming:       req.Message,
	}
	if chat.SystemPrompt != nil {
		in.SystemPrompt = *chat.SystemPrompt
	}
	if r.cfg.HistoryEnabled {
		msgs, err := r.store.ListMessages(ctx, req.ChatID)
		if err != nil {
			return nil, persistError(err)
		}
		in.History = make([]contextwindow.PromptMessage, 0, len(msgs))
		for _, m := range msgs {
			in.History = append(in.History, contextwindow.PromptMessage{Role: contextwindow.Role(m.Role), Content: m.Content})
		}
	}
	return r.builder.Build(in), nil
}

func persistError(err error) error {
	if store.IsNotFound(err) {
		return errors.New("Chat not found")
	}
	return err
}

// finish writes the terminal frame: the error if one occurred, otherwise
// the sentinel when the backend sent one.
func (r *Relay) finish(out FrameWriter, res *Outcome, sawDone bool) {
	switch {
	case res.Err != nil:
		exchangesTotal.WithLabelValues("error").Inc()
		if !res.ClientGone {
			_ = out.Data(errorFrame(res.Err))
		}
	case res.ClientGone:
		exchangesTotal.WithLabelValues("client_gone").Inc()
	default:
		exchangesTotal.WithLabelValues("ok").Inc()
		if sawDone {
			_ = out.Done()
		}
	}
}

// persistReply stores a non-blank transcript. Failures are logged only: the
// caller already has the content.
func (r *Relay) persistReply(ctx context.Context, chatID string, res *Outcome) {
	if strings.TrimSpace(res.Transcript) == "" {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.PersistTimeout)
	defer cancel()
	if _, err := r.store.AddMessage(pctx, chatID, store.RoleAssistant, res.Transcript); err != nil {
		persistFailures.WithLabelValues("assistant").Inc()
		r.log.Warn().Err(err).Str("chat_id", chatID).Msg("persist assistant reply failed")
		return
	}
	res.Persisted = true
	if err := r.store.TouchChat(pctx, chatID, nil); err != nil {
		persistFailures.WithLabelValues("touch").Inc()
		r.log.Warn().Err(err).Str("chat_id", chatID).Msg("touch chat failed")
	}
}

type errorPayload struct {
	Error string `json:"error"`
}

func errorFrame(err error) string {
	msg := err.Error()
	if msg == "" {
		msg = "Error"
	}
	b, _ := json.Marshal(errorPayload{Error: msg})
	return string(b)
}
