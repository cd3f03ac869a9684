package httpapi

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// loggingLineWriter logs complete event-stream lines, skipping the blank
// frame separators.
type loggingLineWriter struct {
	buf []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(lw.buf[:idx])
		if len(line) > 0 {
			if zlog != nil {
				zlog.Debug().Str("line", line).Msg("relay>")
			} else {
				log.Printf("relay> %s", line)
			}
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("LMRELAY_HTTP_LOG_LEVEL"))

// SetDefaultLogLevel overrides the level used when a request carries none.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logEvent emits one request-scoped record at info level when lvl allows it.
func logEvent(r *http.Request, lvl LogLevel, msg string, status int, start time.Time, err error, fields map[string]any) {
	if lvl < LevelInfo && !(lvl >= LevelError && err != nil) {
		return
	}
	rid := middleware.GetReqID(r.Context())
	if zlog != nil {
		z := zlog.Info()
		if err != nil {
			z = zlog.Error().Err(err)
		}
		z = z.Str("path", r.URL.Path).Int("status", status)
		if !start.IsZero() {
			z = z.Dur("dur", time.Since(start))
		}
		if rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Fields(fields).Msg(msg)
		return
	}
	if err != nil {
		log.Printf("%s path=%s status=%d request_id=%s err=%v %v", msg, r.URL.Path, status, rid, err, fields)
		return
	}
	log.Printf("%s path=%s status=%d request_id=%s %v", msg, r.URL.Path, status, rid, fields)
}
