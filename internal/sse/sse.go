// Package sse reads OpenAI-style server-sent event streams and writes the
// minimal `data:` framing the chat UI consumes.
package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// DoneSentinel terminates an upstream stream.
const DoneSentinel = "[DONE]"

// maxLine bounds a single event line.
const maxLine = 1 << 20

// Lines yields newline-delimited lines from r, including a final line that
// is not newline-terminated. A trailing CR is stripped. Iteration stops at
// the first read error, which is yielded once with an empty line.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			if !yield(strings.TrimSuffix(sc.Text(), "\r"), nil) {
				return
			}
		}
		if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
			yield("", err)
		}
	}
}

// Kind classifies a parsed line.
type Kind int

const (
	// KindSkip is a non-data, malformed or content-free line.
	KindSkip Kind = iota
	// KindDelta carries a non-empty content fragment.
	KindDelta
	// KindDone is the [DONE] sentinel.
	KindDone
)

// Frame is the meaning of one upstream line.
type Frame struct {
	Kind  Kind
	Delta string
}

// Parse interprets one line. Lines that are not `data:` lines, payloads that
// are not valid JSON and chunks without choices[0].delta.content are skipped.
func Parse(line string) Frame {
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return Frame{}
	}
	payload = strings.TrimPrefix(payload, " ")
	if payload == DoneSentinel {
		return Frame{Kind: KindDone}
	}
	if !gjson.Valid(payload) {
		return Frame{}
	}
	content := gjson.Get(payload, "choices.0.delta.content")
	if content.Type != gjson.String || content.Str == "" {
		return Frame{}
	}
	return Frame{Kind: KindDelta, Delta: content.Str}
}

// SetHeaders prepares w for an event stream. Call before the first write.
func SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Writer emits `data: <payload>\n\n` frames and flushes after each one.
type Writer struct {
	w io.Writer
	f http.Flusher
}

// NewWriter wraps w; flushing is a no-op when w does not implement http.Flusher.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, f: f}
}

// Data writes one frame verbatim.
func (s *Writer) Data(payload string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if s.f != nil {
		s.f.Flush()
	}
	return nil
}

// Done writes the terminating sentinel frame.
func (s *Writer) Done() error { return s.Data(DoneSentinel) }
