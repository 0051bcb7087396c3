package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mcpbridge/internal/domain"
)

// Event is one decoded SSE frame.
type Event struct {
	Name string
	Data json.RawMessage
}

// EventWriter emits named events to one stream.
type EventWriter interface {
	WriteEvent(name string, payload any) error
}

// Writer frames payloads as "event: <name>\ndata: <json>\n\n" and flushes
// after every frame when the destination supports it.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// WriteEvent encodes payload as compact JSON with non-ASCII text kept
// literal. Failures to reach the peer wrap domain.ErrStreamTransport.
func (w *Writer) WriteEvent(name string, payload any) error {
	data, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}

	var frame bytes.Buffer
	if name != "" {
		frame.WriteString("event: ")
		frame.WriteString(name)
		frame.WriteByte('\n')
	}
	frame.WriteString("data: ")
	frame.Write(data)
	frame.WriteString("\n\n")

	if _, err := w.w.Write(frame.Bytes()); err != nil {
		return fmt.Errorf("%w: write %s event: %w", domain.ErrStreamTransport, name, err)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

func encodePayload(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ReadEvent returns the next frame from r, skipping comments and blank
// keep-alive lines. Multiple data lines are joined with newlines. A frame cut
// short by EOF is still returned; io.EOF follows on the next call.
func ReadEvent(r *bufio.Reader) (Event, error) {
	var event Event
	var data []byte
	pending := func() bool { return event.Name != "" || len(data) > 0 }
	for {
		line, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF && pending() {
				event.Data = data
				return event, nil
			}
			return Event{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if pending() {
				event.Data = data
				return event, nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")...)
		}
		if err == io.EOF {
			if pending() {
				event.Data = data
				return event, nil
			}
			return Event{}, io.EOF
		}
	}
}
