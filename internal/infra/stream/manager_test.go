package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpbridge/internal/domain"
)

type recordedEvent struct {
	name    string
	payload json.RawMessage
}

type recordingWriter struct {
	mu     sync.Mutex
	events []recordedEvent
	failOn func(name string, index int) error
	notify chan string
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{notify: make(chan string, 64)}
}

func (w *recordingWriter) WriteEvent(name string, payload any) error {
	w.mu.Lock()
	index := len(w.events)
	if w.failOn != nil {
		if err := w.failOn(name, index); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	data, _ := json.Marshal(payload)
	w.events = append(w.events, recordedEvent{name: name, payload: data})
	w.mu.Unlock()
	select {
	case w.notify <- name:
	default:
	}
	return nil
}

func (w *recordingWriter) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.events))
	for _, e := range w.events {
		names = append(names, e.name)
	}
	return names
}

func (w *recordingWriter) Event(i int) recordedEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events[i]
}

type stubCatalog struct {
	catalog domain.ToolCatalog
	err     error
	calls   int
	mu      sync.Mutex
}

func (s *stubCatalog) Get(context.Context) (domain.ToolCatalog, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.catalog, s.err
}

func sampleCatalog() domain.ToolCatalog {
	return domain.ToolCatalog{
		Tools: []domain.ToolDescriptor{
			domain.NewToolDescriptor("get_orders", "List orders", json.RawMessage(`{"type":"object"}`)),
		},
		FetchedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func waitFor(t *testing.T, w *recordingWriter, name string, count int) {
	t.Helper()
	seen := 0
	for _, n := range w.Names() {
		if n == name {
			seen++
		}
	}
	deadline := time.After(2 * time.Second)
	for seen < count {
		select {
		case n := <-w.notify:
			if n == name {
				seen++
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d %s events, got %v", count, name, w.Names())
		}
	}
}

func TestManager_EventOrder(t *testing.T) {
	catalog := &stubCatalog{catalog: sampleCatalog()}
	m := NewManager(catalog, Options{HeartbeatInterval: 5 * time.Millisecond, NewID: func() string { return "sess-1" }})
	w := newRecordingWriter()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, w) }()

	waitFor(t, w, domain.EventHeartbeat, 3)
	cancel()
	require.NoError(t, <-done)

	names := w.Names()
	require.Equal(t, domain.EventConnected, names[0])
	require.Equal(t, domain.EventTools, names[1])
	for _, name := range names[2:] {
		require.Equal(t, domain.EventHeartbeat, name)
	}
	require.Equal(t, 1, catalog.calls)

	var connected domain.ConnectedEvent
	require.NoError(t, json.Unmarshal(w.Event(0).payload, &connected))
	require.Equal(t, "connected", connected.Status)
	require.NotEmpty(t, connected.Timestamp)

	require.JSONEq(t,
		`{"type":"tools","tools":[{"name":"get_orders","description":"List orders","parameters":{"type":"object"}}]}`,
		string(w.Event(1).payload))

	var beat domain.HeartbeatEvent
	require.NoError(t, json.Unmarshal(w.Event(2).payload, &beat))
	require.Equal(t, "heartbeat", beat.Type)
	require.Equal(t, "alive", beat.Status)
	require.Equal(t, 0, m.ActiveSessions())
}

func TestManager_DisconnectStopsHeartbeats(t *testing.T) {
	m := NewManager(&stubCatalog{catalog: sampleCatalog()}, Options{HeartbeatInterval: 10 * time.Millisecond})
	w := newRecordingWriter()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, w) }()

	waitFor(t, w, domain.EventHeartbeat, 1)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Millisecond * 5):
		t.Fatal("session did not stop after disconnect")
	}

	count := len(w.Names())
	time.Sleep(50 * time.Millisecond)
	require.Len(t, w.Names(), count)
}

func TestManager_CatalogFailureEmitsErrorEvent(t *testing.T) {
	catalog := &stubCatalog{err: domain.Unavailable("backend.fetch_catalog", errors.New("connection refused"))}
	m := NewManager(catalog, Options{HeartbeatInterval: time.Millisecond})
	w := newRecordingWriter()

	err := m.Serve(context.Background(), w)
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
	require.Equal(t, []string{domain.EventConnected, domain.EventError}, w.Names())

	var event domain.ErrorEvent
	require.NoError(t, json.Unmarshal(w.Event(1).payload, &event))
	require.Equal(t, "error", event.Type)
	require.Contains(t, event.Message, "connection refused")
	require.NotEmpty(t, event.Timestamp)
}

func TestManager_StaleCatalogStillStreams(t *testing.T) {
	stale := sampleCatalog()
	catalog := &stubCatalog{
		catalog: stale,
		err:     domain.E(domain.CodeUnavailable, "catalog.get", "serving stale catalog", domain.ErrStaleCatalog),
	}
	m := NewManager(catalog, Options{HeartbeatInterval: time.Hour})
	w := newRecordingWriter()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, w) }()

	waitFor(t, w, domain.EventTools, 1)
	cancel()
	require.NoError(t, <-done)
	require.Equal(t, []string{domain.EventConnected, domain.EventTools}, w.Names())
}

func TestManager_TransportFailureCloses(t *testing.T) {
	m := NewManager(&stubCatalog{catalog: sampleCatalog()}, Options{HeartbeatInterval: time.Millisecond})
	w := newRecordingWriter()
	w.failOn = func(name string, _ int) error {
		if name == domain.EventHeartbeat {
			return domain.ErrStreamTransport
		}
		return nil
	}

	err := m.Serve(context.Background(), w)
	require.ErrorIs(t, err, domain.ErrStreamTransport)
	require.Equal(t, []string{domain.EventConnected, domain.EventTools}, w.Names())
}

func TestManager_UnexpectedErrorMidLoop(t *testing.T) {
	m := NewManager(&stubCatalog{catalog: sampleCatalog()}, Options{HeartbeatInterval: time.Millisecond})
	w := newRecordingWriter()
	w.failOn = func(name string, index int) error {
		if name == domain.EventHeartbeat && index == 3 {
			return errors.New("encode heartbeat event: boom")
		}
		return nil
	}

	err := m.Serve(context.Background(), w)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrStreamTransport)

	names := w.Names()
	require.Equal(t, []string{
		domain.EventConnected,
		domain.EventTools,
		domain.EventHeartbeat,
		domain.EventError,
	}, names)
}

func TestManager_ShutdownClosesSessions(t *testing.T) {
	m := NewManager(&stubCatalog{catalog: sampleCatalog()}, Options{HeartbeatInterval: time.Hour})

	const sessions = 3
	var wg sync.WaitGroup
	writers := make([]*recordingWriter, sessions)
	for i := range writers {
		writers[i] = newRecordingWriter()
		wg.Add(1)
		go func(w *recordingWriter) {
			defer wg.Done()
			require.NoError(t, m.Serve(context.Background(), w))
		}(writers[i])
	}
	for _, w := range writers {
		waitFor(t, w, domain.EventTools, 1)
	}
	require.Equal(t, sessions, m.ActiveSessions())

	m.Shutdown()
	m.Shutdown()
	wg.Wait()
	require.Equal(t, 0, m.ActiveSessions())
}

func TestSession_TerminalIsSticky(t *testing.T) {
	s := newSession("s", time.Now())
	_, ok := s.transition(domain.SessionErrored)
	require.True(t, ok)
	_, ok = s.transition(domain.SessionStreaming)
	require.False(t, ok)
	require.Equal(t, domain.SessionErrored, s.State())
}
