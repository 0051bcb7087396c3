package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
	"mcpbridge/internal/infra/telemetry"
)

// CatalogReader is the read side of the catalog cache.
type CatalogReader interface {
	Get(ctx context.Context) (domain.ToolCatalog, error)
}

type Options struct {
	HeartbeatInterval time.Duration
	Metrics           domain.Metrics
	Logger            *zap.Logger
	Now               func() time.Time
	NewID             func() string
}

// Manager runs stream sessions. Sessions share nothing but the catalog.
type Manager struct {
	catalog   CatalogReader
	heartbeat time.Duration
	metrics   domain.Metrics
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	active    atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

func NewManager(catalog CatalogReader, opts Options) *Manager {
	heartbeat := opts.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = time.Duration(domain.DefaultHeartbeatSeconds) * time.Second
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Manager{
		catalog:   catalog,
		heartbeat: heartbeat,
		metrics:   metrics,
		logger:    logger.Named("stream"),
		now:       now,
		newID:     newID,
		done:      make(chan struct{}),
	}
}

// ActiveSessions returns the number of sessions currently being served.
func (m *Manager) ActiveSessions() int {
	return int(m.active.Load())
}

// Shutdown ends every open session as closed. It is safe to call more than once.
func (m *Manager) Shutdown() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Serve runs one session against w until ctx is canceled, the peer goes
// away, the manager shuts down or the session errors. Events are written in
// the order connected, tools, heartbeat* and at most one trailing error.
//
// A nil return means the session closed normally. Transport failures are
// returned wrapped in domain.ErrStreamTransport; any other error means an
// error event was sent (when possible) and the session is errored.
func (m *Manager) Serve(ctx context.Context, w EventWriter) error {
	session := newSession(m.newID(), m.now())
	ctx = telemetry.WithSessionID(ctx, session.ID())
	logger := telemetry.LoggerWithRequest(ctx, m.logger)

	m.active.Add(1)
	m.metrics.AddActiveSessions(1)
	logger.Info("session opened", telemetry.EventField(telemetry.EventSessionOpen))

	err := m.run(ctx, session, w, logger)

	state := session.State()
	duration := m.now().Sub(session.Snapshot().OpenedAt)
	m.active.Add(-1)
	m.metrics.AddActiveSessions(-1)
	m.metrics.ObserveSessionEnd(state, duration)

	fields := []zap.Field{
		telemetry.EventField(telemetry.EventSessionEnd),
		telemetry.StateField(string(state)),
		telemetry.DurationField(duration),
	}
	if err != nil {
		logger.Warn("session ended", append(fields, zap.Error(err))...)
	} else {
		logger.Info("session ended", fields...)
	}
	return err
}

func (m *Manager) run(ctx context.Context, session *Session, w EventWriter, logger *zap.Logger) error {
	err := m.emit(w, domain.EventConnected, domain.ConnectedEvent{
		Status:    "connected",
		Timestamp: domain.FormatTimestamp(m.now()),
	})
	if err != nil {
		return m.fail(session, w, logger, err)
	}
	m.advance(session, domain.SessionEstablished, logger)

	catalog, err := m.catalog.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrStaleCatalog) {
			if ctx.Err() != nil {
				m.advance(session, domain.SessionClosed, logger)
				return nil
			}
			return m.fail(session, w, logger, err)
		}
		logger.Warn("streaming stale catalog", telemetry.EventField(telemetry.EventCatalogStale), zap.Error(err))
	}
	if err := m.emit(w, domain.EventTools, catalog.Event()); err != nil {
		return m.fail(session, w, logger, err)
	}
	m.advance(session, domain.SessionStreaming, logger)

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.advance(session, domain.SessionClosed, logger)
			return nil
		case <-m.done:
			m.advance(session, domain.SessionClosed, logger)
			return nil
		case <-ticker.C:
			now := m.now()
			err := m.emit(w, domain.EventHeartbeat, domain.HeartbeatEvent{
				Type:      domain.EventHeartbeat,
				Timestamp: domain.FormatTimestamp(now),
				Status:    "alive",
			})
			if err != nil {
				return m.fail(session, w, logger, err)
			}
			session.beat(now)
		}
	}
}

func (m *Manager) emit(w EventWriter, name string, payload any) error {
	if err := w.WriteEvent(name, payload); err != nil {
		return err
	}
	m.metrics.ObserveStreamEvent(name)
	return nil
}

// fail ends the session. A dead transport closes it silently; anything else
// gets one error event and leaves the session errored.
func (m *Manager) fail(session *Session, w EventWriter, logger *zap.Logger, cause error) error {
	if errors.Is(cause, domain.ErrStreamTransport) {
		m.advance(session, domain.SessionClosed, logger)
		return cause
	}
	err := m.emit(w, domain.EventError, domain.ErrorEvent{
		Type:      domain.EventError,
		Message:   cause.Error(),
		Timestamp: domain.FormatTimestamp(m.now()),
	})
	if err != nil {
		logger.Debug("error event not delivered", zap.Error(err))
	}
	m.advance(session, domain.SessionErrored, logger)
	return cause
}

func (m *Manager) advance(session *Session, next domain.SessionState, logger *zap.Logger) {
	prev, ok := session.transition(next)
	if !ok {
		return
	}
	logger.Debug("session transition",
		telemetry.EventField(telemetry.EventSessionTransition),
		zap.String("from", string(prev)),
		telemetry.StateField(string(next)),
	)
}
