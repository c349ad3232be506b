package flow

import (
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Manager keeps one Controller per authenticated user.
type Manager struct {
	mu      sync.Mutex
	flows   map[string]*Controller
	loading map[string]chan struct{}
	storage SnapshotStorage
	orders  OrderPlacer
	opts    Options
	base    *slog.Logger
	log     *slog.Logger
}

func NewManager(storage SnapshotStorage, orders OrderPlacer, opts Options, log *slog.Logger) *Manager {
	return &Manager{
		flows:   make(map[string]*Controller),
		loading: make(map[string]chan struct{}),
		storage: storage,
		orders:  orders,
		opts:    opts,
		base:    log,
		log:     log.With(sl.Module("flow.manager")),
	}
}

// SetListener replaces the listener handed to controllers created from now on.
func (m *Manager) SetListener(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts.Listener = listener
}

// Authenticate starts a fresh flow for a user who just logged in. A previous flow of
// the same user is discarded.
func (m *Manager) Authenticate(ctx context.Context, res entity.AuthResult) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.flows[res.UserID]; ok {
		old.Close()
		delete(m.flows, res.UserID)
	}
	if err := m.storage.Delete(ctx, res.UserID); err != nil {
		m.log.Warn("clear previous snapshot", slog.String("user_id", res.UserID), sl.Err(err))
	}

	c := NewController(res.UserID, m.storage, m.orders, m.opts, m.base)
	if _, err := c.Authenticate(ctx, res); err != nil {
		c.Close()
		return nil, err
	}
	m.flows[res.UserID] = c
	return c, nil
}

// Open returns the flow of a session user. The persisted snapshot is loaded once, on
// first access; without one a new flow starts at the first step. Loading runs outside
// the manager lock, and concurrent opens of the same user wait for the first one.
func (m *Manager) Open(ctx context.Context, session *entity.Session) (*Controller, error) {
	var done chan struct{}
	var opts Options
	for done == nil {
		m.mu.Lock()
		if c, ok := m.flows[session.UserID]; ok {
			m.mu.Unlock()
			return c, nil
		}
		wait, loading := m.loading[session.UserID]
		if !loading {
			done = make(chan struct{})
			m.loading[session.UserID] = done
			opts = m.opts
		}
		m.mu.Unlock()

		if loading {
			select {
			case <-wait:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	c, err := m.load(ctx, session, opts)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loading, session.UserID)
	close(done)
	if err != nil {
		return nil, err
	}
	// a login during the load wins
	if existing, ok := m.flows[session.UserID]; ok {
		c.Close()
		return existing, nil
	}
	m.flows[session.UserID] = c
	return c, nil
}

func (m *Manager) load(ctx context.Context, session *entity.Session, opts Options) (*Controller, error) {
	snapshot, err := m.storage.Load(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	c := NewController(session.UserID, m.storage, m.orders, opts, m.base)
	if snapshot != nil {
		c.restore(snapshot)
		return c, nil
	}
	_, err = c.Authenticate(ctx, entity.AuthResult{
		UserID:      session.UserID,
		PhoneNumber: session.Phone,
		IsNewUser:   session.IsNewUser,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Get returns a flow that is already open.
func (m *Manager) Get(userID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.flows[userID]
	return c, ok
}

// Logout drops the flow and its snapshot.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	m.mu.Lock()
	c, ok := m.flows[userID]
	delete(m.flows, userID)
	m.mu.Unlock()

	if ok {
		c.Close()
	}
	return m.storage.Delete(ctx, userID)
}

// Close stops the timers of every open flow.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.flows {
		c.Close()
		delete(m.flows, id)
	}
}
