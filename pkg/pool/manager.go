package pool

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

type poolKey struct {
	kind     Kind
	tenantID uuid.UUID
}

// entry is one live pool in the directory. The pool itself is built
// outside the structural lock, guarded by once/ready, so slow pool
// creation for one tenant never blocks checkouts for others.
type entry struct {
	key        poolKey
	el         *list.Element
	createdAt  time.Time
	lastUsed   atomic.Int64 // unix nanos
	checkedOut atomic.Int64

	once  sync.Once
	ready chan struct{}
	pool  Pool
	err   error
}

func (e *entry) isReady() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// Manager owns the directory of per-tenant connection pools. All pool
// creation and eviction goes through it; nothing else mutates the
// directory.
type Manager struct {
	cfg    Config
	opener Opener
	appKey []byte
	log    *slog.Logger

	// mu guards the structural state (entries, order) only. Checkout and
	// return on an existing pool use the pool's own synchronization and
	// never contend on mu.
	mu      sync.Mutex
	entries map[poolKey]*entry
	order   *list.List // front = most recently used
	closed  bool

	evictions atomic.Int64
	degrades  atomic.Int64

	stop chan struct{}
	done chan struct{}
}

// Option configures the Manager.
type Option func(*Manager)

// WithOpener substitutes the pool/connection factory. Used by tests.
func WithOpener(opener Opener) Option {
	return func(m *Manager) {
		if opener != nil {
			m.opener = opener
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates a Manager and starts its idle-pool sweep. The appKey
// is the application half of the credential encryption key. Call Close on
// shutdown.
func NewManager(cfg Config, appKey []byte, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg.withDefaults(),
		opener:  PgxOpener{},
		appKey:  appKey,
		log:     slog.Default(),
		entries: make(map[poolKey]*entry),
		order:   list.New(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.sweepLoop()
	return m
}

// AcquireFromContext acquires a connection for the tenant resolved on the
// request context.
func (m *Manager) AcquireFromContext(ctx context.Context, kind Kind) (*Lease, error) {
	identity, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, tenant.ErrNoTenantInContext
	}
	return m.Acquire(ctx, identity, kind)
}

// Acquire returns a scoped connection for the tenant. The caller must
// Release the lease on every exit path.
func (m *Manager) Acquire(ctx context.Context, identity *tenant.Identity, kind Kind) (*Lease, error) {
	if !kind.valid() {
		return nil, ErrInvalidKind
	}
	if identity == nil {
		return nil, ErrIdentityRequired
	}

	if !m.cfg.PoolingEnabled {
		return m.acquireDirect(ctx, identity, kind, nil)
	}

	e, err := m.lookupOrCreate(identity.ID, kind)
	if err != nil {
		return nil, err
	}

	m.openOnce(ctx, e, identity, kind)
	select {
	case <-e.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if e.err != nil {
		// Drop the failed entry so a later request starts clean.
		m.removeEntry(e)
		if errors.Is(e.err, ErrDatabase) || isCredentialError(e.err) {
			return nil, joinDatabase(e.err)
		}
		return m.acquireDirect(ctx, identity, kind, e.err)
	}

	acquireCtx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()

	conn, err := e.pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isAcquireTimeout(err) {
			return nil, errors.Join(ErrPoolExhausted, err)
		}
		return m.acquireDirect(ctx, identity, kind, err)
	}

	e.checkedOut.Add(1)
	e.lastUsed.Store(time.Now().UnixNano())
	return &Lease{conn: conn, mode: ModePooled, kind: kind, entry: e}, nil
}

// Stats is a point-in-time snapshot of the manager.
type Stats struct {
	LivePools     int
	Evictions     int64
	DegradeEvents int64
}

// Stats reports the current directory size and lifetime counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	live := len(m.entries)
	m.mu.Unlock()

	return Stats{
		LivePools:     live,
		Evictions:     m.evictions.Load(),
		DegradeEvents: m.degrades.Load(),
	}
}

// Healthcheck returns a probe for readiness endpoints.
func (m *Manager) Healthcheck() func(context.Context) error {
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return ErrManagerClosed
		}
		return nil
	}
}

// Close stops the sweep and closes every pool. Acquire fails with
// ErrManagerClosed afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	victims := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		victims = append(victims, e)
	}
	m.entries = make(map[poolKey]*entry)
	m.order.Init()
	m.mu.Unlock()

	close(m.stop)
	<-m.done

	for _, e := range victims {
		<-e.ready
		if e.pool != nil {
			e.pool.Close()
		}
	}
}

func (m *Manager) lookupOrCreate(tenantID uuid.UUID, kind Kind) (*entry, error) {
	key := poolKey{kind: kind, tenantID: tenantID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	if e, ok := m.entries[key]; ok {
		m.order.MoveToFront(e.el)
		return e, nil
	}

	e := &entry{
		key:       key,
		createdAt: time.Now(),
		ready:     make(chan struct{}),
	}
	e.lastUsed.Store(e.createdAt.UnixNano())
	e.el = m.order.PushFront(e)
	m.entries[key] = e

	m.enforceCapLocked()
	return e, nil
}

func (m *Manager) openOnce(ctx context.Context, e *entry, identity *tenant.Identity, kind Kind) {
	e.once.Do(func() {
		defer close(e.ready)

		dsn, err := buildDSN(m.appKey, identity, kind)
		if err != nil {
			e.err = err
			return
		}

		pool, err := m.opener.OpenPool(ctx, dsn, m.cfg.PoolSize+m.cfg.PoolMaxOverflow)
		if err != nil {
			e.err = err
			return
		}
		e.pool = pool

		m.log.InfoContext(ctx, "tenant pool created",
			slog.String("tenant_id", e.key.tenantID.String()),
			slog.String("kind", kind.String()),
		)
	})
}

func (m *Manager) acquireDirect(ctx context.Context, identity *tenant.Identity, kind Kind, cause error) (*Lease, error) {
	dsn, err := buildDSN(m.appKey, identity, kind)
	if err != nil {
		return nil, err
	}

	conn, err := m.opener.OpenDirect(ctx, dsn)
	if err != nil {
		return nil, joinDatabase(err)
	}

	if cause != nil {
		m.degrades.Add(1)
		m.log.WarnContext(ctx, "pooled acquisition degraded to direct connection",
			slog.String("tenant_id", identity.ID.String()),
			slog.String("kind", kind.String()),
			slog.Any("cause", cause),
		)
	}
	return &Lease{conn: conn, mode: ModeDirect, kind: kind}, nil
}

func (m *Manager) removeEntry(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.entries[e.key]; ok && current == e {
		delete(m.entries, e.key)
		m.order.Remove(e.el)
	}
}

// enforceCapLocked evicts least-recently-used pools until the directory
// fits the cap. Idle pools go first; if every candidate is busy the
// oldest one is closed anyway and drains as its connections are
// released, so the cap holds.
func (m *Manager) enforceCapLocked() {
	for len(m.entries) > m.cfg.MaxTenantPools {
		victim := m.victimLocked(true)
		if victim == nil {
			victim = m.victimLocked(false)
		}
		if victim == nil {
			return // everything is still opening; nothing safe to evict
		}
		m.evictLocked(victim, "cap")
	}
}

// victimLocked returns the least-recently-used evictable entry, walking
// from the back of the recency list. The entry still opening its pool is
// never a victim.
func (m *Manager) victimLocked(requireIdle bool) *entry {
	for el := m.order.Back(); el != nil; el = el.Prev() {
		e := el.Value.(*entry)
		if !e.isReady() {
			continue
		}
		if requireIdle && e.checkedOut.Load() > 0 {
			continue
		}
		return e
	}
	return nil
}

func (m *Manager) evictLocked(e *entry, reason string) {
	delete(m.entries, e.key)
	m.order.Remove(e.el)
	m.evictions.Add(1)

	m.log.Info("tenant pool evicted",
		slog.String("tenant_id", e.key.tenantID.String()),
		slog.String("kind", e.key.kind.String()),
		slog.String("reason", reason),
	)

	// Closing can block on in-flight connections; never do it under mu.
	go func() {
		<-e.ready
		if e.pool != nil {
			e.pool.Close()
		}
	}()
}

func (m *Manager) sweepLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweepIdle()
		case <-m.stop:
			return
		}
	}
}

// sweepIdle evicts pools that have been idle longer than the inactivity
// timeout.
func (m *Manager) sweepIdle() {
	cutoff := time.Now().Add(-m.cfg.InactivityTimeout).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()

	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e.isReady() && e.checkedOut.Load() == 0 && e.lastUsed.Load() < cutoff {
			m.evictLocked(e, "idle")
		}
		el = prev
	}
}

func joinDatabase(err error) error {
	if errors.Is(err, ErrDatabase) {
		return err
	}
	return errors.Join(ErrDatabase, err)
}
