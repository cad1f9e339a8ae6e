package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"slug-portal/backend/internal/membership/domain"
	"slug-portal/backend/internal/platform/rbac"
	telemetrydomain "slug-portal/backend/internal/telemetry/domain"
)

// memRepo is an in-memory repository.Repository with the same upsert and scoping
// semantics as the Postgres implementation. All methods are safe for concurrent use.
type memRepo struct {
	mu     sync.Mutex
	rows   map[int64]*domain.Membership
	nextID int64
	err    error
	calls  int
	block  bool // block until ctx is done
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]*domain.Membership)}
}

func (r *memRepo) enter(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	block, err := r.block, r.err
	r.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (r *memRepo) find(slug, email string) *domain.Membership {
	for _, m := range r.rows {
		if m.Slug == slug && m.Email == email {
			return m
		}
	}
	return nil
}

func (r *memRepo) put(slug, email string, role domain.Role, status domain.Status, last *time.Time) *domain.Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m := &domain.Membership{ID: r.nextID, Slug: slug, Email: email, Role: role, Status: status, LastSessionAt: last}
	r.rows[m.ID] = m
	return clone(m)
}

func (r *memRepo) get(slug, email string) *domain.Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.find(slug, email))
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *memRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func clone(m *domain.Membership) *domain.Membership {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

func (r *memRepo) GetBySlugAndEmail(ctx context.Context, slug, email string) (*domain.Membership, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	return r.get(slug, email), nil
}

func (r *memRepo) ListByEmail(ctx context.Context, email string) ([]*domain.Membership, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	return r.filter(func(m *domain.Membership) bool { return m.Email == email }, func(a, b *domain.Membership) bool { return a.Slug < b.Slug }), nil
}

func (r *memRepo) ListBySlug(ctx context.Context, slug string) ([]*domain.Membership, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	return r.filter(func(m *domain.Membership) bool { return m.Slug == slug }, func(a, b *domain.Membership) bool { return a.Email < b.Email }), nil
}

func (r *memRepo) filter(keep func(*domain.Membership) bool, less func(a, b *domain.Membership) bool) []*domain.Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Membership, 0)
	for _, m := range r.rows {
		if keep(m) {
			out = append(out, clone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (r *memRepo) StampSession(ctx context.Context, slug, email string, at time.Time) error {
	if err := r.enter(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := at.UTC()
	if m := r.find(slug, email); m != nil {
		if m.LastSessionAt == nil || t.After(*m.LastSessionAt) {
			m.LastSessionAt = &t
		}
		return nil
	}
	r.nextID++
	r.rows[r.nextID] = &domain.Membership{ID: r.nextID, Slug: slug, Email: email, Role: domain.RoleUser, Status: domain.StatusActive, LastSessionAt: &t}
	return nil
}

func (r *memRepo) UpsertMember(ctx context.Context, slug, email string, role domain.Role) (*domain.Membership, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.find(slug, email); m != nil {
		m.Role = role
		m.Status = domain.StatusActive
		return clone(m), nil
	}
	r.nextID++
	m := &domain.Membership{ID: r.nextID, Slug: slug, Email: email, Role: role, Status: domain.StatusActive}
	r.rows[m.ID] = m
	return clone(m), nil
}

func (r *memRepo) ApplyAction(ctx context.Context, id int64, slug string, action domain.Action) (*domain.Membership, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok || m.Slug != slug {
		return nil, nil
	}
	*m = action.Apply(*m)
	return clone(m), nil
}

func (r *memRepo) Delete(ctx context.Context, id int64, slug string) error {
	if err := r.enter(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.rows[id]; ok && m.Slug == slug {
		delete(r.rows, id)
	}
	return nil
}

type auditEntry struct {
	slug, actor, action, target, metadata string
}

// mockAuditLogger implements audit.AuditLogger.
type mockAuditLogger struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (m *mockAuditLogger) LogEvent(ctx context.Context, slug, actor, action, target, metadata string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{slug, actor, action, target, metadata})
}

func (m *mockAuditLogger) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.action
	}
	return out
}

// mockEmitter implements telemetry.EventEmitter.
type mockEmitter struct {
	mu     sync.Mutex
	events []*telemetrydomain.Event
}

func (m *mockEmitter) Emit(ctx context.Context, ev *telemetrydomain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockEmitter) waitFor(eventType string) *telemetrydomain.Event {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		for _, ev := range m.events {
			if ev.EventType == eventType {
				m.mu.Unlock()
				return ev
			}
		}
		m.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

// mockTenants implements BrandNameSource.
type mockTenants struct {
	brands map[string]string
	err    error
}

func (m *mockTenants) BrandNames(ctx context.Context, slugs []string) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string)
	for _, s := range slugs {
		if b, ok := m.brands[s]; ok {
			out[s] = b
		}
	}
	return out, nil
}

// recordingAuthorizer wraps the ladder and counts decisions.
type recordingAuthorizer struct {
	mu    sync.Mutex
	calls int
}

func (a *recordingAuthorizer) Decide(ctx context.Context, m *domain.Membership) (rbac.Decision, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return rbac.Evaluate(m), nil
}
