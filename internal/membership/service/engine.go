package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"slug-portal/backend/internal/audit"
	"slug-portal/backend/internal/membership/domain"
	"slug-portal/backend/internal/membership/repository"
	"slug-portal/backend/internal/platform/rbac"
	"slug-portal/backend/internal/telemetry"
	telemetrydomain "slug-portal/backend/internal/telemetry/domain"
)

const instrumentationName = "slug-portal/membership"

// DefaultStoreTimeout bounds a single store round trip when no timeout is configured.
const DefaultStoreTimeout = 5 * time.Second

// BrandNameSource is the optional tenant metadata lookup. Failures never fail an engine operation.
type BrandNameSource interface {
	BrandNames(ctx context.Context, slugs []string) (map[string]string, error)
}

// Engine implements the membership lifecycle: session resolution and stamping, the admin
// check, and the admin-gated member operations. It holds no state between calls; every
// mutation is one atomic store statement.
type Engine struct {
	repo               repository.Repository
	authz              rbac.Authorizer
	tenants            BrandNameSource
	audit              audit.AuditLogger
	emitter            telemetry.EventEmitter
	now                func() time.Time
	autoPauseAfterDays int
	storeTimeout       time.Duration
	tracer             trace.Tracer
	ops                metric.Int64Counter
}

// Option configures an Engine.
type Option func(*Engine)

// WithAuthorizer replaces the built-in admin ladder (e.g. with the OPA authorizer).
func WithAuthorizer(a rbac.Authorizer) Option { return func(e *Engine) { e.authz = a } }

// WithTenants enables brand name enrichment of session views.
func WithTenants(t BrandNameSource) Option { return func(e *Engine) { e.tenants = t } }

// WithAuditLogger records admin mutations and denials.
func WithAuditLogger(l audit.AuditLogger) Option { return func(e *Engine) { e.audit = l } }

// WithEmitter sends membership events to em asynchronously.
func WithEmitter(em telemetry.EventEmitter) Option { return func(e *Engine) { e.emitter = em } }

// WithClock sets the time source used for stamps and inactivity annotation.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithAutoPauseAfterDays sets the inactivity threshold. Values below 1 are ignored.
func WithAutoPauseAfterDays(days int) Option {
	return func(e *Engine) {
		if days >= 1 {
			e.autoPauseAfterDays = days
		}
	}
}

// WithStoreTimeout bounds each store call. Values <= 0 are ignored.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.storeTimeout = d
		}
	}
}

// WithTracerProvider sets the provider for operation spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the provider for the operations counter. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Engine) { e.ops = newOpsCounter(mp.Meter(instrumentationName)) }
}

// NewEngine returns an Engine over repo. Without options it uses the built-in admin ladder,
// the wall clock, a 90 day threshold and no audit, telemetry or tenant enrichment.
func NewEngine(repo repository.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:               repo,
		authz:              rbac.Ladder{},
		now:                time.Now,
		autoPauseAfterDays: domain.DefaultAutoPauseAfterDays,
		storeTimeout:       DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(instrumentationName)
	}
	if e.ops == nil {
		e.ops = newOpsCounter(otel.Meter(instrumentationName))
	}
	return e
}

func newOpsCounter(m metric.Meter) metric.Int64Counter {
	c, err := m.Int64Counter("portal.membership.operations",
		metric.WithDescription("Membership engine operations by outcome"))
	if err != nil {
		log.Printf("membership: create operations counter: %v", err)
		c, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("portal.membership.operations")
	}
	return c
}

// GetSession returns the caller's memberships across all slugs ordered by slug, each annotated
// for inactivity, and echoes activeSlugHint. An empty identity yields the anonymous view.
func (e *Engine) GetSession(ctx context.Context, identity, activeSlugHint string) (_ *SessionView, err error) {
	email := domain.NormalizeEmail(identity)
	if email == "" {
		return &SessionView{Memberships: []SessionMembership{}}, nil
	}
	ctx, done := e.instrument(ctx, "get_session", "")
	defer func() { done(err) }()

	sctx, cancel := e.storeCtx(ctx)
	rows, err := e.repo.ListByEmail(sctx, email)
	cancel()
	if err != nil {
		return nil, storeErr("list memberships by email", err)
	}

	brands := e.brandNames(ctx, rows)
	now := e.now()
	items := make([]SessionMembership, 0, len(rows))
	for _, m := range rows {
		item := SessionMembership{
			Slug:          m.Slug,
			Role:          m.Role,
			Status:        m.Status,
			LastSessionAt: m.LastSessionAt,
			Inactivity:    domain.Annotate(*m, now, e.autoPauseAfterDays),
		}
		if b, ok := brands[m.Slug]; ok {
			item.BrandName = &b
		}
		items = append(items, item)
	}

	view := &SessionView{Email: &email, Memberships: items}
	if activeSlugHint != "" {
		view.ActiveSlug = &activeSlugHint
	}
	return view, nil
}

// StampSession records a session for (slug, identity), creating an active user membership on first
// sight. It only moves last_session_at on an existing row; a paused row stays paused.
func (e *Engine) StampSession(ctx context.Context, slug, identity string) (_ *StampConfirmation, err error) {
	slug = strings.TrimSpace(slug)
	email := domain.NormalizeEmail(identity)
	if slug == "" || email == "" {
		return nil, &ValidationError{Code: CodeMissingSlugOrEmail}
	}
	ctx, done := e.instrument(ctx, "stamp_session", slug)
	defer func() { done(err) }()

	sctx, cancel := e.storeCtx(ctx)
	err = e.repo.StampSession(sctx, slug, email, e.now())
	cancel()
	if err != nil {
		return nil, storeErr("stamp session", err)
	}
	e.emit(ctx, slug, email, telemetrydomain.EventSessionStamped, nil)
	return &StampConfirmation{Slug: slug, Email: email, Stamped: true}, nil
}

// AuthorizeAdmin returns nil if actor is an active admin of slug, a *ForbiddenError naming the first
// failed check otherwise, or a *StoreError. The row is read fresh on every call.
func (e *Engine) AuthorizeAdmin(ctx context.Context, slug, actor string) (err error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return &ValidationError{Code: CodeMissingSlug}
	}
	ctx, done := e.instrument(ctx, "authorize_admin", slug)
	defer func() { done(err) }()
	return e.authorize(ctx, slug, domain.NormalizeEmail(actor))
}

// ListMembers returns every membership of slug ordered by email.
func (e *Engine) ListMembers(ctx context.Context, slug, actor string) (_ []*domain.Membership, err error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, &ValidationError{Code: CodeMissingSlug}
	}
	ctx, done := e.instrument(ctx, "list_members", slug)
	defer func() { done(err) }()

	if err := e.authorize(ctx, slug, domain.NormalizeEmail(actor)); err != nil {
		return nil, err
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	rows, err := e.repo.ListBySlug(sctx, slug)
	if err != nil {
		return nil, storeErr("list memberships by slug", err)
	}
	return rows, nil
}

// AddOrUpdateMember invites email into slug with role, or overwrites the role of an existing
// membership and reactivates it. role is admin only for the exact token "admin".
func (e *Engine) AddOrUpdateMember(ctx context.Context, slug, actor, email, role string) (_ *domain.Membership, err error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, &ValidationError{Code: CodeMissingSlug}
	}
	ctx, done := e.instrument(ctx, "add_or_update_member", slug)
	defer func() { done(err) }()

	actor = domain.NormalizeEmail(actor)
	if err := e.authorize(ctx, slug, actor); err != nil {
		return nil, err
	}
	target := domain.NormalizeEmail(email)
	if target == "" {
		return nil, &ValidationError{Code: CodeMissingEmail}
	}
	r := domain.ParseRole(role)

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	m, err := e.repo.UpsertMember(sctx, slug, target, r)
	if err != nil {
		return nil, storeErr("upsert member", err)
	}
	meta := map[string]any{"role": string(r), "id": m.ID}
	e.record(ctx, slug, actor, audit.ActionMemberInvited, target, meta)
	e.emit(ctx, slug, target, telemetrydomain.EventMemberInvited, withActor(meta, actor))
	return m, nil
}

// UpdateMember applies action to the row (id, slug). It returns (nil, nil) when no such row exists
// in slug, so a retried or cross-tenant id is a benign no-op.
func (e *Engine) UpdateMember(ctx context.Context, slug, actor string, id int64, action string) (_ *domain.Membership, err error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, &ValidationError{Code: CodeMissingSlug}
	}
	if id <= 0 {
		return nil, &ValidationError{Code: CodeInvalidID}
	}
	ctx, done := e.instrument(ctx, "update_member", slug)
	defer func() { done(err) }()

	actor = domain.NormalizeEmail(actor)
	if err := e.authorize(ctx, slug, actor); err != nil {
		return nil, err
	}
	a, ok := domain.ParseAction(action)
	if !ok {
		return nil, ErrInvalidAction
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	m, err := e.repo.ApplyAction(sctx, id, slug, a)
	if err != nil {
		return nil, storeErr("apply "+string(a), err)
	}
	if m == nil {
		return nil, nil
	}
	meta := map[string]any{"id": id, "action": string(a), "role": string(m.Role), "status": string(m.Status)}
	e.record(ctx, slug, actor, audit.ActionForTransition(a), m.Email, meta)
	e.emit(ctx, slug, m.Email, telemetrydomain.EventMemberUpdated, withActor(meta, actor))
	return m, nil
}

// RemoveMember deletes the row (id, slug). Removing a missing row succeeds.
func (e *Engine) RemoveMember(ctx context.Context, slug, actor string, id int64) (err error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return &ValidationError{Code: CodeMissingSlug}
	}
	if id <= 0 {
		return &ValidationError{Code: CodeInvalidID}
	}
	ctx, done := e.instrument(ctx, "remove_member", slug)
	defer func() { done(err) }()

	actor = domain.NormalizeEmail(actor)
	if err := e.authorize(ctx, slug, actor); err != nil {
		return err
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.repo.Delete(sctx, id, slug); err != nil {
		return storeErr("delete member", err)
	}
	meta := map[string]any{"id": id}
	e.record(ctx, slug, actor, audit.ActionMemberRemoved, "id:"+strconv.FormatInt(id, 10), meta)
	e.emit(ctx, slug, "", telemetrydomain.EventMemberRemoved, withActor(meta, actor))
	return nil
}

// authorize runs the admin check for a normalized actor and records denials.
func (e *Engine) authorize(ctx context.Context, slug, actor string) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	_, d, err := rbac.RequireSlugAdmin(sctx, e.repo, e.authz, slug, actor)
	if err != nil {
		return storeErr("authorize admin", err)
	}
	if d.Allowed {
		return nil
	}
	meta := map[string]any{"reason": string(d.Reason)}
	e.record(ctx, slug, actor, audit.ActionAdminDenied, slug, meta)
	e.emit(ctx, slug, actor, telemetrydomain.EventAdminDenied, meta)
	return &ForbiddenError{Reason: d.Reason}
}

func (e *Engine) brandNames(ctx context.Context, rows []*domain.Membership) map[string]string {
	if e.tenants == nil || len(rows) == 0 {
		return nil
	}
	slugs := make([]string, 0, len(rows))
	for _, m := range rows {
		slugs = append(slugs, m.Slug)
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	brands, err := e.tenants.BrandNames(sctx, slugs)
	if err != nil {
		log.Printf("membership: brand names unavailable: %v", err)
		return nil
	}
	return brands
}

func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.storeTimeout)
}

func (e *Engine) record(ctx context.Context, slug, actor, action, target string, meta map[string]any) {
	if e.audit == nil {
		return
	}
	var metadata string
	if b, err := json.Marshal(meta); err == nil {
		metadata = string(b)
	}
	e.audit.LogEvent(ctx, slug, actor, action, target, metadata)
}

func (e *Engine) emit(ctx context.Context, slug, email, eventType string, meta map[string]any) {
	if e.emitter == nil {
		return
	}
	telemetry.EmitAsync(e.emitter, ctx, telemetrydomain.NewEvent(slug, email, eventType, telemetrydomain.SourceEngine, meta))
}

func withActor(meta map[string]any, actor string) map[string]any {
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out["actor"] = actor
	return out
}

// instrument starts a span for op and returns a func that ends it and counts the outcome.
func (e *Engine) instrument(ctx context.Context, op, slug string) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{attribute.String("portal.operation", op)}
	if slug != "" {
		attrs = append(attrs, attribute.String("portal.slug", slug))
	}
	ctx, span := e.tracer.Start(ctx, "membership."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := outcomeOf(err)
		span.SetAttributes(attribute.String("portal.outcome", outcome))
		if outcome == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		e.ops.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbidden):
		return "denied"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAction):
		return "invalid"
	default:
		return "error"
	}
}
