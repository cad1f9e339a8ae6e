package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"slug-portal/backend/internal/audit/domain"
	"slug-portal/backend/internal/server/interceptors"
	"slug-portal/backend/internal/server/response"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
	defaultTimeout  = 5 * time.Second
)

// AdminGate reports whether actor may administer slug.
type AdminGate interface {
	AuthorizeAdmin(ctx context.Context, slug, actor string) error
}

// Lister reads a slug's audit entries.
type Lister interface {
	ListBySlug(ctx context.Context, slug string, limit, offset int32) ([]*domain.AuditLog, error)
}

// Handler serves a slug's audit trail to its admins.
type Handler struct {
	gate    AdminGate
	logs    Lister
	timeout time.Duration
}

// NewHandler returns an audit HTTP handler. timeout bounds the audit store read; values <= 0 use 5s.
func NewHandler(gate AdminGate, logs Lister, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Handler{gate: gate, logs: logs, timeout: timeout}
}

// Register mounts GET /api/slugs/:slug/audit.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/slugs/:slug/audit", h.List)
}

type entry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns the newest entries first. limit defaults to 50 and is capped at 100.
func (h *Handler) List(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if err := h.gate.AuthorizeAdmin(c.Request.Context(), slug, interceptors.Email(c)); err != nil {
		response.Error(c, err)
		return
	}
	limit := queryInt32(c, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt32(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	logs, err := h.logs.ListBySlug(ctx, slug, limit, offset)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.CodeStoreUnavailable)
		return
	}
	items := make([]entry, 0, len(logs))
	for _, l := range logs {
		items = append(items, entry{
			ID: l.ID, Actor: l.Actor, Action: l.Action, Target: l.Target,
			IP: l.IP, Metadata: l.Metadata, CreatedAt: l.CreatedAt,
		})
	}
	response.OK(c, http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

func queryInt32(c *gin.Context, key string, def int32) int32 {
	s := c.Query(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return def
	}
	return int32(v)
}
