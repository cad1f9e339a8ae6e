package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"slug-portal/backend/internal/membership/domain"
	"slug-portal/backend/internal/membership/service"
	"slug-portal/backend/internal/server/interceptors"
	"slug-portal/backend/internal/server/response"
)

// DefaultActiveSlugCookie holds the slug the portal UI last switched to.
const DefaultActiveSlugCookie = "_portal_active_slug"

// Engine is the membership engine surface used by the HTTP handler.
type Engine interface {
	GetSession(ctx context.Context, identity, activeSlugHint string) (*service.SessionView, error)
	StampSession(ctx context.Context, slug, identity string) (*service.StampConfirmation, error)
	ListMembers(ctx context.Context, slug, actor string) ([]*domain.Membership, error)
	AddOrUpdateMember(ctx context.Context, slug, actor, email, role string) (*domain.Membership, error)
	UpdateMember(ctx context.Context, slug, actor string, id int64, action string) (*domain.Membership, error)
	RemoveMember(ctx context.Context, slug, actor string, id int64) error
}

// Options configures the handler.
type Options struct {
	// ActiveSlugCookie is echoed as the active-slug hint. Defaults to DefaultActiveSlugCookie.
	ActiveSlugCookie string
	// DevEmailFallback accepts an email in the stamp POST body when no identity was resolved.
	DevEmailFallback bool
}

// Handler serves the session, stamp and slug user routes over the membership engine.
type Handler struct {
	engine Engine
	opts   Options
}

// NewHandler returns a membership HTTP handler.
func NewHandler(engine Engine, opts Options) *Handler {
	if opts.ActiveSlugCookie == "" {
		opts.ActiveSlugCookie = DefaultActiveSlugCookie
	}
	return &Handler{engine: engine, opts: opts}
}

// Register mounts the handler's routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/auth/session", h.Session)
	r.GET("/api/memberships/stamp", h.Stamp)
	r.POST("/api/memberships/stamp", h.Stamp)

	users := r.Group("/api/slugs/:slug/users")
	users.GET("", h.ListMembers)
	users.POST("", h.AddOrUpdateMember)
	users.PATCH("/:id", h.UpdateMember)
	users.DELETE("/:id", h.RemoveMember)
}

type sessionItem struct {
	Slug                 string     `json:"slug"`
	BrandName            *string    `json:"brand_name"`
	Role                 string     `json:"role"`
	Status               string     `json:"status"`
	LastSessionAt        *time.Time `json:"last_session_at"`
	Inactive             bool       `json:"inactive"`
	DaysSinceLastSession *int       `json:"days_since_last_session"`
	AutoPauseAfterDays   int        `json:"auto_pause_after_days"`
	WillBePausedSoon     bool       `json:"will_be_paused_soon"`
}

type memberItem struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	LastSessionAt *time.Time `json:"last_session_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toMemberItem(m *domain.Membership) *memberItem {
	if m == nil {
		return nil
	}
	return &memberItem{
		ID:            m.ID,
		Email:         m.Email,
		Role:          string(m.Role),
		Status:        string(m.Status),
		LastSessionAt: m.LastSessionAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// Session handles GET /api/auth/session.
func (h *Handler) Session(c *gin.Context) {
	hint, _ := c.Cookie(h.opts.ActiveSlugCookie)
	view, err := h.engine.GetSession(c.Request.Context(), interceptors.Email(c), hint)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]sessionItem, 0, len(view.Memberships))
	for _, m := range view.Memberships {
		items = append(items, sessionItem{
			Slug:                 m.Slug,
			BrandName:            m.BrandName,
			Role:                 string(m.Role),
			Status:               string(m.Status),
			LastSessionAt:        m.LastSessionAt,
			Inactive:             m.Inactive,
			DaysSinceLastSession: m.DaysSinceLastSession,
			AutoPauseAfterDays:   m.AutoPauseAfterDays,
			WillBePausedSoon:     m.WillBePausedSoon,
		})
	}
	response.OK(c, http.StatusOK, gin.H{
		"email":       view.Email,
		"active_slug": view.ActiveSlug,
		"memberships": items,
	})
}

type stampRequest struct {
	Slug  string `json:"slug"`
	Email string `json:"email"`
}

// Stamp handles GET and POST /api/memberships/stamp. GET reads the slug from the query,
// POST from the JSON body.
func (h *Handler) Stamp(c *gin.Context) {
	email := interceptors.Email(c)
	var slug string
	if c.Request.Method == http.MethodPost {
		var req stampRequest
		if err := bindOptionalJSON(c, &req); err != nil {
			response.Fail(c, http.StatusBadRequest, response.CodeInvalidBody)
			return
		}
		slug = req.Slug
		if email == "" && h.opts.DevEmailFallback {
			email = req.Email
		}
	} else {
		slug = c.Query("slug")
	}
	conf, err := h.engine.StampSession(c.Request.Context(), slug, email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"slug":    conf.Slug,
		"email":   conf.Email,
		"stamped": conf.Stamped,
	})
}

// ListMembers handles GET /api/slugs/:slug/users.
func (h *Handler) ListMembers(c *gin.Context) {
	rows, err := h.engine.ListMembers(c.Request.Context(), c.Param("slug"), interceptors.Email(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]*memberItem, 0, len(rows))
	for _, m := range rows {
		items = append(items, toMemberItem(m))
	}
	response.OK(c, http.StatusOK, gin.H{"items": items})
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AddOrUpdateMember handles POST /api/slugs/:slug/users.
func (h *Handler) AddOrUpdateMember(c *gin.Context) {
	var req inviteRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.CodeInvalidBody)
		return
	}
	m, err := h.engine.AddOrUpdateMember(c.Request.Context(), c.Param("slug"), interceptors.Email(c), req.Email, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"item": toMemberItem(m)})
}

type actionRequest struct {
	Action string `json:"action"`
}

// UpdateMember handles PATCH /api/slugs/:slug/users/:id. A missing row answers {"item":null}.
func (h *Handler) UpdateMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req actionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.CodeInvalidBody)
		return
	}
	m, err := h.engine.UpdateMember(c.Request.Context(), c.Param("slug"), interceptors.Email(c), id, req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"item": toMemberItem(m)})
}

// RemoveMember handles DELETE /api/slugs/:slug/users/:id.
func (h *Handler) RemoveMember(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.engine.RemoveMember(c.Request.Context(), c.Param("slug"), interceptors.Email(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"deleted": true})
}

// parseID reads a positive :id or writes invalid_id.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, service.CodeInvalidID)
		return 0, false
	}
	return id, true
}

// bindOptionalJSON decodes the body into dst. An empty body leaves dst zero-valued.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
