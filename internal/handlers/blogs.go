// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"devnote/internal/middleware"
	"devnote/internal/models"
	"devnote/internal/moderation"
	"devnote/internal/publication"
	"devnote/internal/slug"
	"devnote/internal/store"
	"devnote/internal/textstats"
)

const (
	// excerptRunes is the length of excerpts derived from content.
	excerptRunes = 200

	maxSearchLen = 200
)

// Blogs groups the author-facing and public blog endpoints.
type Blogs struct {
	blogs     BlogRepository
	moderator *moderation.Moderator
	recorder  statusRecorder
}

// NewBlogs creates a new Blogs handler group.
func NewBlogs(blogs BlogRepository, moderator *moderation.Moderator, audit AuditLog, feeds FeedCache) *Blogs {
	return &Blogs{
		blogs:     blogs,
		moderator: moderator,
		recorder:  statusRecorder{audit: audit, feeds: feeds},
	}
}

// blogRequest is the body of create and update calls.
type blogRequest struct {
	Title   string `json:"title" validate:"notblank,max=300"`
	Excerpt string `json:"excerpt" validate:"max=1000"`
	Content string `json:"content" validate:"required_if=IsDraft false,max=100000"`
	IsDraft bool   `json:"is_draft"`
}

// submitResponse is returned by create and update. Flags are the
// moderation flags of an accepted non-draft save.
type submitResponse struct {
	Blog   *models.Blog      `json:"blog"`
	Status models.BlogStatus `json:"status"`
	Flags  []string          `json:"flags,omitempty"`
}

// submission is a moderated, not yet persisted save.
type submission struct {
	status models.BlogStatus
	flags  []string
	stats  textstats.Stats
}

// moderate runs the draft/moderation pipeline on a request. existing is
// nil for new posts. It writes the error response itself and returns false
// when the save must not happen.
func (h *Blogs) moderate(w http.ResponseWriter, req *blogRequest, existing *models.Blog) (submission, bool) {
	stats, err := textstats.Analyze(req.Content)
	if err != nil {
		slog.Error("analyze content failed", "error", err)
		writeInternal(w)
		return submission{}, false
	}

	var decision moderation.Decision
	if !req.IsDraft {
		decision = h.moderator.Moderate(moderation.TypeBlog, req.Title, req.Excerpt, req.Content)
	}

	var status models.BlogStatus
	if existing == nil {
		status, err = publication.Submit(req.IsDraft, decision)
	} else {
		status, err = publication.Edit(existing.Status, req.IsDraft, decision)
	}
	if errors.Is(err, publication.ErrHiddenDraft) {
		writeError(w, http.StatusConflict, "hidden blogs cannot be saved as drafts")
		return submission{}, false
	}
	var rejected *publication.RejectedError
	if errors.As(err, &rejected) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "content rejected by moderation",
			Flags: rejected.Flags,
		})
		return submission{}, false
	}
	if err != nil {
		slog.Error("publication submit failed", "error", err)
		writeInternal(w)
		return submission{}, false
	}

	return submission{status: status, flags: decision.Flags, stats: stats}, true
}

// fillExcerpt derives an excerpt from content when the author left it blank.
func fillExcerpt(req *blogRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Excerpt = strings.TrimSpace(req.Excerpt)
	if req.Excerpt != "" {
		return nil
	}
	excerpt, err := textstats.Excerpt(req.Content, excerptRunes)
	if err != nil {
		return err
	}
	req.Excerpt = excerpt
	return nil
}

// Create handles POST /api/blogs.
func (h *Blogs) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req blogRequest
	if !bind(w, r, &req) {
		return
	}

	// Moderation sees exactly what the author wrote.
	sub, ok := h.moderate(w, &req, nil)
	if !ok {
		return
	}
	if err := fillExcerpt(&req); err != nil {
		slog.Error("derive excerpt failed", "error", err)
		writeInternal(w)
		return
	}

	id := uuid.New()
	created, err := h.blogs.Create(r.Context(), &models.Blog{
		ID:        id,
		AuthorID:  sess.UserID,
		Title:     req.Title,
		Slug:      slug.ForBlog(req.Title, id),
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		IsDraft:   req.IsDraft,
		Status:    sub.status,
		WordCount: sub.stats.WordCount,
		ReadTime:  sub.stats.ReadTimeMinutes,
	})
	if err != nil {
		slog.Error("create blog failed", "error", err)
		writeInternal(w)
		return
	}

	h.recorder.record(r.Context(), created.ID, sess.UserID, nil, created.Status, store.ReasonSubmit, sub.flags)
	slog.Info("blog created", "id", created.ID, "status", created.Status, "author", sess.UserID)

	writeJSON(w, http.StatusCreated, submitResponse{Blog: created, Status: created.Status, Flags: sub.flags})
}

// Update handles PUT /api/blogs/{id}. The edit is moderated again; a
// rejected edit leaves the stored post untouched. A post an admin hid
// cannot become a draft and stays hidden unless moderation queues the
// edit for review.
func (h *Blogs) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	existing, err := h.blogs.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find blog failed", "error", err, "id", id)
		writeInternal(w)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}
	if !existing.CanEdit(sess.UserID, sess.Role) {
		writeError(w, http.StatusForbidden, "not allowed to edit this blog")
		return
	}

	var req blogRequest
	if !bind(w, r, &req) {
		return
	}
	sub, ok := h.moderate(w, &req, existing)
	if !ok {
		return
	}
	if err := fillExcerpt(&req); err != nil {
		slog.Error("derive excerpt failed", "error", err)
		writeInternal(w)
		return
	}

	from := existing.Status
	updated, err := h.blogs.Update(r.Context(), &models.Blog{
		ID:        existing.ID,
		Title:     req.Title,
		Slug:      slug.ForBlog(req.Title, existing.ID),
		Excerpt:   req.Excerpt,
		Content:   req.Content,
		IsDraft:   req.IsDraft,
		Status:    sub.status,
		WordCount: sub.stats.WordCount,
		ReadTime:  sub.stats.ReadTimeMinutes,
	})
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}
	if err != nil {
		slog.Error("update blog failed", "error", err, "id", id)
		writeInternal(w)
		return
	}

	h.recorder.record(r.Context(), updated.ID, sess.UserID, &from, updated.Status, store.ReasonUpdate, sub.flags)

	writeJSON(w, http.StatusOK, submitResponse{Blog: updated, Status: updated.Status, Flags: sub.flags})
}

// Delete handles DELETE /api/blogs/{id} for the author or an admin.
func (h *Blogs) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	existing, err := h.blogs.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find blog failed", "error", err, "id", id)
		writeInternal(w)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}
	if !existing.CanEdit(sess.UserID, sess.Role) {
		writeError(w, http.StatusForbidden, "not allowed to delete this blog")
		return
	}

	deleteBlog(w, r, h.blogs, h.recorder, existing, sess.UserID)
}

// deleteBlog removes a post and records the deletion. Shared by the
// author and admin delete endpoints.
func deleteBlog(w http.ResponseWriter, r *http.Request, blogs BlogRepository, rec statusRecorder, b *models.Blog, actor uuid.UUID) {
	deleted, err := blogs.Delete(r.Context(), b.ID)
	if err != nil {
		slog.Error("delete blog failed", "error", err, "id", b.ID)
		writeInternal(w)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}

	from := b.Status
	rec.record(r.Context(), b.ID, actor, &from, b.Status, store.ReasonDelete, nil)
	slog.Info("blog deleted", "id", b.ID, "actor", actor)

	w.WriteHeader(http.StatusNoContent)
}

// Get handles GET /api/blogs/{id}. Posts that are not approved are only
// visible to their author and to admins; everyone else gets a 404.
func (h *Blogs) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	b, err := h.blogs.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find blog failed", "error", err, "id", id)
		writeInternal(w)
		return
	}
	if b == nil || !canView(r, b) {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func canView(r *http.Request, b *models.Blog) bool {
	if b.IsPublic() {
		return true
	}
	sess := middleware.SessionFromCtx(r.Context())
	return sess != nil && b.CanEdit(sess.UserID, sess.Role)
}

// BySlug handles GET /api/blogs/slug/{slug}. Only approved posts resolve.
func (h *Blogs) BySlug(w http.ResponseWriter, r *http.Request) {
	b, err := h.blogs.FindPublicBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		slog.Error("find blog by slug failed", "error", err)
		writeInternal(w)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// List handles GET /api/blogs: approved posts, newest first.
func (h *Blogs) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	blogs, err := h.blogs.ListPublic(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list public blogs failed", "error", err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(blogs))
}

// Search handles GET /api/blogs/search?q=. Only approved posts match.
func (h *Blogs) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	if len([]rune(q)) > maxSearchLen {
		writeError(w, http.StatusBadRequest, "q is too long")
		return
	}

	limit, _ := page(r)
	blogs, err := h.blogs.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search blogs failed", "error", err)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(blogs))
}

// Mine handles GET /api/me/blogs: every post of the caller in any status.
func (h *Blogs) Mine(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	blogs, err := h.blogs.ListByAuthor(r.Context(), sess.UserID)
	if err != nil {
		slog.Error("list author blogs failed", "error", err, "author", sess.UserID)
		writeInternal(w)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(blogs))
}

// checkRequest is the body of a moderation dry run.
type checkRequest struct {
	Title   string `json:"title" validate:"max=300"`
	Excerpt string `json:"excerpt" validate:"max=1000"`
	Content string `json:"content" validate:"max=100000"`
}

// checkResponse carries the decision and, unless it is a rejection, the
// status a save would get.
type checkResponse struct {
	Decision moderation.Decision `json:"decision"`
	Status   models.BlogStatus   `json:"status,omitempty"`
}

// Check handles POST /api/moderation/check: it scores the text and reports
// the status a non-draft save would get, without storing anything.
func (h *Blogs) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !bind(w, r, &req) {
		return
	}

	d := h.moderator.Moderate(moderation.TypePreview, req.Title, req.Excerpt, req.Content)
	resp := checkResponse{Decision: d}
	if status, err := publication.Submit(false, d); err == nil {
		resp.Status = status
	}
	writeJSON(w, http.StatusOK, resp)
}

func nonNil(blogs []models.Blog) []models.Blog {
	if blogs == nil {
		return []models.Blog{}
	}
	return blogs
}
