// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"devnote/internal/metrics"
	"devnote/internal/middleware"
	"devnote/internal/models"
	"devnote/internal/publication"
	"devnote/internal/store"
)

// Admin groups the moderation queue and status management endpoints.
// Every route is behind RequireAdmin and Require2FA.
type Admin struct {
	blogs    BlogRepository
	audit    AuditLog
	recorder statusRecorder
}

// NewAdmin creates a new Admin handler group.
func NewAdmin(blogs BlogRepository, audit AuditLog, feeds FeedCache) *Admin {
	return &Admin{
		blogs:    blogs,
		audit:    audit,
		recorder: statusRecorder{audit: audit, feeds: feeds},
	}
}

// queueItem is a blog in an admin listing together with the statuses an
// admin may move it to.
type queueItem struct {
	models.Blog
	Targets []models.BlogStatus `json:"allowed_targets"`
}

// ListBlogs handles GET /api/admin/blogs?status=. The status defaults to
// pending, which is the moderation queue.
func (a *Admin) ListBlogs(w http.ResponseWriter, r *http.Request) {
	status := models.BlogStatusPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := models.ParseBlogStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		status = parsed
	}

	limit, offset := page(r)
	blogs, err := a.blogs.ListByStatus(r.Context(), status, limit, offset)
	if err != nil {
		slog.Error("list blogs by status failed", "error", err, "status", status)
		writeInternal(w)
		return
	}

	items := make([]queueItem, 0, len(blogs))
	for _, b := range blogs {
		items = append(items, queueItem{Blog: b, Targets: publication.AdminTargets(b.Status)})
	}
	writeJSON(w, http.StatusOK, items)
}

// statusRequest is the body of an admin status change.
type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected hidden"`
}

// UpdateStatus handles PUT /api/admin/blogs/{id}/status. Moves outside the
// admin transition table are refused with 409; setting the current status
// again is a no-op.
func (a *Admin) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if !bind(w, r, &req) {
		return
	}
	target := models.BlogStatus(req.Status)

	existing, err := a.blogs.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find blog failed", "error", err, "id", id)
		writeInternal(w)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}

	if err := publication.Transition(existing.Status, target); err != nil {
		if errors.Is(err, publication.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if existing.Status == target {
		writeJSON(w, http.StatusOK, existing)
		return
	}

	from := existing.Status
	updated, err := a.blogs.UpdateStatus(r.Context(), id, target)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}
	if err != nil {
		slog.Error("update blog status failed", "error", err, "id", id)
		writeInternal(w)
		return
	}

	a.recorder.record(r.Context(), id, sess.UserID, &from, target, store.ReasonAdmin, nil)
	slog.Info("blog status changed", "id", id, "from", from, "to", target, "admin", sess.UserID)

	writeJSON(w, http.StatusOK, updated)
}

// DeleteBlog handles DELETE /api/admin/blogs/{id}.
func (a *Admin) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	existing, err := a.blogs.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("find blog failed", "error", err, "id", id)
		writeInternal(w)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "blog not found")
		return
	}

	deleteBlog(w, r, a.blogs, a.recorder, existing, sess.UserID)
}

// ModerationLog handles GET /api/admin/moderation/log. With ?blog_id= it
// returns the full history of one post, otherwise the most recent entries.
func (a *Admin) ModerationLog(w http.ResponseWriter, r *http.Request) {
	var (
		entries []models.AuditEntry
		err     error
	)
	if raw := r.URL.Query().Get("blog_id"); raw != "" {
		blogID, perr := uuid.Parse(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid blog_id")
			return
		}
		entries, err = a.audit.ForBlog(r.Context(), blogID)
	} else {
		limit, _ := page(r)
		entries, err = a.audit.Recent(r.Context(), limit)
	}
	if err != nil {
		slog.Error("read moderation log failed", "error", err)
		writeInternal(w)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// statsResponse summarizes the blog population by status.
type statsResponse struct {
	Counts     map[models.BlogStatus]int `json:"counts"`
	QueueDepth int                       `json:"queue_depth"`
	Total      int                       `json:"total"`
}

// Stats handles GET /api/admin/stats. It also refreshes the queue depth
// gauge.
func (a *Admin) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := a.blogs.CountByStatus(r.Context())
	if err != nil {
		slog.Error("count blogs by status failed", "error", err)
		writeInternal(w)
		return
	}

	resp := statsResponse{Counts: counts, QueueDepth: counts[models.BlogStatusPending]}
	for _, n := range counts {
		resp.Total += n
	}
	metrics.QueueDepth.Set(float64(resp.QueueDepth))

	writeJSON(w, http.StatusOK, resp)
}
