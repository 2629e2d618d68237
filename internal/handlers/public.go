// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"devnote/internal/cache"
	"devnote/internal/feed"
	"devnote/internal/models"
)

const (
	// rssItems is how many of the newest approved posts the RSS feed lists.
	rssItems = 50

	// sitemapURLs is the sitemaps.org per-file limit.
	sitemapURLs = 50_000
)

// Public serves the syndication documents. Rendered documents are kept
// in the Valkey feed cache and rebuilt from approved posts on a miss.
type Public struct {
	blogs BlogRepository
	cache FeedCache
	site  feed.Site
	now   func() time.Time
}

// NewPublic creates a new Public handler group.
func NewPublic(blogs BlogRepository, feedCache FeedCache, site feed.Site) *Public {
	return &Public{
		blogs: blogs,
		cache: feedCache,
		site:  site,
		now:   time.Now,
	}
}

// RSS handles GET /rss.xml.
func (p *Public) RSS(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, cache.KeyRSS, "application/rss+xml; charset=utf-8", rssItems, func(blogs []models.Blog) ([]byte, error) {
		return feed.RSS(p.site, blogs, p.now())
	})
}

// Sitemap handles GET /sitemap.xml.
func (p *Public) Sitemap(w http.ResponseWriter, r *http.Request) {
	p.serve(w, r, cache.KeySitemap, "application/xml; charset=utf-8", sitemapURLs, func(blogs []models.Blog) ([]byte, error) {
		return feed.Sitemap(p.site, blogs)
	})
}

func (p *Public) serve(w http.ResponseWriter, r *http.Request, key, contentType string, limit int, render func([]models.Blog) ([]byte, error)) {
	ctx := r.Context()

	// The generation is read before the database so an invalidation
	// during the render retires the document.
	cached, gen, ok := p.cache.Get(ctx, key)
	if ok {
		w.Header().Set("Content-Type", contentType)
		w.Write(cached)
		return
	}

	blogs, err := p.blogs.ListPublic(ctx, limit, 0)
	if err != nil {
		slog.Error("list public blogs failed", "error", err, "feed", key)
		writeInternal(w)
		return
	}
	doc, err := render(blogs)
	if err != nil {
		slog.Error("render feed failed", "error", err, "feed", key)
		writeInternal(w)
		return
	}

	p.cache.Set(ctx, key, gen, doc)
	w.Header().Set("Content-Type", contentType)
	w.Write(doc)
}

// Health reports whether PostgreSQL and Valkey answer a ping.
type Health struct {
	db     Pinger
	valkey Pinger
}

// NewHealth creates the health check handler.
func NewHealth(db, valkey Pinger) *Health {
	return &Health{db: db, valkey: valkey}
}

// ServeHTTP handles GET /health.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "valkey": "ok"}
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		slog.Warn("health: database ping failed", "error", err)
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := h.valkey.PingContext(ctx); err != nil {
		slog.Warn("health: valkey ping failed", "error", err)
		checks["valkey"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	resp := map[string]any{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		resp["status"] = "degraded"
	}
	writeJSON(w, status, resp)
}
