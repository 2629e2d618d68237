// Package router sets up all HTTP routes and middleware chains for the
// DevNote API. Routes are split into public, authenticated and admin groups
// with the middleware stack each needs.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"devnote/internal/handlers"
	"devnote/internal/middleware"
)

// Handlers bundles the handler groups the router mounts.
type Handlers struct {
	Auth   *handlers.Auth
	Blogs  *handlers.Blogs
	Admin  *handlers.Admin
	Public *handlers.Public
	Health http.Handler
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter guards the auth and write endpoints.
func New(sessions middleware.SessionLoader, limiter *middleware.RateLimiter, h Handlers, secureCookies bool) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.Metrics)
	r.Use(middleware.LoadSession(sessions))

	// Health checks and syndication: no auth, no CSRF.
	r.Method(http.MethodGet, "/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/rss.xml", h.Public.RSS)
	r.Get("/sitemap.xml", h.Public.Sitemap)

	limited := limiter.Middleware

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCSRF(secureCookies))

		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/register", h.Auth.Register)
			r.With(limited).Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)

			// Signed in, 2FA not necessarily completed.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/me", h.Auth.Me)
				r.Get("/2fa/setup", h.Auth.TwoFASetup)
				r.With(limited).Post("/2fa/verify", h.Auth.TwoFAVerify)
			})
		})

		// Public reads. Only approved posts are returned to anonymous callers.
		r.Get("/blogs", h.Blogs.List)
		r.Get("/blogs/search", h.Blogs.Search)
		r.Get("/blogs/slug/{slug}", h.Blogs.BySlug)
		r.Get("/blogs/{id}", h.Blogs.Get)

		// Authors.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)

			r.With(limited).Post("/blogs", h.Blogs.Create)
			r.With(limited).Put("/blogs/{id}", h.Blogs.Update)
			r.Delete("/blogs/{id}", h.Blogs.Delete)
			r.Get("/me/blogs", h.Blogs.Mine)
			r.With(limited).Post("/moderation/check", h.Blogs.Check)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Use(middleware.RequireAdmin)

			r.Get("/blogs", h.Admin.ListBlogs)
			r.Put("/blogs/{id}/status", h.Admin.UpdateStatus)
			r.Delete("/blogs/{id}", h.Admin.DeleteBlog)
			r.Get("/moderation/log", h.Admin.ModerationLog)
			r.Get("/stats", h.Admin.Stats)
		})
	})

	return r
}
