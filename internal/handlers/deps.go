// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the DevNote JSON API and the public feeds.
// Handlers depend on the narrow interfaces below; the concrete stores live
// in internal/store and internal/cache.
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"devnote/internal/models"
	"devnote/internal/session"
)

// BlogRepository persists blog posts.
type BlogRepository interface {
	Create(ctx context.Context, b *models.Blog) (*models.Blog, error)
	Update(ctx context.Context, b *models.Blog) (*models.Blog, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.BlogStatus) (*models.Blog, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Blog, error)
	FindPublicBySlug(ctx context.Context, slug string) (*models.Blog, error)
	ListPublic(ctx context.Context, limit, offset int) ([]models.Blog, error)
	Search(ctx context.Context, query string, limit int) ([]models.Blog, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Blog, error)
	ListByStatus(ctx context.Context, status models.BlogStatus, limit, offset int) ([]models.Blog, error)
	CountByStatus(ctx context.Context) (map[models.BlogStatus]int, error)
}

// AuditLog records and reads blog status changes.
type AuditLog interface {
	Log(ctx context.Context, e models.AuditEntry)
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
	ForBlog(ctx context.Context, blogID uuid.UUID) ([]models.AuditEntry, error)
}

// UserRepository persists accounts and their TOTP state.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(user *models.User, password string) bool
}

// SessionManager creates and mutates login sessions.
type SessionManager interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// FeedCache stores rendered feed documents. Get reports the cache
// generation it looked in; a document rendered after a miss is stored with
// that generation, so a render overtaken by InvalidateAll is never served.
type FeedCache interface {
	Get(ctx context.Context, key string) (doc []byte, gen int64, ok bool)
	Set(ctx context.Context, key string, gen int64, doc []byte)
	InvalidateAll(ctx context.Context)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}
