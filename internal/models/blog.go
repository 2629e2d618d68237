// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlogStatus is the persisted lifecycle state of a blog post. It gates
// visibility on every public read surface (listing, search, RSS, sitemap).
type BlogStatus string

const (
	BlogStatusDraft    BlogStatus = "draft"
	BlogStatusPending  BlogStatus = "pending"
	BlogStatusApproved BlogStatus = "approved"
	BlogStatusRejected BlogStatus = "rejected"
	BlogStatusHidden   BlogStatus = "hidden"
)

// BlogStatuses lists every valid status in lifecycle order.
var BlogStatuses = []BlogStatus{
	BlogStatusDraft,
	BlogStatusPending,
	BlogStatusApproved,
	BlogStatusRejected,
	BlogStatusHidden,
}

// ParseBlogStatus converts a raw string into a BlogStatus, rejecting
// anything outside the closed set.
func ParseBlogStatus(s string) (BlogStatus, error) {
	switch st := BlogStatus(s); st {
	case BlogStatusDraft, BlogStatusPending, BlogStatusApproved, BlogStatusRejected, BlogStatusHidden:
		return st, nil
	}
	return "", fmt.Errorf("unknown blog status %q", s)
}

// IsPublic reports whether a post in this status may appear on public
// listings, search, RSS and the sitemap.
func (s BlogStatus) IsPublic() bool {
	return s == BlogStatusApproved
}

// Blog is a user-authored post. Title, excerpt and content belong to the
// author until deletion; Status is written only by the author submit path
// and explicit admin actions.
type Blog struct {
	ID          uuid.UUID  `json:"id"`
	AuthorID    uuid.UUID  `json:"author_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt"`
	Content     string     `json:"content"`
	IsDraft     bool       `json:"is_draft"`
	Status      BlogStatus `json:"status"`
	WordCount   int        `json:"word_count"`
	ReadTime    int        `json:"read_time"` // minutes
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsPublic returns true if the post is visible to readers.
func (b *Blog) IsPublic() bool {
	return b.Status.IsPublic()
}

// CanEdit reports whether the given user may modify or delete the post.
func (b *Blog) CanEdit(userID uuid.UUID, role Role) bool {
	return role == RoleAdmin || b.AuthorID == userID
}

// AuditEntry records a single status change on a blog post.
type AuditEntry struct {
	ID         int64       `json:"id"`
	BlogID     uuid.UUID   `json:"blog_id"`
	ActorID    *uuid.UUID  `json:"actor_id,omitempty"`
	FromStatus *BlogStatus `json:"from_status,omitempty"`
	ToStatus   BlogStatus  `json:"to_status"`
	Reason     string      `json:"reason"` // "submit", "update", "admin", "delete"
	Flags      []string    `json:"flags,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
