// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// audit.go records every blog status change in moderation_log: who made
// it, from which status to which, why, and the moderation flags that were
// raised at the time.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"devnote/internal/models"
)

// Audit reasons.
const (
	ReasonSubmit = "submit"
	ReasonUpdate = "update"
	ReasonAdmin  = "admin"
	ReasonDelete = "delete"
)

// AuditStore handles moderation log operations.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log records a status change. Failures are logged and swallowed so a
// broken audit trail never blocks the write it describes.
func (s *AuditStore) Log(ctx context.Context, e models.AuditEntry) {
	flags := e.Flags
	if flags == nil {
		flags = []string{}
	}
	raw, err := json.Marshal(flags)
	if err != nil {
		slog.Warn("failed to encode moderation flags", "blog_id", e.BlogID, "error", err)
		raw = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO moderation_log (blog_id, actor_id, from_status, to_status, reason, flags)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.BlogID, e.ActorID, e.FromStatus, e.ToStatus, e.Reason, raw)
	if err != nil {
		slog.Warn("failed to write moderation log",
			"blog_id", e.BlogID,
			"to_status", e.ToStatus,
			"reason", e.Reason,
			"error", err,
		)
		return
	}
	slog.Debug("moderation log written",
		"blog_id", e.BlogID,
		"to_status", e.ToStatus,
		"reason", e.Reason,
	)
}

const auditColumns = `id, blog_id, actor_id, from_status, to_status, reason, flags, created_at`

// Recent returns the most recent moderation log entries, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	return s.query(ctx, "query moderation log", `
		SELECT `+auditColumns+`
		FROM moderation_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
}

// ForBlog returns the history of one blog post, newest first.
func (s *AuditStore) ForBlog(ctx context.Context, blogID uuid.UUID) ([]models.AuditEntry, error) {
	return s.query(ctx, "query blog moderation log", `
		SELECT `+auditColumns+`
		FROM moderation_log
		WHERE blog_id = $1
		ORDER BY created_at DESC, id DESC
	`, blogID)
}

// Prune deletes entries older than the cutoff and returns how many were removed.
func (s *AuditStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM moderation_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune moderation log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune moderation log rows affected: %w", err)
	}
	return n, nil
}

func (s *AuditStore) query(ctx context.Context, op, query string, args ...any) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var (
			e   models.AuditEntry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.BlogID, &e.ActorID, &e.FromStatus, &e.ToStatus,
			&e.Reason, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation log: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Flags); err != nil {
				return nil, fmt.Errorf("decode moderation flags: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
