// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"devnote/internal/models"
)

// ErrNotFound is returned by writes that target a row which does not exist.
var ErrNotFound = errors.New("not found")

const blogColumns = `id, author_id, title, slug, excerpt, content, is_draft, status,
	word_count, read_time, published_at, created_at, updated_at`

// publishedAtExpr stamps published_at the first time a row enters approved
// and leaves it alone afterwards. $1 must be the new status.
const publishedAtExpr = `CASE WHEN $1 = 'approved' AND published_at IS NULL THEN NOW() ELSE published_at END`

// BlogStore handles all blog-related database operations. Every query that
// serves readers filters on status = 'approved' when it runs, so a status
// change is visible to the next read through the shared pool.
type BlogStore struct {
	db *sql.DB
}

// NewBlogStore creates a new BlogStore with the given database connection.
func NewBlogStore(db *sql.DB) *BlogStore {
	return &BlogStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlog(row rowScanner) (*models.Blog, error) {
	b := &models.Blog{}
	err := row.Scan(
		&b.ID, &b.AuthorID, &b.Title, &b.Slug, &b.Excerpt, &b.Content, &b.IsDraft, &b.Status,
		&b.WordCount, &b.ReadTime, &b.PublishedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (s *BlogStore) queryBlogs(ctx context.Context, op, query string, args ...any) ([]models.Blog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Blog{}
	for rows.Next() {
		b, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blog: %w", err)
		}
		items = append(items, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func (s *BlogStore) queryBlog(ctx context.Context, op, query string, args ...any) (*models.Blog, error) {
	b, err := scanBlog(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// Create inserts a new blog post and returns the stored row. A zero ID is
// replaced with a fresh UUID.
func (s *BlogStore) Create(ctx context.Context, b *models.Blog) (*models.Blog, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	created, err := scanBlog(s.db.QueryRowContext(ctx, `
		INSERT INTO blogs (id, author_id, title, slug, excerpt, content, is_draft, status,
		                   word_count, read_time, published_at)
		VALUES ($2, $3, $4, $5, $6, $7, $8, $1, $9, $10,
		        CASE WHEN $1 = 'approved' THEN NOW() END)
		RETURNING `+blogColumns,
		b.Status, b.ID, b.AuthorID, b.Title, b.Slug, b.Excerpt, b.Content, b.IsDraft,
		b.WordCount, b.ReadTime,
	))
	if err != nil {
		return nil, fmt.Errorf("create blog: %w", err)
	}
	return created, nil
}

// Update writes the author-editable fields and the status computed for
// this save.
func (s *BlogStore) Update(ctx context.Context, b *models.Blog) (*models.Blog, error) {
	updated, err := s.queryBlog(ctx, "update blog", `
		UPDATE blogs SET
			title = $2, slug = $3, excerpt = $4, content = $5, is_draft = $6, status = $1,
			word_count = $7, read_time = $8,
			published_at = `+publishedAtExpr+`,
			updated_at = NOW()
		WHERE id = $9
		RETURNING `+blogColumns,
		b.Status, b.Title, b.Slug, b.Excerpt, b.Content, b.IsDraft,
		b.WordCount, b.ReadTime, b.ID,
	)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// UpdateStatus applies an admin status change. Any non-draft status also
// clears the draft flag.
func (s *BlogStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BlogStatus) (*models.Blog, error) {
	updated, err := s.queryBlog(ctx, "update blog status", `
		UPDATE blogs SET
			status = $1,
			is_draft = ($1 = 'draft'),
			published_at = `+publishedAtExpr+`,
			updated_at = NOW()
		WHERE id = $2
		RETURNING `+blogColumns,
		status, id,
	)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// Delete removes a blog post. It reports whether a row was deleted.
func (s *BlogStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete blog: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete blog rows affected: %w", err)
	}
	return n > 0, nil
}

// FindByID retrieves a blog post regardless of status. Returns nil if not found.
func (s *BlogStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	return s.queryBlog(ctx, "find blog by id",
		`SELECT `+blogColumns+` FROM blogs WHERE id = $1`, id)
}

// FindPublicBySlug retrieves an approved blog post by slug. Returns nil if
// no approved post has that slug.
func (s *BlogStore) FindPublicBySlug(ctx context.Context, slug string) (*models.Blog, error) {
	return s.queryBlog(ctx, "find public blog by slug",
		`SELECT `+blogColumns+` FROM blogs WHERE slug = $1 AND status = 'approved'`, slug)
}

// ListPublic returns approved posts, newest publication first.
func (s *BlogStore) ListPublic(ctx context.Context, limit, offset int) ([]models.Blog, error) {
	return s.queryBlogs(ctx, "list public blogs", `
		SELECT `+blogColumns+`
		FROM blogs
		WHERE status = 'approved'
		ORDER BY published_at DESC NULLS LAST, created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
}

// Search runs a full-text query over approved posts, best match first.
func (s *BlogStore) Search(ctx context.Context, query string, limit int) ([]models.Blog, error) {
	return s.queryBlogs(ctx, "search blogs", `
		SELECT `+blogColumns+`
		FROM blogs,
		     websearch_to_tsquery('english', $1) AS q
		WHERE status = 'approved'
		  AND to_tsvector('english', title || ' ' || excerpt || ' ' || content) @@ q
		ORDER BY ts_rank(to_tsvector('english', title || ' ' || excerpt || ' ' || content), q) DESC,
		         published_at DESC
		LIMIT $2
	`, query, limit)
}

// ListByAuthor returns every post by one author in any status, most
// recently edited first.
func (s *BlogStore) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Blog, error) {
	return s.queryBlogs(ctx, "list blogs by author", `
		SELECT `+blogColumns+`
		FROM blogs
		WHERE author_id = $1
		ORDER BY updated_at DESC
	`, authorID)
}

// ListByStatus returns posts in the given status for the admin queue,
// oldest first so the review queue is worked in arrival order.
func (s *BlogStore) ListByStatus(ctx context.Context, status models.BlogStatus, limit, offset int) ([]models.Blog, error) {
	return s.queryBlogs(ctx, "list blogs by status", `
		SELECT `+blogColumns+`
		FROM blogs
		WHERE status = $1
		ORDER BY updated_at ASC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
}

// CountByStatus returns the number of posts in each status. Every status
// is present in the result, with zero when no posts have it.
func (s *BlogStore) CountByStatus(ctx context.Context) (map[models.BlogStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM blogs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count blogs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.BlogStatus]int, len(models.BlogStatuses))
	for _, st := range models.BlogStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var st models.BlogStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan blog count: %w", err)
		}
		counts[st] = n
	}
	return counts, rows.Err()
}
