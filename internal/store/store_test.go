// store_test.go provides shared helpers for the store tests. Unit tests run
// against go-sqlmock; integration tests use a real PostgreSQL instance and
// are skipped when it is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"devnote/internal/database"
	"devnote/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "devnote")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "devnote")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(ctx, testDSN())
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// mockDB returns a sqlmock-backed *sql.DB and checks all expectations were
// met when the test finishes.
func mockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var blogColumnNames = []string{
	"id", "author_id", "title", "slug", "excerpt", "content", "is_draft", "status",
	"word_count", "read_time", "published_at", "created_at", "updated_at",
}

// blogRows builds a sqlmock result set for the given posts.
func blogRows(blogs ...models.Blog) *sqlmock.Rows {
	rows := sqlmock.NewRows(blogColumnNames)
	for _, b := range blogs {
		var published any
		if b.PublishedAt != nil {
			published = *b.PublishedAt
		}
		rows.AddRow(
			b.ID.String(), b.AuthorID.String(), b.Title, b.Slug, b.Excerpt, b.Content, b.IsDraft, string(b.Status),
			b.WordCount, b.ReadTime, published, b.CreatedAt, b.UpdatedAt,
		)
	}
	return rows
}

func sampleBlog(status models.BlogStatus) models.Blog {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := models.Blog{
		ID:        uuid.New(),
		AuthorID:  uuid.New(),
		Title:     "Caching strategies",
		Slug:      "caching-strategies-1a2b3c4d",
		Excerpt:   "Read-through and write-behind.",
		Content:   "This is a normal, well-written technical article about caching strategies.",
		IsDraft:   status == models.BlogStatusDraft,
		Status:    status,
		WordCount: 10,
		ReadTime:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == models.BlogStatusApproved {
		b.PublishedAt = &now
	}
	return b
}

// createTestUser inserts an author for integration tests and removes it
// (and its posts, by cascade) afterwards.
func createTestUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	ctx := context.Background()
	db.ExecContext(ctx, "DELETE FROM users WHERE email = $1", email)

	u, err := NewUserStore(db).Create(ctx, email, "testpass123", "Store Test", models.RoleAuthor)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		db.ExecContext(context.Background(), "DELETE FROM users WHERE email = $1", email)
	})
	return u
}
