package models

import (
	"testing"

	"github.com/google/uuid"
)

// TestBlogIsPublic verifies that only approved posts are publicly visible.
func TestBlogIsPublic(t *testing.T) {
	tests := []struct {
		name   string
		status BlogStatus
		want   bool
	}{
		{name: "approved", status: BlogStatusApproved, want: true},
		{name: "draft", status: BlogStatusDraft, want: false},
		{name: "pending", status: BlogStatusPending, want: false},
		{name: "rejected", status: BlogStatusRejected, want: false},
		{name: "hidden", status: BlogStatusHidden, want: false},
		{name: "empty status", status: BlogStatus(""), want: false},
		{name: "uppercase APPROVED", status: BlogStatus("APPROVED"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Blog{Status: tt.status}
			if got := b.IsPublic(); got != tt.want {
				t.Errorf("Blog{Status: %q}.IsPublic() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestParseBlogStatus(t *testing.T) {
	for _, st := range BlogStatuses {
		t.Run(string(st), func(t *testing.T) {
			got, err := ParseBlogStatus(string(st))
			if err != nil {
				t.Fatalf("ParseBlogStatus(%q): %v", st, err)
			}
			if got != st {
				t.Errorf("got %q, want %q", got, st)
			}
		})
	}

	for _, bad := range []string{"", "published", "Approved", "deleted"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			if _, err := ParseBlogStatus(bad); err == nil {
				t.Errorf("ParseBlogStatus(%q) should fail", bad)
			}
		})
	}
}

func TestBlogCanEdit(t *testing.T) {
	author := uuid.New()
	other := uuid.New()
	b := &Blog{AuthorID: author}

	if !b.CanEdit(author, RoleAuthor) {
		t.Error("author should be able to edit own post")
	}
	if b.CanEdit(other, RoleAuthor) {
		t.Error("other author should not be able to edit")
	}
	if !b.CanEdit(other, RoleAdmin) {
		t.Error("admin should be able to edit any post")
	}
}
