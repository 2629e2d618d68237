// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug builds URL-friendly slugs for blog posts.
package slug

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// maxLength bounds the title part of a slug, before any suffix.
const maxLength = 80

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, whitespace or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.Join(strings.Fields(result), "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > maxLength {
		result = strings.TrimRight(result[:maxLength], "-")
	}
	return result
}

// ForBlog returns a slug that is unique per post: the title slug followed
// by the first block of the post ID. Titles that produce an empty slug
// fall back to "post".
func ForBlog(title string, id uuid.UUID) string {
	base := Generate(title)
	if base == "" {
		base = "post"
	}
	return base + "-" + strings.SplitN(id.String(), "-", 2)[0]
}
