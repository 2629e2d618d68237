// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package feed renders the public RSS 2.0 feed and the XML sitemap from
// approved blog posts. Posts in any other status are skipped, so callers
// can pass whatever the store returned without filtering first.
package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/gorilla/feeds"

	"devnote/internal/markdown"
	"devnote/internal/models"
)

// Site identifies the publication the documents describe.
type Site struct {
	Name        string
	BaseURL     string // absolute, no trailing slash
	Description string
}

// PostURL returns the public URL of a blog post.
func (s Site) PostURL(slug string) string {
	return s.BaseURL + "/blog/" + slug
}

// RSS renders an RSS 2.0 document. Item bodies are the post's markdown
// rendered to HTML and carried in content:encoded.
func RSS(site Site, blogs []models.Blog, now time.Time) ([]byte, error) {
	f := &feeds.Feed{
		Title:       site.Name,
		Link:        &feeds.Link{Href: site.BaseURL + "/"},
		Description: site.Description,
		Created:     now,
		Updated:     now,
	}

	for _, b := range blogs {
		if !b.IsPublic() {
			continue
		}
		body, err := markdown.ToHTML(b.Content)
		if err != nil {
			return nil, fmt.Errorf("render rss item %s: %w", b.ID, err)
		}
		f.Items = append(f.Items, &feeds.Item{
			Title:       b.Title,
			Link:        &feeds.Link{Href: site.PostURL(b.Slug)},
			Id:          b.ID.String(),
			IsPermaLink: "false",
			Created:     publishedAt(b).UTC(),
			Description: b.Excerpt,
			Content:     body,
		})
	}

	doc, err := f.ToRss()
	if err != nil {
		return nil, fmt.Errorf("encode rss: %w", err)
	}
	return []byte(doc + "\n"), nil
}

// The sitemaps.org schema is small and has no maintained Go writer, so the
// urlset is marshalled directly.
type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap renders a sitemaps.org urlset with the home page followed by
// every approved post.
func Sitemap(site Site, blogs []models.Blog) ([]byte, error) {
	doc := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  []sitemapURL{{Loc: site.BaseURL + "/"}},
	}
	for _, b := range blogs {
		if !b.IsPublic() {
			continue
		}
		doc.URLs = append(doc.URLs, sitemapURL{
			Loc:     site.PostURL(b.Slug),
			LastMod: b.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}
	return encode(doc)
}

func publishedAt(b models.Blog) time.Time {
	if b.PublishedAt != nil {
		return *b.PublishedAt
	}
	return b.CreatedAt
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
