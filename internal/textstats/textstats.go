// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package textstats derives reader-facing numbers (word count, read time)
// and fallback excerpts from a post's Markdown body.
package textstats

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"devnote/internal/markdown"
)

// WordsPerMinute is the reading speed used for read-time estimates.
const WordsPerMinute = 200

// Stats holds the computed statistics for one post body.
type Stats struct {
	WordCount       int `json:"word_count"`
	ReadTimeMinutes int `json:"read_time"`
}

// Analyze renders the Markdown, strips markup and counts words. Read time
// is rounded up and never below one minute.
func Analyze(source string) (Stats, error) {
	text, err := PlainText(source)
	if err != nil {
		return Stats{}, err
	}
	words := len(strings.Fields(text))
	return Stats{WordCount: words, ReadTimeMinutes: ReadTime(words)}, nil
}

// ReadTime converts a word count into whole minutes.
func ReadTime(words int) int {
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// PlainText returns the visible text of the rendered Markdown.
func PlainText(source string) (string, error) {
	html, err := markdown.ToHTML(source)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse rendered html: %w", err)
	}
	// Block elements are rendered without separating whitespace in Text().
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, td, th, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return doc.Text(), nil
}

// Excerpt returns at most maxRunes runes of the post's plain text, cut at
// a word boundary and suffixed with an ellipsis when shortened.
func Excerpt(source string, maxRunes int) (string, error) {
	text, err := PlainText(source)
	if err != nil {
		return "", err
	}
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text, nil
	}

	cut := string([]rune(text)[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…", nil
}
