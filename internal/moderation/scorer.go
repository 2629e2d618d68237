// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package moderation scores user-submitted text against spam heuristics
// and maps the score to a coarse moderation action. Everything here is
// pure: no I/O, no shared mutable state, identical input gives identical
// output.
package moderation

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Heuristic weights and thresholds.
const (
	patternWeight   = 2
	lexiconWeight   = 1
	linksWeight     = 3
	capsWeight      = 2
	maxLinks        = 3
	capsRatioLimit  = 0.5
	capsMinLength   = 50
	spamThreshold   = 3
	confidenceScale = 10.0
)

// urlPattern counts raw links for the excessive_links check. It overlaps
// the multiple_links pattern on purpose; both contribute to the score.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// Result is the risk assessment for one piece of text.
type Result struct {
	IsSpam     bool     `json:"is_spam"`
	SpamScore  int      `json:"spam_score"`
	Flags      []string `json:"flags"`
	Confidence float64  `json:"confidence"`
}

// Scorer evaluates text against a compiled rule set. It is safe for
// concurrent use.
type Scorer struct {
	patterns []*regexp2.Regexp
	lexicon  []string
}

// NewScorer compiles the given rules. It fails only if a pattern does not
// compile.
func NewScorer(rules Rules) (*Scorer, error) {
	patterns, lexicon, err := rules.compile()
	if err != nil {
		return nil, err
	}
	return &Scorer{patterns: patterns, lexicon: lexicon}, nil
}

// Score runs every heuristic over text and returns the combined result.
func (s *Scorer) Score(text string) Result {
	score := 0
	flags := []string{}

	for i, re := range s.patterns {
		matched, err := re.MatchString(text)
		if err != nil {
			// Only a match timeout can fail here; treat it as no match.
			slog.Warn("moderation pattern failed", "index", i, "error", err)
			continue
		}
		if matched {
			score += patternWeight
			flags = append(flags, fmt.Sprintf("spam_pattern_%d", i))
		}
	}

	lower := strings.ToLower(text)
	for _, word := range s.lexicon {
		if strings.Contains(lower, word) {
			score += lexiconWeight
			flags = append(flags, "profanity_"+word)
		}
	}

	if links := len(urlPattern.FindAllStringIndex(text, -1)); links > maxLinks {
		score += linksWeight
		flags = append(flags, "excessive_links")
	}

	if length := utf8.RuneCountInString(text); length > capsMinLength && capsRatio(text, length) > capsRatioLimit {
		score += capsWeight
		flags = append(flags, "excessive_caps")
	}

	return Result{
		IsSpam:     score >= spamThreshold,
		SpamScore:  score,
		Flags:      flags,
		Confidence: confidence(score),
	}
}

// capsRatio is the share of ASCII capital letters among all runes.
func capsRatio(text string, length int) float64 {
	if length == 0 {
		return 0
	}
	caps := 0
	for _, r := range text {
		if r >= 'A' && r <= 'Z' {
			caps++
		}
	}
	return float64(caps) / float64(length)
}

func confidence(score int) float64 {
	return math.Min(float64(score)/confidenceScale, 1)
}
