// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package moderation

import (
	"fmt"
	"os"
	"strings"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"
)

// PatternRule is a single spam pattern. Patterns use .NET/ECMAScript regex
// syntax (regexp2) so rules may rely on backreferences.
type PatternRule struct {
	Name       string `yaml:"name"`
	Pattern    string `yaml:"pattern"`
	IgnoreCase bool   `yaml:"ignore_case"`
}

// Rules is the immutable heuristic configuration handed to a Scorer.
// Pattern order is significant: the index of a matching pattern becomes
// part of its flag (spam_pattern_<index>).
type Rules struct {
	Patterns []PatternRule `yaml:"patterns"`
	Lexicon  []string      `yaml:"lexicon"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Patterns: []PatternRule{
			{
				Name:       "promotional",
				Pattern:    `\b(buy now|click here|limited time|act now|free money|make money fast|order now|100% free|risk free)\b`,
				IgnoreCase: true,
			},
			{
				// Runs of non-letters are markdown syntax (tables, rules,
				// fences) or numbers, so only letters count.
				Name:    "repeated_characters",
				Pattern: `([!?$])\1{2,}|(\p{L})\2{5,}`,
			},
			{
				Name:    "uppercase_run",
				Pattern: `[A-Z]{15,}`,
			},
			{
				Name:       "multiple_links",
				Pattern:    `(?:https?://(?>\S+)[\s\S]*?){3}`,
				IgnoreCase: true,
			},
		},
		Lexicon: []string{
			"fuck", "shit", "bitch", "bastard",
			"scam", "fraud", "phishing", "counterfeit",
		},
	}
}

// LoadRules reads a YAML rules file. An empty lexicon or pattern list in
// the file is kept as-is; callers wanting the defaults should not set a path.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read moderation rules: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse moderation rules: %w", err)
	}
	return rules, nil
}

// compile turns the rule set into matchers. Lexicon words are lowercased
// once here so scoring only lowercases the input.
func (r Rules) compile() ([]*regexp2.Regexp, []string, error) {
	patterns := make([]*regexp2.Regexp, 0, len(r.Patterns))
	for i, p := range r.Patterns {
		opts := regexp2.None
		if p.IgnoreCase {
			opts |= regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(p.Pattern, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("compile pattern %d (%s): %w", i, p.Name, err)
		}
		patterns = append(patterns, re)
	}

	lexicon := make([]string, 0, len(r.Lexicon))
	for _, w := range r.Lexicon {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		lexicon = append(lexicon, w)
	}
	return patterns, lexicon, nil
}
