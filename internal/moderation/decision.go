// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package moderation

import (
	"strings"
	"time"

	"devnote/internal/metrics"
)

// Action is the coarse outcome of moderating a piece of content.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReview  Action = "review"
	ActionReject  Action = "reject"
)

// rejectConfidence is the confidence above which spam is refused outright
// instead of queued for a human.
const rejectConfidence = 0.7

// Content type tags carried on a Decision.
const (
	TypeBlog    = "blog"
	TypePreview = "preview"
)

// Decision is a scorer Result plus the action taken on it.
type Decision struct {
	Result
	Action      Action    `json:"action"`
	ModeratedAt time.Time `json:"moderated_at"`
	Type        string    `json:"type"`
}

// Decide maps a scorer result onto an action.
func Decide(res Result, contentType string, now time.Time) Decision {
	action := ActionApprove
	switch {
	case res.IsSpam && res.Confidence > rejectConfidence:
		action = ActionReject
	case res.IsSpam:
		action = ActionReview
	}
	return Decision{
		Result:      res,
		Action:      action,
		ModeratedAt: now,
		Type:        contentType,
	}
}

// Moderator runs the full scoring and decision step for content submitted
// through the HTTP layer.
type Moderator struct {
	scorer *Scorer
	now    func() time.Time
}

// NewModerator creates a Moderator backed by the given scorer.
func NewModerator(scorer *Scorer) *Moderator {
	return &Moderator{scorer: scorer, now: time.Now}
}

// Moderate scores the combined title, excerpt and content and decides
// what to do with it.
func (m *Moderator) Moderate(contentType, title, excerpt, content string) Decision {
	d := Decide(m.scorer.Score(Compose(title, excerpt, content)), contentType, m.now().UTC())
	metrics.ModerationDecisions.WithLabelValues(contentType, string(d.Action)).Inc()
	return d
}

// Compose joins the moderated fields into the single string the scorer sees.
func Compose(title, excerpt, content string) string {
	return strings.Join([]string{title, excerpt, content}, "\n")
}
