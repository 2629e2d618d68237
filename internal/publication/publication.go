// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publication owns the lifecycle of a blog post's status: what an
// author's save turns into, and which moves an admin may make afterwards.
package publication

import (
	"errors"
	"fmt"
	"strings"

	"devnote/internal/models"
	"devnote/internal/moderation"
)

var (
	// ErrRejected is returned when moderation refuses a submission.
	ErrRejected = errors.New("submission rejected by moderation")

	// ErrInvalidTransition is returned for admin moves outside the table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrHiddenDraft is returned when an author tries to save a hidden post
	// as a draft.
	ErrHiddenDraft = errors.New("hidden posts cannot be saved as drafts")
)

// RejectedError carries the moderation flags that caused a refusal so the
// author can revise the content.
type RejectedError struct {
	Flags []string
}

func (e *RejectedError) Error() string {
	if len(e.Flags) == 0 {
		return ErrRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrRejected, strings.Join(e.Flags, ", "))
}

// Is makes errors.Is(err, ErrRejected) match.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Submit returns the status an author's save should persist. Drafts never
// consult moderation. A reject decision returns a *RejectedError and the
// caller must not write anything.
func Submit(isDraft bool, d moderation.Decision) (models.BlogStatus, error) {
	if isDraft {
		return models.BlogStatusDraft, nil
	}

	switch d.Action {
	case moderation.ActionApprove:
		return models.BlogStatusApproved, nil
	case moderation.ActionReview:
		return models.BlogStatusPending, nil
	case moderation.ActionReject:
		flags := make([]string, len(d.Flags))
		copy(flags, d.Flags)
		return "", &RejectedError{Flags: flags}
	default:
		return "", fmt.Errorf("submit: unknown moderation action %q", d.Action)
	}
}

// Edit returns the status an author's edit of a stored post should persist.
// It follows Submit, except for posts an admin hid: those are always
// moderated, a clean edit keeps them hidden and a doubtful one sends them
// back to the review queue.
func Edit(current models.BlogStatus, isDraft bool, d moderation.Decision) (models.BlogStatus, error) {
	if current == models.BlogStatusHidden && isDraft {
		return "", ErrHiddenDraft
	}
	status, err := Submit(isDraft, d)
	if err != nil {
		return "", err
	}
	if current == models.BlogStatusHidden && status == models.BlogStatusApproved {
		return models.BlogStatusHidden, nil
	}
	return status, nil
}

// adminMoves lists the targets an admin may pick from each status. Moving
// to rejected is allowed from anywhere and handled in Transition.
var adminMoves = map[models.BlogStatus][]models.BlogStatus{
	models.BlogStatusPending:  {models.BlogStatusApproved},
	models.BlogStatusApproved: {models.BlogStatusHidden},
	models.BlogStatusHidden:   {models.BlogStatusApproved},
	models.BlogStatusRejected: {models.BlogStatusApproved, models.BlogStatusPending},
}

// Transition validates an admin-initiated status change. Setting a post to
// its current status is a no-op and always allowed.
func Transition(current, target models.BlogStatus) error {
	if _, err := models.ParseBlogStatus(string(target)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if target == models.BlogStatusDraft {
		return fmt.Errorf("%w: drafts are author-only", ErrInvalidTransition)
	}
	if current == target || target == models.BlogStatusRejected {
		return nil
	}
	for _, allowed := range adminMoves[current] {
		if allowed == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}

// AdminTargets returns the statuses an admin may select for a post
// currently in the given status, excluding the current one.
func AdminTargets(current models.BlogStatus) []models.BlogStatus {
	var out []models.BlogStatus
	for _, s := range models.BlogStatuses {
		if s == current {
			continue
		}
		if Transition(current, s) == nil {
			out = append(out, s)
		}
	}
	return out
}
