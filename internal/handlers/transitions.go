// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"

	"github.com/google/uuid"

	"devnote/internal/metrics"
	"devnote/internal/models"
)

// statusRecorder applies the side effects of a persisted status change:
// the audit row, the transition counter and feed invalidation.
type statusRecorder struct {
	audit AuditLog
	feeds FeedCache
}

// record is called after the write succeeded. from is nil for new posts.
func (sr statusRecorder) record(ctx context.Context, blogID uuid.UUID, actor uuid.UUID, from *models.BlogStatus, to models.BlogStatus, reason string, flags []string) {
	sr.audit.Log(ctx, models.AuditEntry{
		BlogID:     blogID,
		ActorID:    &actor,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
		Flags:      flags,
	})

	fromLabel := "none"
	if from != nil {
		fromLabel = string(*from)
	}
	metrics.StatusTransitions.WithLabelValues(fromLabel, string(to), reason).Inc()

	// Feeds only list approved posts, so only changes that enter or
	// leave approved (or edit an approved post) make them stale.
	if to.IsPublic() || (from != nil && from.IsPublic()) {
		sr.feeds.InvalidateAll(ctx)
	}
}
