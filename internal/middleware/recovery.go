// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"devnote/internal/metrics"
)

// Recoverer turns a handler panic into a logged, counted JSON 500. If the
// handler had already started its response, the status it sent stands and
// nothing more is written. http.ErrAbortHandler is passed on to net/http.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracked := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			route := routePattern(r)
			metrics.Panics.WithLabelValues(route).Inc()
			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"route", route,
				"response_started", tracked.written,
				"stack", string(debug.Stack()),
			)
			if !tracked.written {
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(tracked, r)
	})
}
