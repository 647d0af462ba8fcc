package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/lei/actions-gateway/internal/store"
)

// maxLimit caps the limit query parameter on event listings.
const maxLimit = 100

// parseFilter builds a store filter from query parameters. The "since"
// parameter accepts either an RFC3339 timestamp or a relative duration such
// as "24h".
func parseFilter(r *http.Request) (store.Filter, error) {
	f := store.Filter{
		Repo:   r.URL.Query().Get("repo"),
		Branch: r.URL.Query().Get("branch"),
	}

	raw := r.URL.Query().Get("since")
	if raw == "" {
		return f, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		if d < 0 {
			return f, fmt.Errorf("since must not be negative")
		}
		f.Since = time.Now().Add(-d)
		return f, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return f, fmt.Errorf("since must be RFC3339 or a duration: %q", raw)
	}
	f.Since = t
	return f, nil
}

// parseLimit reads the limit query parameter. Absent means zero (the service
// applies its default); values above the cap are clamped; non-numeric or
// negative values are rejected.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer: %q", raw)
	}
	if limit < 0 {
		return 0, fmt.Errorf("limit must not be negative")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}
