// Package dispatch builds the dispatch table that forwards queued CRM
// mutations to the remote API over HTTP.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/kimhsiao/fieldsync/internal/errors"
	"github.com/kimhsiao/fieldsync/internal/queue"
)

// Route describes the remote endpoint for one action name.
type Route struct {
	Method string
	Path   string
}

// DefaultRoutes covers the mutations field clients make while offline.
func DefaultRoutes() map[string]Route {
	return map[string]Route{
		"job.create":        {Method: http.MethodPost, Path: "/api/jobs"},
		"job.update_status": {Method: http.MethodPost, Path: "/api/jobs/status"},
		"deal.update_stage": {Method: http.MethodPost, Path: "/api/deals/stage"},
		"note.create":       {Method: http.MethodPost, Path: "/api/notes"},
		"contact.update":    {Method: http.MethodPut, Path: "/api/contacts"},
		"activity.log":      {Method: http.MethodPost, Path: "/api/activities"},
	}
}

// NewTable builds a dispatch table whose handlers send each payload to
// baseURL joined with the route path. A nil client gets a 30s-timeout
// default. A 409 Conflict response counts as success: the queue delivers
// at-least-once, so an already-applied mutation is not a failure.
func NewTable(baseURL string, routes map[string]Route, client *http.Client) queue.DispatchTable {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimRight(baseURL, "/")

	table := make(queue.DispatchTable, len(routes))
	for action, route := range routes {
		table[action] = newHandler(baseURL, route, client)
	}
	return table
}

func newHandler(baseURL string, route Route, client *http.Client) queue.Handler {
	url := baseURL + route.Path
	return func(ctx context.Context, payload json.RawMessage) error {
		req, err := http.NewRequestWithContext(ctx, route.Method, url, bytes.NewReader(payload))
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternal, "failed to build request", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrRemoteUnreachable, "remote request failed", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusConflict:
			// Already applied on a previous attempt.
			return nil
		default:
			return apperrors.New(apperrors.ErrRemoteRejected,
				fmt.Sprintf("%s %s returned %d", route.Method, url, resp.StatusCode))
		}
	}
}
