package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kimhsiao/fieldsync/internal/staleness"
)

// PipelineHandler classifies pipeline records by staleness. The classifier
// is pure; the handler only parses timestamps and applies the configured or
// requested preset.
type PipelineHandler struct {
	defaultPolicy staleness.Policy
	now           func() time.Time
}

// NewPipelineHandler creates a new PipelineHandler using the given default
// policy for requests that do not name a preset.
func NewPipelineHandler(defaultPolicy staleness.Policy) *PipelineHandler {
	return &PipelineHandler{
		defaultPolicy: defaultPolicy,
		now:           time.Now,
	}
}

// ClassifyStaleness handles POST /api/pipeline/staleness
// Classifies a batch of records against a staleness preset. Items with an
// unparseable timestamp are reported individually without failing the batch.
func (h *PipelineHandler) ClassifyStaleness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Preset string `json:"preset"` // optional, overrides the configured default
		Items  []struct {
			ID             string `json:"id"`
			LastActivityAt string `json:"last_activity_at"` // RFC 3339
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(request.Items) == 0 {
		http.Error(w, "items is required", http.StatusBadRequest)
		return
	}

	policy := h.defaultPolicy
	if request.Preset != "" {
		p, ok := staleness.ByName(request.Preset)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown preset: %s", request.Preset), http.StatusBadRequest)
			return
		}
		policy = p
	}

	type item struct {
		ID     string            `json:"id"`
		Result *staleness.Result `json:"result,omitempty"`
		Error  string            `json:"error,omitempty"`
	}

	now := h.now()
	results := make([]item, 0, len(request.Items))
	for _, in := range request.Items {
		parsed, err := time.Parse(time.RFC3339, in.LastActivityAt)
		if err != nil {
			results = append(results, item{
				ID:    in.ID,
				Error: fmt.Sprintf("invalid last_activity_at: %v", err),
			})
			continue
		}
		res := policy.Classify(parsed, now)
		results = append(results, item{ID: in.ID, Result: &res})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"preset": policy.Name,
		"items":  results,
	})
}
