// Package api provides the local REST and WebSocket surface of the FieldSync
// daemon. The client UI talks to this surface; the daemon talks to the remote
// CRM through the dispatch table.
package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/kimhsiao/fieldsync/internal/errors"
	"github.com/kimhsiao/fieldsync/internal/logging"
	"github.com/kimhsiao/fieldsync/internal/metrics"
	"github.com/kimhsiao/fieldsync/internal/queue"
	"github.com/kimhsiao/fieldsync/internal/scheduler"
)

// SyncHandler handles mutation enqueueing and sync control operations.
type SyncHandler struct {
	queue     *queue.Queue
	scheduler *scheduler.Scheduler
	collector *metrics.Collector // may be nil
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(q *queue.Queue, s *scheduler.Scheduler, collector *metrics.Collector) *SyncHandler {
	return &SyncHandler{
		queue:     q,
		scheduler: s,
		collector: collector,
	}
}

// EnqueueMutation handles POST /api/mutations
// Appends a mutation to the durable queue and returns its id. The mutation
// is delivered to the remote CRM on the next drain pass.
func (h *SyncHandler) EnqueueMutation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request struct {
		Action  string          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.queue.Enqueue(request.Action, request.Payload)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if h.collector != nil {
		h.collector.RecordEnqueue()
		if depth, derr := h.queue.Depth(); derr == nil {
			h.collector.SetQueueDepth(depth)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     id,
		"action": request.Action,
		"queued": true,
	})
}

// GetSyncStatus handles GET /api/sync/status
// Returns scheduler state, connectivity, and current queue depth.
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := h.scheduler.GetStatus()
	depth, err := h.queue.Depth()
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"running":     status.Running,
		"online":      status.Online,
		"queue_depth": depth,
		"last_drain":  status.LastDrain,
		"last_report": status.LastReport,
	})
}

// TriggerSync handles POST /api/sync/now
// Runs one synchronous drain pass and returns its report. Responds 409 when
// a background pass is already running.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.scheduler.TriggerDrain(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// GetQueue handles GET /api/sync/queue
// Returns the queued operations in enqueue order. Corrupt records are
// included with a corrupt flag so they can be resolved manually.
func (h *SyncHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.queue.Snapshot()
	if err != nil {
		writeAppError(w, err)
		return
	}

	type entry struct {
		Seq        int64           `json:"seq"`
		ID         string          `json:"id"`
		ActionName string          `json:"action_name"`
		Payload    json.RawMessage `json:"payload,omitempty"`
		Attempts   int             `json:"attempts"`
		LastError  string          `json:"last_error,omitempty"`
		EnqueuedAt int64           `json:"enqueued_at"`
		Corrupt    bool            `json:"corrupt,omitempty"`
	}

	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		e := entry{
			Seq:        rec.Op.Seq,
			ID:         string(rec.Op.ID),
			ActionName: rec.Op.ActionName,
			Attempts:   rec.Op.Attempts,
			LastError:  rec.Op.LastError,
			EnqueuedAt: rec.Op.EnqueuedAt,
		}
		if rec.Corrupt() {
			e.Corrupt = true
		} else {
			e.Payload = rec.Op.Payload
		}
		entries = append(entries, e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":      len(entries),
		"operations": entries,
	})
}

// Health handles GET /api/health
func (h *SyncHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "fieldsync",
	})
}

// writeAppError maps an application error to an HTTP status and writes a
// JSON error body.
func writeAppError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrValidation, apperrors.ErrInvalid:
		status = http.StatusBadRequest
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrDrainInProgress:
		status = http.StatusConflict
	case apperrors.ErrStoreUnavailable:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logging.Component("api").WithError(err).Error("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}
