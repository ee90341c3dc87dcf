// Package queue implements the durable offline mutation queue.
//
// Mutations requested while the remote CRM is unreachable are appended to
// the sqlite-backed store and replayed in strict enqueue order once
// connectivity returns. A record is removed only after its handler reports
// success, never speculatively, so a crash mid-drain leaves the record
// queued for the next pass. Handlers therefore see at-least-once delivery
// and should tolerate duplicate application of the same logical record.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"encoding/json"

	apperrors "github.com/kimhsiao/fieldsync/internal/errors"
	"github.com/kimhsiao/fieldsync/internal/logging"
	"github.com/kimhsiao/fieldsync/internal/models"
	"github.com/kimhsiao/fieldsync/internal/store"
)

// Handler executes a single queued operation against the remote system.
type Handler func(ctx context.Context, payload json.RawMessage) error

// DispatchTable resolves action names to handlers at drain time. It is
// supplied by the caller, not held by the queue, so tests can drain the
// same queue against fake handlers.
type DispatchTable map[string]Handler

// DrainPolicy controls how a drain pass reacts to a failed record.
type DrainPolicy string

const (
	// PolicyFailFast stops the pass at the first failed record, preserving
	// the FIFO causal-ordering guarantee for everything behind it.
	PolicyFailFast DrainPolicy = "fail-fast"
	// PolicyBestEffort skips a failed record and keeps draining; the failed
	// record stays queued for the next pass.
	PolicyBestEffort DrainPolicy = "best-effort"
)

// FailureKind classifies why a record could not be delivered.
type FailureKind string

const (
	// FailureDelivery is a transient handler failure; the record is retried
	// on the next drain.
	FailureDelivery FailureKind = "delivery"
	// FailureUnknownAction means no handler was registered for the record's
	// action name. The record is retained for manual resolution or a later
	// redeploy rather than discarded.
	FailureUnknownAction FailureKind = "unknown_action"
	// FailureCorruptRecord means the stored record no longer decodes. It is
	// isolated per record and never blocks valid records.
	FailureCorruptRecord FailureKind = "corrupt_record"
)

// Failure describes one record that could not be delivered during a pass.
type Failure struct {
	ID         models.UUID `json:"id"`
	ActionName string      `json:"action_name,omitempty"`
	Kind       FailureKind `json:"kind"`
	Error      string      `json:"error"`
}

// DrainReport summarizes a single drain pass.
type DrainReport struct {
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Remaining int           `json:"remaining"`
	Failures  []Failure     `json:"failures,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// ErrDrainInProgress is returned when a drain is requested while another
// pass over the same store is still running.
var ErrDrainInProgress = apperrors.New(apperrors.ErrDrainInProgress, "drain already in progress")

// Queue owns its durable store handle and the single in-flight drain guard.
// No ambient global state: construct one Queue per store.
type Queue struct {
	store  *store.Store
	policy DrainPolicy

	mu       sync.Mutex // guards draining
	draining bool
}

// New creates a Queue over an opened store. An empty policy defaults to
// fail-fast.
func New(st *store.Store, policy DrainPolicy) *Queue {
	if policy == "" {
		policy = PolicyFailFast
	}
	return &Queue{store: st, policy: policy}
}

// Policy returns the configured drain policy.
func (q *Queue) Policy() DrainPolicy {
	return q.policy
}

// Enqueue appends a mutation to the durable queue and returns its id.
// This is the offline path: it never depends on network state. It fails
// only when the local store cannot guarantee durability, and that failure
// is surfaced to the caller rather than swallowed.
func (q *Queue) Enqueue(actionName string, payload json.RawMessage) (models.UUID, error) {
	id, err := q.store.Append(actionName, payload)
	if err != nil {
		return "", err
	}
	logging.Component("queue").WithFields(map[string]interface{}{
		"id":     id,
		"action": actionName,
	}).Debug("operation enqueued")
	return id, nil
}

// Drain replays queued operations in strict FIFO order against the supplied
// dispatch table. Each record is removed only after its handler returns
// success. Handler failures are captured into the report; Drain itself
// returns an error only when the store is unavailable or another drain is
// already running.
func (q *Queue) Drain(ctx context.Context, table DispatchTable) (*DrainReport, error) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return nil, ErrDrainInProgress
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	records, err := q.store.List()
	if err != nil {
		return nil, err
	}

	log := logging.Component("queue")
	report := &DrainReport{StartedAt: time.Now()}
	stopped := false

	for _, rec := range records {
		if stopped {
			break
		}
		select {
		case <-ctx.Done():
			stopped = true
			continue
		default:
		}

		// Corrupt records are isolated per record and never block the
		// valid records behind them, regardless of policy.
		if rec.Corrupt() {
			report.Processed++
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				ID:         rec.Op.ID,
				ActionName: rec.Op.ActionName,
				Kind:       FailureCorruptRecord,
				Error:      rec.Err.Error(),
			})
			log.WithField("id", rec.Op.ID).Warn("skipping corrupt record")
			continue
		}

		op := rec.Op
		handler, ok := table[op.ActionName]
		if !ok {
			report.Processed++
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				ID:         op.ID,
				ActionName: op.ActionName,
				Kind:       FailureUnknownAction,
				Error:      fmt.Sprintf("no handler registered for action %q", op.ActionName),
			})
			_ = q.store.MarkAttempt(op.ID, "no handler registered")
			log.WithFields(map[string]interface{}{
				"id":     op.ID,
				"action": op.ActionName,
			}).Warn("unknown action, record retained")
			if q.policy == PolicyFailFast {
				stopped = true
			}
			continue
		}

		report.Processed++
		if err := invoke(ctx, handler, op.Payload); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				ID:         op.ID,
				ActionName: op.ActionName,
				Kind:       FailureDelivery,
				Error:      err.Error(),
			})
			_ = q.store.MarkAttempt(op.ID, err.Error())
			log.WithFields(map[string]interface{}{
				"id":     op.ID,
				"action": op.ActionName,
			}).WithError(err).Warn("delivery failed, record retained")
			if q.policy == PolicyFailFast {
				stopped = true
			}
			continue
		}

		// Removal strictly after handler success.
		if err := q.store.Remove(op.ID); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				ID:         op.ID,
				ActionName: op.ActionName,
				Kind:       FailureDelivery,
				Error:      fmt.Sprintf("delivered but not removed: %v", err),
			})
			log.WithField("id", op.ID).WithError(err).Error("failed to remove delivered record")
			// The store is misbehaving; continuing would risk duplicate
			// delivery of the records behind this one on the next pass.
			stopped = true
			continue
		}
		report.Succeeded++
	}

	remaining, err := q.store.Len()
	if err == nil {
		report.Remaining = remaining
	} else {
		report.Remaining = len(records) - report.Succeeded
	}
	report.Duration = time.Since(report.StartedAt)

	log.WithFields(map[string]interface{}{
		"processed": report.Processed,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"remaining": report.Remaining,
	}).Info("drain pass completed")

	return report, nil
}

// Snapshot returns the queued records in enqueue order for inspection.
func (q *Queue) Snapshot() ([]store.Record, error) {
	return q.store.List()
}

// Depth returns the number of queued operations.
func (q *Queue) Depth() (int, error) {
	return q.store.Len()
}

// invoke runs a handler with panic isolation: a panicking handler is
// reported as a delivery failure instead of escaping the drain loop.
func invoke(ctx context.Context, h Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, payload)
}
