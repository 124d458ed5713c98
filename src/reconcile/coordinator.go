package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"volume-reconcile/src/inventory"
	"volume-reconcile/src/snapshots"
	"volume-reconcile/src/tasks"
)

// maxDeleteAttempts bounds the per-object state machine: one initial
// attempt plus one retry, the retry allowed only after every detected
// snapshot dependency resolved successfully.
const maxDeleteAttempts = 2

// Coordinator runs one orphan candidate to a terminal outcome.
type Coordinator struct {
	Client        inventory.Client
	Analyzer      snapshots.Analyzer
	Poller        *tasks.Poller
	DeleteCeiling time.Duration
	Log           *slog.Logger
}

// Process drives the candidate state machine:
//
//	START -> ATTEMPT_DELETE
//	ATTEMPT_DELETE  --success--------------------> REMOVED
//	ATTEMPT_DELETE  --snapshot conflict----------> RESOLVE_SNAPSHOTS
//	RESOLVE_SNAPSHOTS --all resolved-------------> ATTEMPT_DELETE (final)
//	RESOLVE_SNAPSHOTS --any unresolved-----------> RESOLUTION_FAILED
//	ATTEMPT_DELETE (final) --success-------------> REMOVED_WITH_SNAPSHOT_CLEANUP
//	ATTEMPT_DELETE (final) --failure-------------> FAILED_ERROR
//	ATTEMPT_DELETE  --conflict without id--------> FAILED_MANUAL_REQUIRED
//	ATTEMPT_DELETE  --other failure or timeout---> FAILED_ERROR
//
// When the provider supports snapshot listing, dependencies found up front
// are resolved before the first delete, which then consumes the retry
// budget: that single attempt is final.
//
// touched reports whether any delete-type task was submitted for the
// object, which marks its datastore for the end-of-run inventory
// reconciliation. The returned error is non-nil only for run-fatal
// conditions (provider connectivity, context cancellation); every
// per-object failure is folded into the outcome.
func (c *Coordinator) Process(ctx context.Context, obj inventory.StorageObject) (outcome Outcome, touched bool, err error) {
	log := c.log().With(slog.String("object", obj.ID))

	attempts := 0
	cleanedUp := false

	// Proactive path: authoritative listing before any delete attempt.
	deps, err := c.Analyzer.BeforeDelete(obj)
	if err != nil {
		if inventory.IsConnectionError(err) {
			return Outcome{}, touched, err
		}
		log.Warn("proactive snapshot listing failed; relying on delete diagnostics", slog.Any("error", err))
		deps = nil
	}
	if len(deps) > 0 {
		log.Info("blocking snapshots found before delete", slog.Int("count", len(deps)))
		resolved, failDetail, rerr := c.resolveAll(ctx, obj, deps)
		touched = touched || resolved > 0 || failDetail != ""
		if rerr != nil {
			return Outcome{}, touched, rerr
		}
		if failDetail != "" {
			return c.terminal(log, obj, StatusResolutionFailed, fmt.Sprintf(
				"resolved %d of %d blocking snapshots; %s; remove the remaining snapshots manually, then rerun",
				resolved, len(deps), failDetail)), touched, nil
		}
		cleanedUp = true
		attempts = 1 // the post-resolution delete is the final attempt
	}

	for {
		res, rerr := c.attemptDelete(ctx, obj)
		touched = true
		attempts++
		if rerr != nil {
			return Outcome{}, touched, rerr
		}

		switch {
		case res.ok && cleanedUp:
			return c.terminal(log, obj, StatusRemovedWithCleanup, "deleted after removing blocking snapshots"), touched, nil
		case res.ok:
			return c.terminal(log, obj, StatusRemoved, "deleted on first attempt; no blocking snapshots"), touched, nil
		case res.timedOut:
			return c.terminal(log, obj, StatusFailed, res.diagnostic+
				"; verify remotely whether the object was removed before deleting it manually"), touched, nil
		}

		if attempts >= maxDeleteAttempts {
			detail := "delete failed: " + res.diagnostic
			if cleanedUp {
				detail = fmt.Sprintf(
					"blocking snapshots were removed but the object still could not be deleted: %s; partial progress committed, delete manually",
					res.diagnostic)
			}
			return c.terminal(log, obj, StatusFailed, detail), touched, nil
		}

		conflictDeps, aerr := c.Analyzer.FromDiagnostic(obj, res.diagnostic)
		if errors.Is(aerr, snapshots.ErrUnrecognizedConflict) {
			return c.terminal(log, obj, StatusManualRequired, fmt.Sprintf(
				"delete blocked by a snapshot the diagnostic does not identify (%s); list snapshots of %q on datastore %s, remove them, then delete the object manually",
				res.diagnostic, obj.Name, obj.Datastore)), touched, nil
		}
		if aerr != nil {
			return Outcome{}, touched, aerr
		}
		if len(conflictDeps) == 0 {
			return c.terminal(log, obj, StatusFailed, "delete failed: "+res.diagnostic), touched, nil
		}

		log.Info("delete blocked by snapshot dependency", slog.Int("count", len(conflictDeps)))
		resolved, failDetail, rerr := c.resolveAll(ctx, obj, conflictDeps)
		touched = touched || resolved > 0
		if rerr != nil {
			return Outcome{}, touched, rerr
		}
		if failDetail != "" {
			return c.terminal(log, obj, StatusResolutionFailed, fmt.Sprintf(
				"resolved %d of %d blocking snapshots; %s; remove the remaining snapshots manually, then rerun",
				resolved, len(conflictDeps), failDetail)), touched, nil
		}
		cleanedUp = true
		// Second and final delete attempt.
	}
}

type attemptResult struct {
	ok         bool
	timedOut   bool
	diagnostic string
}

// attemptDelete submits one object deletion and awaits it. A synchronous
// rejection from the provider carries the same diagnostics a failed task
// would, so both surface uniformly.
func (c *Coordinator) attemptDelete(ctx context.Context, obj inventory.StorageObject) (attemptResult, error) {
	handle, err := c.Client.DeleteObject(obj.ID)
	if err != nil {
		if inventory.IsConnectionError(err) {
			return attemptResult{}, err
		}
		return attemptResult{diagnostic: err.Error()}, nil
	}
	out, err := c.Poller.Await(ctx, handle, c.deleteCeiling())
	if err != nil {
		return attemptResult{}, err
	}
	switch out.Result {
	case tasks.Success:
		return attemptResult{ok: true}, nil
	case tasks.Timeout:
		return attemptResult{timedOut: true, diagnostic: "delete timed out: " + out.Detail}, nil
	default:
		return attemptResult{diagnostic: out.Detail}, nil
	}
}

// resolveAll deletes each blocking snapshot sequentially, awaiting every
// task. It stops at the first snapshot that cannot be removed and reports
// how far it got; failDetail is empty only when all dependencies resolved.
func (c *Coordinator) resolveAll(ctx context.Context, obj inventory.StorageObject, deps []inventory.Snapshot) (resolved int, failDetail string, err error) {
	for _, dep := range deps {
		handle, serr := c.Client.DeleteSnapshot(obj.ID, obj.Datastore, dep.ID)
		if serr != nil {
			if inventory.IsConnectionError(serr) {
				return resolved, "", serr
			}
			return resolved, fmt.Sprintf("snapshot %s could not be removed: %v", dep.ID, serr), nil
		}
		out, perr := c.Poller.Await(ctx, handle, c.deleteCeiling())
		if perr != nil {
			return resolved, "", perr
		}
		switch out.Result {
		case tasks.Success:
			resolved++
		case tasks.Timeout:
			return resolved, fmt.Sprintf("snapshot %s deletion timed out (%s)", dep.ID, out.Detail), nil
		default:
			return resolved, fmt.Sprintf("snapshot %s could not be removed: %s", dep.ID, out.Detail), nil
		}
	}
	return resolved, "", nil
}

func (c *Coordinator) terminal(log *slog.Logger, obj inventory.StorageObject, status Status, detail string) Outcome {
	log.Info("candidate reached terminal outcome", slog.String("status", string(status)))
	return Outcome{ObjectID: obj.ID, Status: status, Detail: detail}
}

func (c *Coordinator) deleteCeiling() time.Duration {
	if c.DeleteCeiling > 0 {
		return c.DeleteCeiling
	}
	return tasks.DefaultDeleteCeiling
}

func (c *Coordinator) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
