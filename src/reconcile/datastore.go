package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"volume-reconcile/src/inventory"
	"volume-reconcile/src/tasks"
)

// DatastoreRecord is the independently recorded result of one datastore
// inventory reconciliation. It never rewrites object outcomes; deletions
// are already committed by the time reconciliation runs.
type DatastoreRecord struct {
	Datastore string
	Handle    inventory.TaskHandle
	Result    tasks.Result
	Detail    string
}

// DatastoreRef extracts the datastore reference from a compound object id:
// the prefix before the first ':'. Ids without a separator fall back to
// the object's datastore field.
func DatastoreRef(objectID, fallback string) string {
	if ref, _, ok := strings.Cut(objectID, ":"); ok && ref != "" {
		return ref
	}
	return fallback
}

// DatastoreReconciler issues one inventory-reconciliation task per touched
// datastore after the full candidate loop completes. Reconciliation is
// idempotent on the platform side, so batching per datastore avoids
// redundant per-object calls.
type DatastoreReconciler struct {
	Client  inventory.Client
	Poller  *tasks.Poller
	Ceiling time.Duration
	Log     *slog.Logger
}

// ReconcileAll submits and awaits one task per datastore, in first-touched
// order, recording each result independently. Per-datastore failures are
// logged and recorded but never propagate; only connectivity failures
// abort, and even then the records gathered so far are returned.
func (r *DatastoreReconciler) ReconcileAll(ctx context.Context, datastores []string) ([]DatastoreRecord, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	ceiling := r.Ceiling
	if ceiling <= 0 {
		ceiling = tasks.DefaultReconcileCeiling
	}

	records := make([]DatastoreRecord, 0, len(datastores))
	for _, ds := range datastores {
		handle, err := r.Client.ReconcileDatastore(ds)
		if err != nil {
			if inventory.IsConnectionError(err) {
				return records, err
			}
			log.Error("datastore reconciliation rejected", slog.String("datastore", ds), slog.Any("error", err))
			records = append(records, DatastoreRecord{Datastore: ds, Result: tasks.Failed, Detail: err.Error()})
			continue
		}
		out, err := r.Poller.Await(ctx, handle, ceiling)
		if err != nil {
			return records, err
		}
		if out.Result != tasks.Success {
			log.Error("datastore reconciliation did not succeed",
				slog.String("datastore", ds),
				slog.String("result", out.Result.String()),
				slog.String("detail", out.Detail))
		}
		records = append(records, DatastoreRecord{Datastore: ds, Handle: handle, Result: out.Result, Detail: out.Detail})
	}
	return records, nil
}
