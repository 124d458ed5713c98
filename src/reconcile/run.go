package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"volume-reconcile/src/associate"
	"volume-reconcile/src/inventory"
	"volume-reconcile/src/snapshots"
	"volume-reconcile/src/tasks"
)

// Runner sequences a full reconciliation run: inventory fetch, association
// resolution, the strictly sequential per-candidate loop, and the batched
// datastore reconciliation. Processing order is provider enumeration
// order, so the audit trail is deterministic for a given inventory.
type Runner struct {
	Client   inventory.Client
	Analyzer snapshots.Analyzer
	Poller   *tasks.Poller
	Reporter Reporter
	Log      *slog.Logger

	// Objects, when non-nil, replaces the live object listing (the scan
	// artifact flow). Disk references are always fetched live.
	Objects []inventory.StorageObject

	DeleteCeiling    time.Duration
	ReconcileCeiling time.Duration
}

// Summary aggregates everything a run produced.
type Summary struct {
	Outcomes   []Outcome
	Datastores []DatastoreRecord
	Counts     map[Status]int
}

// Run executes the pipeline to completion. Exactly one outcome is reported
// per object, in enumeration order; candidates run to a terminal outcome
// one at a time. Only provider-connectivity failures (and reporter I/O
// errors) abort the run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	objects := r.Objects
	if objects == nil {
		var err error
		objects, err = r.Client.ListStorageObjects()
		if err != nil {
			return nil, err
		}
	}
	instances, err := r.Client.ListDiskRefs()
	if err != nil {
		return nil, err
	}

	part := associate.Resolve(objects, instances, log)
	owners := make(map[string]string, len(part.Assigned))
	for _, a := range part.Assigned {
		owners[a.Object.ID] = a.InstanceID
	}
	log.Info("association resolved",
		slog.Int("objects", len(objects)),
		slog.Int("assigned", len(part.Assigned)),
		slog.Int("orphans", len(part.Orphans)))

	coord := &Coordinator{
		Client:        r.Client,
		Analyzer:      r.Analyzer,
		Poller:        r.Poller,
		DeleteCeiling: r.DeleteCeiling,
		Log:           log,
	}

	summary := &Summary{Counts: map[Status]int{}}
	var touchedOrder []string
	touchedSet := map[string]bool{}

	for _, obj := range objects {
		var outcome Outcome
		if owner, ok := owners[obj.ID]; ok {
			outcome = Outcome{
				ObjectID: obj.ID,
				Status:   StatusAssigned,
				Detail:   fmt.Sprintf("assigned to instance %s", owner),
			}
		} else {
			var touched bool
			outcome, touched, err = coord.Process(ctx, obj)
			if err != nil {
				return summary, err
			}
			if touched {
				ref := DatastoreRef(obj.ID, obj.Datastore)
				if !touchedSet[ref] {
					touchedSet[ref] = true
					touchedOrder = append(touchedOrder, ref)
				}
			}
		}
		if err := r.record(summary, outcome); err != nil {
			return summary, err
		}
	}

	reconciler := &DatastoreReconciler{
		Client:  r.Client,
		Poller:  r.Poller,
		Ceiling: r.ReconcileCeiling,
		Log:     log,
	}
	summary.Datastores, err = reconciler.ReconcileAll(ctx, touchedOrder)
	if err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) record(s *Summary, o Outcome) error {
	s.Outcomes = append(s.Outcomes, o)
	s.Counts[o.Status]++
	if r.Reporter == nil {
		return nil
	}
	if err := r.Reporter.Report(o); err != nil {
		return fmt.Errorf("recording outcome for %s: %w", o.ObjectID, err)
	}
	return nil
}
