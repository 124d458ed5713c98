package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volume-reconcile/src/inventory"
	"volume-reconcile/src/snapshots"
	"volume-reconcile/src/tasks"
)

type captureReporter struct {
	outcomes []Outcome
}

func (c *captureReporter) Report(o Outcome) error {
	c.outcomes = append(c.outcomes, o)
	return nil
}

func newRunner(fake *inventory.FakeClient, rep Reporter) *Runner {
	log := testLogger()
	poller := tasks.NewPoller(fake, log)
	poller.Interval = time.Millisecond
	return &Runner{
		Client:           fake,
		Analyzer:         snapshots.ForClient(fake),
		Poller:           poller,
		Reporter:         rep,
		Log:              log,
		DeleteCeiling:    50 * time.Millisecond,
		ReconcileCeiling: 50 * time.Millisecond,
	}
}

func attachedObject(id, path string) inventory.StorageObject {
	return inventory.StorageObject{ID: id, Name: id, Datastore: "ds1", BackingPath: path}
}

// Scenario B plus audit ordering: one outcome per object, in enumeration
// order, assigned objects interleaved and never deleted.
func TestRunEmitsOneOutcomePerObjectInOrder(t *testing.T) {
	fake := inventory.NewFake()
	fake.AddObject(attachedObject("ds1:a", "[ds1] a.vmdk"))
	fake.AddObject(attachedObject("ds1:y", "[ds1] y.vmdk"))
	fake.AddObject(attachedObject("ds1:b", "[ds1] b.vmdk"))
	fake.Instances = []inventory.InstanceDisks{
		{InstanceID: "web01", Disks: []inventory.DiskRef{
			{InstanceID: "web01", BackingPath: "[ds1] y.vmdk"},
		}},
	}
	rep := &captureReporter{}

	summary, err := newRunner(fake, rep).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.outcomes, 3)
	assert.Equal(t, "ds1:a", rep.outcomes[0].ObjectID)
	assert.Equal(t, StatusRemoved, rep.outcomes[0].Status)
	assert.Equal(t, "ds1:y", rep.outcomes[1].ObjectID)
	assert.Equal(t, StatusAssigned, rep.outcomes[1].Status)
	assert.Contains(t, rep.outcomes[1].Detail, "web01")
	assert.Equal(t, "ds1:b", rep.outcomes[2].ObjectID)
	assert.Equal(t, StatusRemoved, rep.outcomes[2].Status)

	assert.NotContains(t, fake.DeleteObjectCalls, "ds1:y", "assigned objects are never deleted")
	assert.Equal(t, 2, summary.Counts[StatusRemoved])
	assert.Equal(t, 1, summary.Counts[StatusAssigned])
}

func TestRunBatchesDatastoreReconciliation(t *testing.T) {
	fake := inventory.NewFake()
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1", BackingPath: "pa"})
	fake.AddObject(inventory.StorageObject{ID: "ds1:b", Datastore: "ds1", BackingPath: "pb"})
	fake.AddObject(inventory.StorageObject{ID: "ds2:c", Datastore: "ds2", BackingPath: "pc"})
	rep := &captureReporter{}

	summary, err := newRunner(fake, rep).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ds1", "ds2"}, fake.ReconcileCalls, "one task per unique touched datastore")
	require.Len(t, summary.Datastores, 2)
	assert.Equal(t, tasks.Success, summary.Datastores[0].Result)

	// Reconciliation runs only after every candidate is terminal: all
	// delete calls precede it in the fake's call records.
	assert.Len(t, fake.DeleteObjectCalls, 3)
}

func TestRunFailedDeleteStillTouchesDatastore(t *testing.T) {
	fake := inventory.NewFake()
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1", BackingPath: "pa"})
	fake.FailObjectDelete = map[string]string{"ds1:a": "permission denied"}
	rep := &captureReporter{}

	_, err := newRunner(fake, rep).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ds1"}, fake.ReconcileCalls,
		"reconciliation targets touched datastores, not just successful removals")
}

func TestRunReconciliationFailureDoesNotAlterOutcomes(t *testing.T) {
	fake := inventory.NewFake()
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1", BackingPath: "pa"})
	fake.FailReconcile = map[string]string{"ds1": "datastore busy"}
	rep := &captureReporter{}

	summary, err := newRunner(fake, rep).Run(context.Background())
	require.NoError(t, err, "reconciliation failures are recorded, not fatal")

	require.Len(t, rep.outcomes, 1)
	assert.Equal(t, StatusRemoved, rep.outcomes[0].Status)
	require.Len(t, summary.Datastores, 1)
	assert.Equal(t, tasks.Failed, summary.Datastores[0].Result)
	assert.Equal(t, "datastore busy", summary.Datastores[0].Detail)
}

func TestRunConnectionErrorAbortsRun(t *testing.T) {
	fake := inventory.NewFake()
	fake.ConnErr = assert.AnError
	rep := &captureReporter{}

	_, err := newRunner(fake, rep).Run(context.Background())
	require.Error(t, err)
	assert.True(t, inventory.IsConnectionError(err))
	assert.Empty(t, rep.outcomes)
}

// Running the pipeline twice with no external change is safe: objects
// removed by the first run no longer appear, so the second run finds no
// orphans among them.
func TestRunIsIdempotent(t *testing.T) {
	fake := inventory.NewFake()
	fake.AddObject(attachedObject("ds1:a", "[ds1] a.vmdk"), inventory.Snapshot{ID: "s1"})
	fake.AddObject(attachedObject("ds1:y", "[ds1] y.vmdk"))
	fake.Instances = []inventory.InstanceDisks{
		{InstanceID: "web01", Disks: []inventory.DiskRef{
			{InstanceID: "web01", BackingPath: "[ds1] y.vmdk"},
		}},
	}

	first, err := newRunner(fake, &captureReporter{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Counts[StatusRemovedWithCleanup])

	second, err := newRunner(fake, &captureReporter{}).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Counts[StatusRemoved])
	assert.Zero(t, second.Counts[StatusRemovedWithCleanup])
	assert.Equal(t, 1, second.Counts[StatusAssigned])
	assert.Empty(t, fake.ReconcileCalls[1:], "second run touches no datastore")
}

func TestRunUsesPreScannedObjects(t *testing.T) {
	fake := inventory.NewFake()
	fake.AddObject(inventory.StorageObject{ID: "ds1:a", Datastore: "ds1", BackingPath: "pa"})
	rep := &captureReporter{}

	r := newRunner(fake, rep)
	r.Objects = []inventory.StorageObject{
		{ID: "ds1:a", Name: "a", Datastore: "ds1", BackingPath: "pa"},
	}
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.outcomes, 1)
	assert.Equal(t, StatusRemoved, rep.outcomes[0].Status)
	assert.Equal(t, 1, summary.Counts[StatusRemoved])
}
