package inventory

import (
	"fmt"
	"strconv"
)

// FakeClient is an in-memory provider for unit tests. Deletion effects are
// applied at submit time (the remote side owns the work; polling only
// observes it), and every task walks pending -> running -> terminal across
// successive TaskStatus calls.
type FakeClient struct {
	Objects      []StorageObject
	Instances    []InstanceDisks
	SnapshotsMap map[string][]Snapshot

	// SupportsSnapshotListing selects the proactive analyzer path.
	SupportsSnapshotListing bool

	// PollsBeforeTerminal is how many non-terminal observations a task
	// yields before settling. Zero settles on the first poll.
	PollsBeforeTerminal int

	// Failure knobs, all keyed by the relevant id.
	DeleteObjectDiag   map[string]string // overrides the default conflict diagnostic
	FailObjectDelete   map[string]string // unconditional delete failure detail
	FailSnapshotDelete map[string]string // snapshot delete failure detail
	FailReconcile      map[string]string // datastore reconciliation failure detail
	HangObjectDelete   map[string]bool   // delete task never reaches a terminal state

	// ConnErr, when set, fails every call with a ConnectionError.
	ConnErr error

	// Call records for assertions.
	DeleteObjectCalls   []string
	DeleteSnapshotCalls []string
	ReconcileCalls      []string

	tasks map[TaskHandle]*fakeTask
	seq   int
}

type fakeTask struct {
	final TaskStatus
	hang  bool
	polls int
}

// NewFake returns an empty fake provider.
func NewFake() *FakeClient {
	return &FakeClient{
		SnapshotsMap: map[string][]Snapshot{},
		tasks:        map[TaskHandle]*fakeTask{},
	}
}

// AddObject registers a storage object, optionally with blocking snapshots.
func (f *FakeClient) AddObject(obj StorageObject, snaps ...Snapshot) {
	f.Objects = append(f.Objects, obj)
	for _, s := range snaps {
		s.ObjectID = obj.ID
		f.SnapshotsMap[obj.ID] = append(f.SnapshotsMap[obj.ID], s)
	}
}

func (f *FakeClient) ListStorageObjects() ([]StorageObject, error) {
	if f.ConnErr != nil {
		return nil, &ConnectionError{Op: "list storage objects", Err: f.ConnErr}
	}
	out := make([]StorageObject, len(f.Objects))
	copy(out, f.Objects)
	return out, nil
}

func (f *FakeClient) ListDiskRefs() ([]InstanceDisks, error) {
	if f.ConnErr != nil {
		return nil, &ConnectionError{Op: "list disk references", Err: f.ConnErr}
	}
	out := make([]InstanceDisks, len(f.Instances))
	copy(out, f.Instances)
	return out, nil
}

func (f *FakeClient) ListSnapshots(objectID, datastore string) ([]Snapshot, error) {
	if f.ConnErr != nil {
		return nil, &ConnectionError{Op: "list snapshots", Err: f.ConnErr}
	}
	if !f.SupportsSnapshotListing {
		return nil, ErrSnapshotListingUnsupported
	}
	snaps := f.SnapshotsMap[objectID]
	out := make([]Snapshot, len(snaps))
	copy(out, snaps)
	return out, nil
}

func (f *FakeClient) DeleteSnapshot(objectID, datastore, snapshotID string) (TaskHandle, error) {
	if f.ConnErr != nil {
		return "", &ConnectionError{Op: "delete snapshot", Err: f.ConnErr}
	}
	f.DeleteSnapshotCalls = append(f.DeleteSnapshotCalls, snapshotID)
	if detail, ok := f.FailSnapshotDelete[snapshotID]; ok {
		return f.submit(TaskStatus{State: TaskFailed, Err: detail}, false), nil
	}
	live := f.SnapshotsMap[objectID]
	kept := live[:0]
	for _, s := range live {
		if s.ID != snapshotID {
			kept = append(kept, s)
		}
	}
	f.SnapshotsMap[objectID] = kept
	return f.submit(TaskStatus{State: TaskSuccess}, false), nil
}

func (f *FakeClient) DeleteObject(objectID string) (TaskHandle, error) {
	if f.ConnErr != nil {
		return "", &ConnectionError{Op: "delete storage object", Err: f.ConnErr}
	}
	f.DeleteObjectCalls = append(f.DeleteObjectCalls, objectID)
	if f.HangObjectDelete[objectID] {
		return f.submit(TaskStatus{}, true), nil
	}
	// A live snapshot always blocks deletion, regardless of other knobs.
	if snaps := f.SnapshotsMap[objectID]; len(snaps) > 0 {
		diag, ok := f.DeleteObjectDiag[objectID]
		if !ok {
			diag = fmt.Sprintf("Snapshot %s relies on this object", snaps[0].ID)
		}
		return f.submit(TaskStatus{State: TaskFailed, Err: diag}, false), nil
	}
	if detail, ok := f.FailObjectDelete[objectID]; ok {
		return f.submit(TaskStatus{State: TaskFailed, Err: detail}, false), nil
	}
	kept := f.Objects[:0]
	for _, o := range f.Objects {
		if o.ID != objectID {
			kept = append(kept, o)
		}
	}
	f.Objects = kept
	delete(f.SnapshotsMap, objectID)
	return f.submit(TaskStatus{State: TaskSuccess}, false), nil
}

func (f *FakeClient) ReconcileDatastore(datastore string) (TaskHandle, error) {
	if f.ConnErr != nil {
		return "", &ConnectionError{Op: "reconcile datastore", Err: f.ConnErr}
	}
	f.ReconcileCalls = append(f.ReconcileCalls, datastore)
	if detail, ok := f.FailReconcile[datastore]; ok {
		return f.submit(TaskStatus{State: TaskFailed, Err: detail}, false), nil
	}
	return f.submit(TaskStatus{State: TaskSuccess}, false), nil
}

func (f *FakeClient) TaskStatus(handle TaskHandle) (TaskStatus, error) {
	if f.ConnErr != nil {
		return TaskStatus{}, &ConnectionError{Op: "poll task", Err: f.ConnErr}
	}
	t, ok := f.tasks[handle]
	if !ok {
		return TaskStatus{}, fmt.Errorf("unknown task handle %q", handle)
	}
	t.polls++
	if t.hang || t.polls <= f.PollsBeforeTerminal {
		if t.polls == 1 {
			return TaskStatus{State: TaskPending}, nil
		}
		return TaskStatus{State: TaskRunning}, nil
	}
	return t.final, nil
}

func (f *FakeClient) submit(final TaskStatus, hang bool) TaskHandle {
	f.seq++
	h := TaskHandle("task-" + strconv.Itoa(f.seq))
	f.tasks[h] = &fakeTask{final: final, hang: hang}
	return h
}
