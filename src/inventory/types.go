package inventory

import "time"

// StorageObject is a detachable volume managed independently of any compute
// instance. It is an immutable snapshot of remote state at scan time.
// ID is opaque to callers but structurally "<datastore-ref>:<local-id>";
// the prefix before the first ':' is the owning datastore.
type StorageObject struct {
	ID          string
	UID         string
	Name        string
	Datastore   string
	CapacityGB  int64
	BackingPath string
}

// DiskRef is one disk attached to a compute instance, identified by the
// backing path it references.
type DiskRef struct {
	InstanceID  string
	BackingPath string
}

// InstanceDisks groups the disk references of a single instance, in the
// order the provider enumerated them.
type InstanceDisks struct {
	InstanceID string
	Disks      []DiskRef
}

// Snapshot is a point-in-time child of a storage object. Its presence
// blocks deletion of the parent object.
type Snapshot struct {
	ID          string
	Description string
	CreatedAt   time.Time
	ObjectID    string
}

// TaskHandle identifies a long-running platform-side operation.
type TaskHandle string

// TaskState is the observed state of an async task. States are monotonic:
// pending -> running -> (success | failed).
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskRunning TaskState = "running"
	TaskSuccess TaskState = "success"
	TaskFailed  TaskState = "failed"
)

// Terminal reports whether s is a terminal task state.
func (s TaskState) Terminal() bool {
	return s == TaskSuccess || s == TaskFailed
}

// TaskStatus is one poll observation of a task.
type TaskStatus struct {
	State TaskState
	// Err carries the platform's error detail when State is TaskFailed.
	Err string
}

// Client is a narrow interface over the storage platform used by the
// reconciliation core. Keep it small and focused on what we actually need
// so it stays mockable.
type Client interface {
	// ListStorageObjects returns every detachable storage object known to
	// the platform.
	ListStorageObjects() ([]StorageObject, error)

	// ListDiskRefs returns, per compute instance, the backing paths its
	// disks reference. Instances whose disk enumeration is unavailable are
	// omitted rather than failing the call.
	ListDiskRefs() ([]InstanceDisks, error)

	// ListSnapshots returns the snapshots of one storage object. Providers
	// without snapshot enumeration return ErrSnapshotListingUnsupported.
	ListSnapshots(objectID, datastore string) ([]Snapshot, error)

	// DeleteSnapshot submits deletion of one snapshot and returns a handle
	// to poll.
	DeleteSnapshot(objectID, datastore, snapshotID string) (TaskHandle, error)

	// DeleteObject submits deletion of a storage object. Platforms that
	// reject the request synchronously return the rejection as an error;
	// its text carries the same diagnostics a failed task would.
	DeleteObject(objectID string) (TaskHandle, error)

	// ReconcileDatastore submits an inventory reconciliation of one
	// datastore and returns a handle to poll.
	ReconcileDatastore(datastore string) (TaskHandle, error)

	// TaskStatus reports the current state of a submitted task.
	TaskStatus(handle TaskHandle) (TaskStatus, error)
}
