package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	incuscli "github.com/lxc/incus/client"
	"github.com/lxc/incus/shared/api"
)

// IncusClient maps the Incus API onto the provider contract: custom storage
// volumes are storage objects, storage pools are datastores, instance disk
// devices are disk references, and volume snapshots are snapshot
// dependencies.
type IncusClient struct {
	c incuscli.InstanceServer

	// Incus performs volume deletion and pool rescans synchronously, so
	// those calls are surfaced as already-terminal synthetic tasks.
	mu        sync.Mutex
	synthetic map[TaskHandle]TaskStatus
}

// ConnectUnix connects to Incus over the local UNIX socket. An empty path
// uses the platform default.
func ConnectUnix(socketPath string) (*IncusClient, error) {
	c, err := incuscli.ConnectIncusUnix(socketPath, nil)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}
	return &IncusClient{c: c, synthetic: map[TaskHandle]TaskStatus{}}, nil
}

func (r *IncusClient) ListStorageObjects() ([]StorageObject, error) {
	pools, err := r.c.GetStoragePoolNames()
	if err != nil {
		return nil, &ConnectionError{Op: "list storage pools", Err: err}
	}
	var out []StorageObject
	for _, pool := range pools {
		vols, err := r.c.GetStoragePoolVolumes(pool)
		if err != nil {
			return nil, &ConnectionError{Op: "list volumes in pool " + pool, Err: err}
		}
		for _, v := range vols {
			if v.Type != "custom" {
				continue
			}
			out = append(out, StorageObject{
				ID:          pool + ":" + v.Name,
				UID:         v.Config["volatile.uuid"],
				Name:        v.Name,
				Datastore:   pool,
				CapacityGB:  capacityGB(v.Config["size"]),
				BackingPath: pool + "/" + v.Name,
			})
		}
	}
	return out, nil
}

func (r *IncusClient) ListDiskRefs() ([]InstanceDisks, error) {
	insts, err := r.c.GetInstancesFull(api.InstanceTypeAny)
	if err != nil {
		return nil, &ConnectionError{Op: "list instances", Err: err}
	}
	out := make([]InstanceDisks, 0, len(insts))
	for _, inst := range insts {
		var disks []DiskRef
		for _, dev := range inst.ExpandedDevices {
			if dev["type"] != "disk" || dev["pool"] == "" || dev["source"] == "" {
				continue
			}
			disks = append(disks, DiskRef{
				InstanceID:  inst.Name,
				BackingPath: dev["pool"] + "/" + dev["source"],
			})
		}
		out = append(out, InstanceDisks{InstanceID: inst.Name, Disks: disks})
	}
	return out, nil
}

func (r *IncusClient) ListSnapshots(objectID, datastore string) ([]Snapshot, error) {
	name := volumeName(objectID)
	snaps, err := r.c.GetStoragePoolVolumeSnapshots(datastore, "custom", name)
	if err != nil {
		return nil, fmt.Errorf("list snapshots of %s: %w", objectID, err)
	}
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, Snapshot{
			ID:          s.Name,
			Description: s.Description,
			CreatedAt:   s.CreatedAt,
			ObjectID:    objectID,
		})
	}
	return out, nil
}

func (r *IncusClient) DeleteSnapshot(objectID, datastore, snapshotID string) (TaskHandle, error) {
	name := volumeName(objectID)
	op, err := r.c.DeleteStoragePoolVolumeSnapshot(datastore, "custom", name, snapshotID)
	if err != nil {
		return "", err
	}
	return TaskHandle(op.Get().ID), nil
}

func (r *IncusClient) DeleteObject(objectID string) (TaskHandle, error) {
	datastore, _, ok := strings.Cut(objectID, ":")
	if !ok {
		return "", fmt.Errorf("malformed storage object id %q", objectID)
	}
	if err := r.c.DeleteStoragePoolVolume(datastore, "custom", volumeName(objectID)); err != nil {
		// Incus rejects synchronously; the rejection text carries the
		// same diagnostics a failed task would.
		return "", err
	}
	return r.mintSynthetic(TaskStatus{State: TaskSuccess}), nil
}

func (r *IncusClient) ReconcileDatastore(datastore string) (TaskHandle, error) {
	// The closest Incus equivalent of an inventory resync is a pool
	// resource rescan; it runs synchronously.
	if _, err := r.c.GetStoragePoolResources(datastore); err != nil {
		return r.mintSynthetic(TaskStatus{State: TaskFailed, Err: err.Error()}), nil
	}
	return r.mintSynthetic(TaskStatus{State: TaskSuccess}), nil
}

func (r *IncusClient) TaskStatus(handle TaskHandle) (TaskStatus, error) {
	r.mu.Lock()
	st, ok := r.synthetic[handle]
	r.mu.Unlock()
	if ok {
		return st, nil
	}

	op, _, err := r.c.GetOperation(string(handle))
	if err != nil {
		if api.StatusErrorCheck(err, 404) {
			// Completed operations are garbage-collected by the server;
			// once gone, the result can no longer be read.
			return TaskStatus{State: TaskFailed, Err: "operation record no longer exists"}, nil
		}
		return TaskStatus{}, &ConnectionError{Op: "poll task " + string(handle), Err: err}
	}

	switch {
	case op.StatusCode == api.Success:
		return TaskStatus{State: TaskSuccess}, nil
	case op.StatusCode.IsFinal():
		return TaskStatus{State: TaskFailed, Err: op.Err}, nil
	case op.StatusCode == api.Pending || op.StatusCode == api.OperationCreated:
		return TaskStatus{State: TaskPending}, nil
	default:
		return TaskStatus{State: TaskRunning}, nil
	}
}

func (r *IncusClient) mintSynthetic(st TaskStatus) TaskHandle {
	h := TaskHandle(uuid.NewString())
	r.mu.Lock()
	r.synthetic[h] = st
	r.mu.Unlock()
	return h
}

// volumeName recovers the pool-local volume name from a compound
// "<pool>:<name>" id.
func volumeName(objectID string) string {
	_, rest, ok := strings.Cut(objectID, ":")
	if !ok {
		return objectID
	}
	return rest
}

func capacityGB(size string) int64 {
	if size == "" {
		return 0
	}
	n, err := strconv.ParseInt(size, 10, 64)
	if err != nil {
		return 0
	}
	return n / (1024 * 1024 * 1024)
}
