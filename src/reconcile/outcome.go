// Package reconcile sequences orphaned storage objects through deletion,
// snapshot-dependency resolution and a bounded retry, then repairs
// datastore inventory for everything it touched.
package reconcile

// Status classifies the terminal outcome of one processed storage object.
type Status string

const (
	StatusAssigned           Status = "ASSIGNED"
	StatusRemoved            Status = "REMOVED"
	StatusRemovedWithCleanup Status = "REMOVED_WITH_SNAPSHOT_CLEANUP"
	StatusManualRequired     Status = "FAILED_MANUAL_REQUIRED"
	StatusFailed             Status = "FAILED_ERROR"
	StatusResolutionFailed   Status = "RESOLUTION_FAILED"
)

// Outcome is the single record emitted for each processed object. Detail
// is human-readable and, when automation could not finish, contains
// concrete manual-remediation steps.
type Outcome struct {
	ObjectID string
	Status   Status
	Detail   string
}

// Reporter persists outcome records. Implementations append one record per
// object, in processing order.
type Reporter interface {
	Report(Outcome) error
}
