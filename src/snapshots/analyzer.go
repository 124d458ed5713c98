// Package snapshots discovers the snapshot dependencies that block
// deletion of a storage object, either by asking the provider up front or
// by extracting them from the diagnostic text of a failed delete.
package snapshots

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"volume-reconcile/src/inventory"
)

// ErrUnrecognizedConflict is returned when a delete diagnostic clearly
// names a snapshot conflict but does not match the extraction grammar, so
// no dependency id can be recovered. The caller must hand the object to
// manual remediation instead of looping.
var ErrUnrecognizedConflict = errors.New("snapshot conflict diagnostic did not match extraction grammar")

// Analyzer discovers snapshots blocking an object's deletion. Both
// strategies sit behind this interface so platform-version differences do
// not alter the coordinator's state machine.
type Analyzer interface {
	// BeforeDelete returns the snapshots known to block obj ahead of any
	// delete attempt. Reactive-only analyzers return nothing here.
	BeforeDelete(obj inventory.StorageObject) ([]inventory.Snapshot, error)

	// FromDiagnostic recovers blocking snapshots from the error detail of
	// a failed delete attempt. A nil, nil return means the diagnostic does
	// not describe a snapshot conflict at all.
	FromDiagnostic(obj inventory.StorageObject, diagnostic string) ([]inventory.Snapshot, error)
}

// conflictPattern is the fixed grammar of the platform's snapshot-conflict
// diagnostic. Platform-version fragile; keep it in one place.
var conflictPattern = regexp.MustCompile(`Snapshot (\S+) relies on this object`)

// ListAnalyzer asks the provider for an authoritative snapshot list before
// any delete is attempted. Providers without snapshot enumeration degrade
// to the reactive path transparently.
type ListAnalyzer struct {
	Client inventory.Client
}

func (a *ListAnalyzer) BeforeDelete(obj inventory.StorageObject) ([]inventory.Snapshot, error) {
	snaps, err := a.Client.ListSnapshots(obj.ID, obj.Datastore)
	if errors.Is(err, inventory.ErrSnapshotListingUnsupported) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("proactive snapshot listing for %s: %w", obj.ID, err)
	}
	return snaps, nil
}

func (a *ListAnalyzer) FromDiagnostic(obj inventory.StorageObject, diagnostic string) ([]inventory.Snapshot, error) {
	return Extract(obj, diagnostic)
}

// DiagnosticAnalyzer never lists; it relies entirely on extraction from
// failed-delete diagnostics. Used when the platform is known to reject
// snapshot enumeration or the operator forces the reactive strategy.
type DiagnosticAnalyzer struct{}

func (DiagnosticAnalyzer) BeforeDelete(inventory.StorageObject) ([]inventory.Snapshot, error) {
	return nil, nil
}

func (DiagnosticAnalyzer) FromDiagnostic(obj inventory.StorageObject, diagnostic string) ([]inventory.Snapshot, error) {
	return Extract(obj, diagnostic)
}

// ForClient returns the analyzer for a provider. Listing degrades by
// itself when unsupported, so the list-first strategy is always safe.
func ForClient(c inventory.Client) Analyzer {
	return &ListAnalyzer{Client: c}
}

// Extract applies the conflict grammar to a failed-delete diagnostic.
// It returns the single recoverable dependency on a match, nil when the
// text is not a snapshot conflict, and ErrUnrecognizedConflict when the
// text names a snapshot without a recoverable id.
func Extract(obj inventory.StorageObject, diagnostic string) ([]inventory.Snapshot, error) {
	if m := conflictPattern.FindStringSubmatch(diagnostic); m != nil {
		return []inventory.Snapshot{{
			ID:          strings.Trim(m[1], `"'`),
			Description: "extracted from delete diagnostic",
			ObjectID:    obj.ID,
		}}, nil
	}
	if strings.Contains(strings.ToLower(diagnostic), "snapshot") {
		return nil, ErrUnrecognizedConflict
	}
	return nil, nil
}
