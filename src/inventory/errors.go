package inventory

import "errors"

// ErrSnapshotListingUnsupported is returned by ListSnapshots when the
// provider cannot enumerate snapshots. Callers fall back to diagnostic
// extraction on failed deletes.
var ErrSnapshotListingUnsupported = errors.New("snapshot listing not supported by provider")

// ConnectionError marks a provider-connectivity failure. It is the only
// error class that aborts a whole reconciliation run; everything else is
// converted into a per-object outcome.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return "provider connection failed during " + e.Op + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
