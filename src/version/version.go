// Package version holds the tool version, overridable at build time via
// -ldflags "-X volume-reconcile/src/version.Version=...".
package version

// Version is the current release of volume-reconcile.
var Version = "0.1.0"
