package taskrun

import (
	"log/slog"

	"github.com/corehost/taskrun/internal/core"
)

// SetLogger replaces the package-level logger used by taskrun.
// This allows applications to integrate taskrun logging with their own
// logging infrastructure. The provided logger should already have any
// desired attributes; taskrun will not add additional attributes.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next use and then cached. Call
// SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with other taskrun operations.
//
// Example:
//
//	taskrun.SetLogger(myLogger.With("component", "taskrun"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
