package supervisor

import "errors"

// ErrUnknownService indicates a service key with no matching
// definition. Dependency and busy failures use the shared
// types.ErrDependencyNotRunning and types.ErrBusy sentinels instead,
// since those cross the package boundary into the gateway's error
// taxonomy (spec.md §7).
var ErrUnknownService = errors.New("supervisor: unknown service")
