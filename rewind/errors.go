package rewind

import "errors"

// ErrNoWaypoints is returned when a selection resolves to an empty
// waypoint list (nothing recorded yet, or an index past the start of
// history).
var ErrNoWaypoints = errors.New("rewind: no waypoints to replay")

// ErrInvalidSelection is returned when a Selection names no resolvable
// target.
var ErrInvalidSelection = errors.New("rewind: selection resolves to no target")

// Busy uses the shared types.ErrBusy sentinel (see lease's reuse of
// types.ErrNotHolder) rather than a package-local duplicate, since
// spec.md's exclusivity rule applies uniformly across components.
