package lease

import "errors"

// ErrQueueFull indicates the wait queue has reached its configured
// capacity. ErrNotHolder (a rejected acquire/extend/release token) uses
// the shared types.ErrNotHolder sentinel instead, since it crosses the
// package boundary into the gateway's error-taxonomy mapping.
var ErrQueueFull = errors.New("lease: wait queue is full")
