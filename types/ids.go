// Package types holds the domain model shared across the gateway's
// subsystems: waypoints, leases, service records, backend status, and the
// tagged command payloads that cross the HTTP and RPC boundaries.
package types

// LeaseID is an unforgeable random token minted by the lease coordinator
// on grant. It must never appear in status output.
type LeaseID string

// TicketID identifies a queued lease acquisition, returned to the caller
// for cancellation.
type TicketID string

// HolderName is the caller-supplied identity presented when acquiring a
// lease. It is not authenticated; the lease token is the capability.
type HolderName string

// ServiceKey uniquely identifies a supervised backend process definition.
type ServiceKey string

// ExecutionID identifies one run of the code executor.
type ExecutionID string
