// Package timeouts defines the I/O timeouts used by the job's collaborators.
// Keeping them together makes the per-run budget easy to reason about.
package timeouts

import "time"

// HostingRequest caps a single hosted API request (repository metadata,
// issue listing, issue update).
const HostingRequest = 15 * time.Second

// Clone caps cloning the working copy.
const Clone = 2 * time.Minute

// Push caps the force-push of a rebuilt history.
const Push = 2 * time.Minute

// Ledger caps a single run-ledger query.
const Ledger = 5 * time.Second

// TelemetryShutdown caps flushing spans when the job exits.
const TelemetryShutdown = 5 * time.Second
