// Package batch runs the species-status pipeline for one list of query items.
//
// An Orchestrator resolves every item to a registry identity (exact or fuzzy
// name match, or a direct ID lookup), fans the enabled sources out per
// resolved identity, and merges one row per item into a species.Table ordered
// by input position. Per-run state (lookup memo, concurrency semaphore,
// deadline, discovered candidate names) is created inside Run, so concurrent
// runs never share anything but the read-only checklist pool.
//
// Failures stay inside the table: unresolved names, missing listings, and
// broken sources are recorded per row and per source. Run only returns an
// error when the orchestrator itself is misconfigured.
package batch
