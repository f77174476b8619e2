// Package matching maps normalized query names onto registry candidates.
//
// Resolver applies a two-tier acceptance policy on top of an edit-distance
// similarity score. A high score is accepted outright; a score between the low
// and high thresholds is accepted only when the genus matches exactly and the
// remaining epithets are within a small edit distance. When the query genus is
// itself a genus present in the pool, candidates from another genus are never
// auto-accepted. Near ties between distinct registry IDs are reported as
// ambiguous rather than broken arbitrarily.
//
// Pool holds the candidate names for a run: an immutable checklist index shared
// across runs plus a mutex-guarded set of names discovered through registry
// searches during the run.
package matching
