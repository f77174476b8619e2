// Package preflight provides readiness checks for the registry endpoints and
// filesystem paths eidoscope depends on.
//
// The CLI "eidoscope doctor" command runs RunAll and prints each Result.
// Checks for optional features (checklist snapshot, IUCN token) are skipped
// when the feature is disabled.
package preflight
