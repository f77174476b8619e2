// Package services defines shared utilities consumed by the batch engine and
// its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, input positions, and source names
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (not found vs timeout vs transient) with errors.Is.
//
// Use these helpers when wiring new sources or clients so failure handling and
// observability stay uniform across the engine.
package services
