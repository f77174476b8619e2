// Package eidos talks to the IEPNB EIDOS species registry.
//
// The client wraps the registry's PostgREST endpoints: taxon search by name,
// taxon lookup by ID, legal and conservation statuses, the taxonomy and
// vernacular name views, and the reference checklist ("lista patrón").
// Requests are throttled and retried through internal/apiclient. Client also
// satisfies the registry interface consumed by the batch orchestrator.
package eidos
