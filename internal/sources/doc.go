// Package sources implements the per-species status lookups that fan out after
// name resolution.
//
// Each Fetcher answers one column of the result table for one registry ID:
// legal listings (national and regional catalogues, EU directives,
// international conventions), conservation categories (national and global
// red lists, the IUCN Red List API), and descriptive data (taxonomic group,
// Spanish common name). Fetchers never return errors; failures become
// species.SourceRecord values with OutcomeError so one broken endpoint only
// blanks its own column.
//
// A Registry holds the fetchers by name. The CLI builds one from config with
// NewFromConfig and the batch orchestrator consumes the selected subset.
package sources
