// Command eidoscope resolves lists of Spanish species names or EIDOS registry
// IDs and reports their legal protection and conservation status.
//
// Subcommands:
//
//	resolve     resolve names/IDs and print or export the status table
//	checklist   refresh or inspect the local reference checklist snapshot
//	sources     list the status sources and which are enabled
//	doctor      check directories, registry reachability, and the snapshot
//	config      create or validate the configuration file
package main
