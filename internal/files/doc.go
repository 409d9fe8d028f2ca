// Package files provides file discovery for transaction tables.
//
// The pipeline accepts either a single workbook or CSV file, or a directory
// of exports. For a directory, Discovery picks the most recently modified
// transaction file, ignoring Excel lock files (~$name.xlsx) and hidden files.
//
// Example usage:
//
//	discovery := files.NewDiscovery("data")
//	latest, err := discovery.Latest("exports")
package files
