// Package main provides the widekv CLI for reading and writing wide-column
// entities in a widekv database.
//
// Usage:
//
//	widekv --db=<path> <command> [options]
//
// Commands:
//
//	put-entity <key> <name=value>...  Write an entity
//	get-entity <key>                  Print the columns of an entity
//	scan                              Print entities in key order
//	batch-put <file>                  Write entities from a YAML or JSON file
//	create-cf <name>                  Create a column family
//	list-cf                           List column families
//	stats                             Walk the database and print statistics
//	version                           Print version information
//
// Flags can also be set through WIDEKV_* environment variables or a YAML
// config file passed with --config.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
