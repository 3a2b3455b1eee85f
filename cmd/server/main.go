// Package main implements the entry point for the tasks API server, which
// serves create, read, update and delete operations over to-do tasks.
//
// Subcommands:
//
//	serve    run the HTTP server (default)
//	migrate  apply or inspect SQL schema migrations
//	seed     load tasks from a YAML or JSON file
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
