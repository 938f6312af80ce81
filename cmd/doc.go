// Package cmd implements the command-line interface for the crmvault
// storage orchestration engine. It provides a hierarchical command
// structure with operations for running the server and interacting with
// it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for raw document store operations (get, set, delete, has)
//   - records: Commands for vault operations (insert, remove, clear, document, status)
//   - harvest: Commands for ingesting harvested record exports
//   - serve: Commands for starting and configuring the crmvault server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See crmvault -help for a list of all commands.
package cmd
