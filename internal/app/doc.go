// Package app wires the offline library together and implements the CLI commands.
// It builds the database, the history store, the transfer adapter, the job scheduler
// and the download service from the configuration, runs one command and shuts everything down.
package app
