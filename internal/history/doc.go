// Package history persists the last known download status of every item.
// The blob survives restarts and lets the download service detect downloads
// that were still in flight when the process exited.
package history
