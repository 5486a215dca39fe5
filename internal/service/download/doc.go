// Package download is the download orchestration service.
//
// It turns catalog items into multi-file scheduler jobs, skips items that already have active work,
// commits finished downloads into the offline library and keeps a persisted history of every item's
// latest job. The history outlives the process, so a download that was running when the process died
// is reported as interrupted instead of being silently resumed.
package download
