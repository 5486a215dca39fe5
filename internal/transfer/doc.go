// Package transfer implements the HTTP transfer adapter used by the scheduler.
// Files are streamed into temporary .part files, hashed with SHA-256 on the way and
// moved into place only after the whole body arrived.
package transfer
