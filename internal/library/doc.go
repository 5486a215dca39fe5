// Package library is the offline repository: a database index of items whose files were
// downloaded and verified, plus the filesystem primitives used to lay those files out.
package library
