// Package storage owns the on-disk layout for job content: per-job upload
// directories, scratch space, and deterministic artifact paths.
package storage
