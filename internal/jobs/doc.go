// Package jobs defines the reconstruction job model and the SQLite-backed job
// registry. The registry is the single source of truth for status queries;
// each job is mutated only by its own execution worker while arbitrary readers
// poll concurrently.
package jobs
