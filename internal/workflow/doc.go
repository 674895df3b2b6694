// Package workflow runs execution workers: one tracked goroutine per
// submitted job, driving the job state machine from pending to a terminal
// state while the external reconstruction tool does the actual work.
package workflow
