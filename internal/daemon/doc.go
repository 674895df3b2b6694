// Package daemon wires the job store, workflow manager, and HTTP API into a
// single-instance background process guarded by a lock file.
package daemon
