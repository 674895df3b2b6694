// Package testsupport provides shared helpers for package tests: per-test
// configuration with isolated temp directories, job store setup, and stubbed
// reconstruction tool binaries on PATH.
package testsupport
