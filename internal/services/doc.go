// Package services holds the shared error taxonomy for submission and
// execution failures, plus clients for external tools in subpackages.
package services
