// Package api implements the job operations exposed over HTTP: batch
// submission, status polling, artifact retrieval, and listing.
package api
