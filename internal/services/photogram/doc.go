// Package photogram wraps the external photogrammetry CLI tool: availability
// probing and subprocess execution with bounded stderr capture.
package photogram
