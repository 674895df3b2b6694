// Command lathe is the client CLI for the lathed daemon: submit image
// batches, poll job status, download artifacts, and inspect daemon health.
package main
