// Package application wires the fetch pipeline together: transport,
// metadata lookups, credential acquisition, rollout selection, and document
// validation. It keeps the main package focused on CLI parsing and exit
// handling.
package application
