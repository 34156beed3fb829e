// Package pipeline wires the stages together and drives a full run: take the
// single-instance lock, load the ledger, run each stage in dependency order,
// and persist a summary of what happened.
package pipeline
