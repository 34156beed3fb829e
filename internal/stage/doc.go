// Package stage defines the unit of pipeline work: a named stage that
// discovers pending items, runs a handler per item, and records completion in
// the ledger. Runners never mark failures; a failed item simply stays pending
// and is retried on the next run.
package stage
