// Package history persists run summaries to SQLite so past runs can be
// inspected after the fact. The progress ledger stays the source of truth for
// what is done; history only records what each run did.
package history
