// Package ledger persists per-item, per-stage completion flags in a single
// human-inspectable CSV file. The ledger is the source of truth for what the
// pipeline still needs to do: flags are monotonic (they never revert), loads
// merge newly discovered items without discarding prior progress, and saves
// replace the file atomically so a crash mid-write cannot corrupt the last
// good state.
package ledger
