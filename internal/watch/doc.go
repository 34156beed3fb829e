// Package watch triggers pipeline runs when new files land in the input
// directories. Events are debounced so a batch of copied files causes one
// run, not one per file.
package watch
