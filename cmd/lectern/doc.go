// Command lectern drives the lecture notes pipeline: it extracts audio from
// recordings, transcribes it, and structures the transcripts into notes,
// resuming from the progress ledger on every run.
package main
