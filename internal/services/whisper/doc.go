// Package whisper wraps the whisper CLI for speech-to-text. The service runs
// the external binary against an audio file and reports the transcript files
// it produced.
package whisper
