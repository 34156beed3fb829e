// Package llm talks to an OpenAI-compatible chat completion API to turn raw
// transcripts into structured lecture notes. Requests retry on transient HTTP
// failures with exponential backoff and honor Retry-After.
package llm
