// Package preflight verifies the environment before a run: required binaries
// on PATH, directory permissions, and model API reachability.
package preflight
