// Package services holds shared helpers for the external collaborators the
// pipeline drives: error classification sentinels and context keys used to
// thread item and stage identity through logging.
package services
