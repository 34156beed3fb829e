// Package notes renders structured lecture notes to disk: the markdown body
// produced by the model, and optionally an HTML page built from it.
package notes
