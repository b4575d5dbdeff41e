// Package jsonfile stores corpora and results as JSON files.
//
// Writes go to a temporary file next to the target and are renamed over it,
// so a failed or interrupted write never leaves a truncated file behind.
// Concurrent writers each use their own temporary file.
package jsonfile
