// Package domain holds the valuestore worker's core types: the value table
// produced by ingestion, logical file naming, invocation modes, and the
// failure policy handed to the workflow engine.
package domain
