// Package textutil provides text helpers shared across the pipeline:
// filename sanitization for artifact paths, display titles derived from
// uploaded document names, and term-frequency fingerprints used to flag
// near-duplicate document submissions.
package textutil
