// Package timeline defines the video timeline contract between content
// generation and rendering.
//
// A Timeline is immutable once validated: segment durations are authoritative,
// narration audio must fit inside them, and the renderer follows them exactly.
// Validation collects every problem it finds rather than stopping at the
// first, so a rejected generation reports all defects at once. Content that
// fails validation cannot be repaired downstream; the job fails and the
// document must be regenerated.
package timeline
