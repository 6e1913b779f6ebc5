// Package gemini provides the HTTP client for the Gemini generateContent
// API. One client serves both the content model (timeline generation) and
// the image model (slide backgrounds); requests share a concurrency
// semaphore and retry transparently on rate limits and transient failures.
package gemini
