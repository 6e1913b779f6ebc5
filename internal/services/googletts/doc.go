// Package googletts provides the HTTP client for the Cloud Text-to-Speech
// API used to synthesize narration audio.
package googletts
