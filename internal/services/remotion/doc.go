// Package remotion provides the HTTP client for the Remotion render
// service that assembles slide images and narration into the final video.
package remotion
