package audio_test

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"lectern/internal/media/audio"
	"lectern/internal/testsupport"
)

func TestMP3DurationSumsFrames(t *testing.T) {
	const frames = 40
	duration, err := audio.MP3Duration(bytes.NewReader(testsupport.MP3Bytes(t, frames)))
	if err != nil {
		t.Fatalf("MP3Duration failed: %v", err)
	}
	want := frames * testsupport.MP3FrameSeconds
	if math.Abs(duration.Seconds()-want) > 0.01 {
		t.Fatalf("duration = %.4fs, want ~%.4fs", duration.Seconds(), want)
	}
}

func TestMP3DurationRejectsGarbage(t *testing.T) {
	if _, err := audio.MP3Duration(bytes.NewReader([]byte("not an mp3 stream"))); err == nil {
		t.Fatal("expected error for non-mp3 input")
	}
	if _, err := audio.MP3Duration(bytes.NewReader(nil)); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestFileDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg_001.mp3")
	const frames = 20
	testsupport.WriteMP3(t, path, frames)

	seconds, err := audio.FileDuration(path)
	if err != nil {
		t.Fatalf("FileDuration failed: %v", err)
	}
	want := frames * testsupport.MP3FrameSeconds
	if math.Abs(seconds-want) > 0.01 {
		t.Fatalf("duration = %.4fs, want ~%.4fs", seconds, want)
	}

	if _, err := audio.FileDuration(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEstimateDuration(t *testing.T) {
	if got := audio.EstimateDuration(16000); got != 1.0 {
		t.Fatalf("EstimateDuration(16000) = %v, want 1.0", got)
	}
	if got := audio.EstimateDuration(0); got != 0 {
		t.Fatalf("EstimateDuration(0) = %v, want 0", got)
	}
}
