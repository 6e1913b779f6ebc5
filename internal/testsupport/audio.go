package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// MP3FrameSeconds is the playback duration of one generated MP3 frame
// (1152 samples at 44.1 kHz).
const MP3FrameSeconds = 1152.0 / 44100.0

// mp3FrameSize is the byte length of one MPEG-1 Layer III frame at
// 128 kbps / 44.1 kHz without padding.
const mp3FrameSize = 417

// MP3Bytes builds a silent but structurally valid MP3 stream with the
// requested number of frames.
func MP3Bytes(t testing.TB, frames int) []byte {
	t.Helper()

	if frames <= 0 {
		frames = 1
	}
	frame := make([]byte, mp3FrameSize)
	frame[0] = 0xff
	frame[1] = 0xfb
	frame[2] = 0x90
	frame[3] = 0x64

	data := make([]byte, 0, frames*mp3FrameSize)
	for i := 0; i < frames; i++ {
		data = append(data, frame...)
	}
	return data
}

// WriteMP3 writes a generated MP3 stream to the target path.
func WriteMP3(t testing.TB, path string, frames int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, MP3Bytes(t, frames), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
