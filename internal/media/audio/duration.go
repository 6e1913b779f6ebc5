// Package audio probes narration clips for their playback duration. The
// timeline's segment durations stay authoritative for frame timing; measured
// audio duration is used to detect narration that overruns its segment.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	mp3 "github.com/tcolgate/mp3"
)

// fallbackBitrateBps approximates the synthesizer's MP3 output (128 kbps)
// when frame decoding fails.
const fallbackBitrateBps = 128 * 1000

// MP3Duration sums the frame durations of an MP3 stream.
func MP3Duration(r io.Reader) (time.Duration, error) {
	decoder := mp3.NewDecoder(r)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames > 0 {
				// Tolerate trailing garbage after valid frames.
				break
			}
			return 0, fmt.Errorf("decode mp3 frame: %w", err)
		}
		total += frame.Duration()
		frames++
	}
	if frames == 0 {
		return 0, errors.New("no mp3 frames found")
	}
	return total, nil
}

// FileDuration returns the playback duration of an MP3 file in seconds.
// When the file cannot be decoded the duration is estimated from its size
// assuming constant 128 kbps output.
func FileDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	duration, decodeErr := MP3Duration(f)
	if decodeErr == nil {
		return duration.Seconds(), nil
	}

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat audio file after decode failure (%v): %w", decodeErr, err)
	}
	return EstimateDuration(info.Size()), nil
}

// EstimateDuration approximates playback seconds from file size at the
// synthesizer's constant bitrate.
func EstimateDuration(sizeBytes int64) float64 {
	if sizeBytes <= 0 {
		return 0
	}
	return float64(sizeBytes) / (fallbackBitrateBps / 8)
}
