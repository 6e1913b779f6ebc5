// Package artifacts manages the on-disk layout of pipeline outputs.
//
// Every job owns a deterministic set of paths beneath the artifacts root:
//
//	pdfs/{job}/{original}.pdf   source document
//	text/{job}.txt              extracted text
//	timelines/{job}.json        generated timeline
//	images/{job}/seg_NNN.png    slide images
//	audio/{job}/seg_NNN.mp3     narration clips
//	videos/{job}.mp4            rendered video
//
// Paths are derived purely from the job ID so stages can overwrite their own
// output on retry without coordination.
package artifacts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/fileutil"
	"lectern/internal/textutil"
	"lectern/internal/timeline"
)

const (
	pdfDirName      = "pdfs"
	textDirName     = "text"
	timelineDirName = "timelines"
	imageDirName    = "images"
	audioDirName    = "audio"
	videoDirName    = "videos"
)

// Store resolves and writes per-job artifact paths beneath a fixed root.
type Store struct {
	root string
}

// NewStore returns a store rooted at the configured artifacts directory.
func NewStore(cfg *config.Config) *Store {
	return &Store{root: cfg.Paths.ArtifactsDir}
}

// NewStoreAt returns a store rooted at an explicit directory.
func NewStoreAt(root string) *Store {
	return &Store{root: root}
}

// Root returns the artifacts root directory.
func (s *Store) Root() string {
	return s.root
}

// EnsureRoot creates the artifacts root directory if it does not exist.
func (s *Store) EnsureRoot() error {
	return os.MkdirAll(s.root, 0o755)
}

// PDFDir returns the directory holding a job's source document.
func (s *Store) PDFDir(jobID string) string {
	return filepath.Join(s.root, pdfDirName, jobID)
}

// PDFPath returns the canonical path for a job's source document. The
// original filename is sanitized and forced to a .pdf extension.
func (s *Store) PDFPath(jobID, originalFilename string) string {
	name := textutil.SanitizeFileName(originalFilename)
	if name == "" {
		name = "document"
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return filepath.Join(s.PDFDir(jobID), name)
}

// TextPath returns the path for a job's extracted text.
func (s *Store) TextPath(jobID string) string {
	return filepath.Join(s.root, textDirName, jobID+".txt")
}

// TextFiles lists every stored extracted-text file, newest first.
func (s *Store) TextFiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, textDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type dated struct {
		path    string
		modTime time.Time
	}
	files := make([]dated, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, dated{path: filepath.Join(s.root, textDirName, entry.Name()), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// TimelinePath returns the path for a job's timeline JSON.
func (s *Store) TimelinePath(jobID string) string {
	return filepath.Join(s.root, timelineDirName, jobID+".json")
}

// ImagesDir returns the directory holding a job's slide images.
func (s *Store) ImagesDir(jobID string) string {
	return filepath.Join(s.root, imageDirName, jobID)
}

// ImagePath returns the path for one segment's slide image.
func (s *Store) ImagePath(jobID string, segmentIndex int) string {
	return filepath.Join(s.ImagesDir(jobID), timeline.SegmentID(segmentIndex)+".png")
}

// AudioDir returns the directory holding a job's narration clips.
func (s *Store) AudioDir(jobID string) string {
	return filepath.Join(s.root, audioDirName, jobID)
}

// AudioPath returns the path for one segment's narration clip.
func (s *Store) AudioPath(jobID string, segmentIndex int) string {
	return filepath.Join(s.AudioDir(jobID), timeline.SegmentID(segmentIndex)+".mp3")
}

// VideoPath returns the path for a job's rendered video.
func (s *Store) VideoPath(jobID string) string {
	return filepath.Join(s.root, videoDirName, jobID+".mp4")
}

// IngestPDF streams an uploaded document into the job's pdf directory and
// returns the stored path.
func (s *Store) IngestPDF(jobID, originalFilename string, r io.Reader) (string, error) {
	dst := s.PDFPath(jobID, originalFilename)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create pdf directory: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create pdf: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return dst, nil
}

// ImportPDF copies a document from an external location (such as the watched
// inbox) into the job's pdf directory with integrity verification.
func (s *Store) ImportPDF(jobID, srcPath string) (string, error) {
	dst := s.PDFPath(jobID, filepath.Base(srcPath))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create pdf directory: %w", err)
	}
	if err := fileutil.CopyFileVerified(srcPath, dst); err != nil {
		return "", fmt.Errorf("import pdf: %w", err)
	}
	return dst, nil
}

// WriteText stores a job's extracted text and returns the path.
func (s *Store) WriteText(jobID, text string) (string, error) {
	return s.writeFile(s.TextPath(jobID), []byte(text))
}

// WriteTimeline stores a job's timeline JSON and returns the path.
func (s *Store) WriteTimeline(jobID string, data []byte) (string, error) {
	return s.writeFile(s.TimelinePath(jobID), data)
}

// ReadTimeline loads and parses a job's stored timeline.
func (s *Store) ReadTimeline(jobID string) (*timeline.Timeline, error) {
	data, err := os.ReadFile(s.TimelinePath(jobID))
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}
	tl, err := timeline.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse timeline: %w", err)
	}
	return tl, nil
}

// EnsureImagesDir creates and returns the job's image directory.
func (s *Store) EnsureImagesDir(jobID string) (string, error) {
	dir := s.ImagesDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create images directory: %w", err)
	}
	return dir, nil
}

// EnsureAudioDir creates and returns the job's audio directory.
func (s *Store) EnsureAudioDir(jobID string) (string, error) {
	dir := s.AudioDir(jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio directory: %w", err)
	}
	return dir, nil
}

// EnsureVideoDir creates the videos directory and returns the job's video path.
func (s *Store) EnsureVideoDir(jobID string) (string, error) {
	path := s.VideoPath(jobID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create videos directory: %w", err)
	}
	return path, nil
}

func (s *Store) writeFile(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// RemoveJob deletes every artifact belonging to the job. Missing paths are
// not errors; the first few failures are collected and reported together.
func (s *Store) RemoveJob(jobID string) error {
	var errs []error
	for _, dir := range []string{s.PDFDir(jobID), s.ImagesDir(jobID), s.AudioDir(jobID)} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	for _, path := range []string{s.TextPath(jobID), s.TimelinePath(jobID), s.VideoPath(jobID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("remove artifacts for job %s: %w", jobID, errors.Join(errs...))
	}
	return nil
}

// DiskUsage reports the total bytes consumed by a job's artifacts.
func (s *Store) DiskUsage(jobID string) int64 {
	var total int64
	for _, dir := range []string{s.PDFDir(jobID), s.ImagesDir(jobID), s.AudioDir(jobID)} {
		total += dirSize(dir)
	}
	for _, path := range []string{s.TextPath(jobID), s.TimelinePath(jobID), s.VideoPath(jobID)} {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			total += info.Size()
		}
	}
	return total
}

func dirSize(dir string) int64 {
	var size int64
	_ = filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
