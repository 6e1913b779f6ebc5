package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"lectern/internal/logging"
	"lectern/internal/queue"
)

// SubmitPDF streams an uploaded curriculum document into the artifact store
// and enqueues a pending job. The document is staged under the new job's
// identifier before the row is inserted, so a worker never claims a job whose
// PDF is still being written.
func (d *Daemon) SubmitPDF(ctx context.Context, originalFilename string, r io.Reader) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	name, err := validatePDFName(originalFilename)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.New("document body is required")
	}

	id := uuid.NewString()
	pdfPath, err := d.artifacts.IngestPDF(id, name, r)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	if info, statErr := os.Stat(pdfPath); statErr != nil || info.Size() == 0 {
		_ = d.artifacts.RemoveJob(id)
		return nil, errors.New("document is empty")
	}

	job, err := d.store.InsertJob(ctx, id, name, pdfPath)
	if err != nil {
		_ = d.artifacts.RemoveJob(id)
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	d.collector.RecordSubmitted()
	d.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("filename", name),
		logging.String(logging.FieldEventType, "job_submitted"))
	return job, nil
}

// SubmitFile copies a local PDF into the artifact store and enqueues it. The
// source file is left in place; inbox ingestion removes it separately once the
// copy has been verified.
func (d *Daemon) SubmitFile(ctx context.Context, sourcePath string) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, errors.New("source path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source path %q is a directory", absPath)
	}
	if info.Size() == 0 {
		return nil, errors.New("document is empty")
	}
	name, err := validatePDFName(info.Name())
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	pdfPath, err := d.artifacts.ImportPDF(id, absPath)
	if err != nil {
		_ = d.artifacts.RemoveJob(id)
		return nil, fmt.Errorf("store document: %w", err)
	}

	job, err := d.store.InsertJob(ctx, id, name, pdfPath)
	if err != nil {
		_ = d.artifacts.RemoveJob(id)
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	d.collector.RecordSubmitted()
	d.logger.Info("job submitted from file",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", absPath),
		logging.String(logging.FieldEventType, "job_submitted"))
	return job, nil
}

func validatePDFName(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", errors.New("document filename is required")
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return "", fmt.Errorf("unsupported file extension %q (only .pdf is accepted)", filepath.Ext(name))
	}
	return name, nil
}
