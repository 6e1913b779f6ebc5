// Package extraction implements the pipeline stage that pulls plain text out
// of the uploaded PDF.
package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/ledongthuc/pdf"

	"lectern/internal/artifacts"
	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/stage"
	"lectern/internal/textutil"
)

const (
	// minWords is the fewest words a document may contain and still produce a
	// usable lesson; scanned image-only PDFs land below this.
	minWords = 100
	// maxWords caps the text handed to timeline generation.
	maxWords = 50000

	// duplicateSimilarity is the cosine similarity above which an extracted
	// document is flagged as a likely resubmission. Advisory only.
	duplicateSimilarity = 0.95
	// duplicateScanLimit bounds how many earlier documents are compared.
	duplicateScanLimit = 32
)

// Extractor reads the source PDF and stores its text for timeline generation.
type Extractor struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	artifacts *artifacts.Store
}

// NewExtractor constructs the extraction stage handler using default dependencies.
func NewExtractor(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Extractor {
	return NewExtractorWithDependencies(cfg, store, logger, artifacts.NewStore(cfg))
}

// NewExtractorWithDependencies allows injecting collaborators (used in tests).
func NewExtractorWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, artifactStore *artifacts.Store) *Extractor {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "extraction"))
	}
	return &Extractor{store: store, cfg: cfg, logger: stageLogger, artifacts: artifactStore}
}

// SetLogger swaps the stage logger, used to bind job-scoped loggers.
func (e *Extractor) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	e.logger = logger.With(logging.String("component", "extraction"))
}

func (e *Extractor) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, e.logger)
	job.InitProgress("Preparing text extraction")
	logger.Info(
		"starting extraction preparation",
		logging.String("original_filename", strings.TrimSpace(job.OriginalFilename)),
		logging.String("pdf_path", strings.TrimSpace(job.PDFPath)),
	)
	return nil
}

func (e *Extractor) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, e.logger)
	if strings.TrimSpace(job.PDFPath) == "" {
		return services.Wrap(
			services.ErrValidation,
			"extract",
			"validate inputs",
			"No source PDF recorded for this job; submit the document again",
			nil,
		)
	}
	if _, err := os.Stat(job.PDFPath); err != nil {
		return services.Wrap(
			services.ErrValidation,
			"extract",
			"validate inputs",
			"Source PDF is no longer on disk; submit the document again",
			err,
		)
	}

	e.updateProgress(ctx, job, "Reading PDF pages", 10)
	pages, err := readPages(job.PDFPath)
	if err != nil {
		return services.Wrap(
			services.ErrValidation,
			"extract",
			"read pdf",
			"Could not read the PDF; the file may be corrupt, encrypted, or not a PDF",
			err,
		)
	}
	text := joinPages(pages)
	words := len(strings.Fields(text))
	logger.Info(
		"extracted document text",
		logging.Int("pages", len(pages)),
		logging.Int("words", words),
	)
	if words < minWords {
		return services.Wrap(
			services.ErrValidation,
			"extract",
			"check text volume",
			fmt.Sprintf("PDF contains too little text (%d words; at least %d required). Image-only scans cannot be narrated", words, minWords),
			nil,
		)
	}
	if words > maxWords {
		text = truncateWords(text, maxWords)
		logger.Warn(
			"document text truncated",
			logging.Int("words", words),
			logging.Int("max_words", maxWords),
		)
		words = maxWords
	}

	e.updateProgress(ctx, job, "Checking for duplicate submissions", 60)
	e.flagNearDuplicates(ctx, job, text)

	e.updateProgress(ctx, job, "Storing extracted text", 85)
	textPath, err := e.artifacts.WriteText(job.ID, text)
	if err != nil {
		return services.Wrap(services.ErrTransient, "extract", "store text", "Failed to write extracted text", err)
	}
	job.TextPath = textPath

	job.SetProgress(fmt.Sprintf("Extracted %d words from %d pages", words, len(pages)), 100)
	logger.Info(
		"extraction completed",
		logging.String("text_path", textPath),
		logging.Int("words", words),
	)
	return nil
}

// HealthCheck verifies the artifact store is usable before extraction work is
// accepted.
func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	const name = "extract"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if e.artifacts == nil {
		return stage.Unhealthy(name, "artifact store unavailable")
	}
	if err := e.artifacts.EnsureRoot(); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("artifacts directory not writable: %v", err))
	}
	return stage.Healthy(name)
}

// flagNearDuplicates warns when the extracted text closely matches an earlier
// submission. Duplicates still process normally; the log line gives operators
// a pointer when the same deck is uploaded twice.
func (e *Extractor) flagNearDuplicates(ctx context.Context, job *queue.Job, text string) {
	logger := logging.WithContext(ctx, e.logger)
	current := textutil.NewFingerprint(text)
	if current.TokenCount() == 0 {
		return
	}
	paths, err := e.artifacts.TextFiles()
	if err != nil {
		logger.Warn("duplicate scan skipped", logging.Error(err))
		return
	}
	scanned := 0
	for _, path := range paths {
		if scanned >= duplicateScanLimit {
			return
		}
		otherID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if otherID == job.ID {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		scanned++
		similarity := textutil.CosineSimilarity(current, textutil.NewFingerprint(string(data)))
		if similarity >= duplicateSimilarity {
			logger.Warn(
				"document closely matches an earlier submission",
				logging.String("similar_job_id", otherID),
				logging.Float64("similarity", similarity),
			)
			return
		}
	}
}

func (e *Extractor) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(message, percent)
	if e.store == nil {
		return
	}
	if err := e.store.SetProgress(ctx, job.ID, message, percent); err != nil {
		logging.WithContext(ctx, e.logger).Warn("failed to persist extraction progress", logging.Error(err))
	}
}

// readPages returns the visible text of each non-empty page. The parser can
// panic on malformed cross reference tables, so the recover converts that
// into an ordinary error.
func readPages(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	fonts := make(map[string]*pdf.Font)
	for pageNum := 1; pageNum <= total; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, textErr := page.GetPlainText(fonts)
		if textErr != nil {
			// Unreadable single pages are skipped; the word minimum catches
			// documents where nothing survived.
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", pageNum, strings.TrimSpace(content)))
	}
	return pages, nil
}

func joinPages(pages []string) string {
	return strings.Join(pages, "\n\n")
}

func truncateWords(text string, limit int) string {
	fields := strings.Fields(text)
	if len(fields) <= limit {
		return text
	}
	return strings.Join(fields[:limit], " ")
}
