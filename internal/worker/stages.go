package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/extraction"
	"inkwell/internal/language"
	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/services"
	"inkwell/internal/services/ocrengine"
	"inkwell/internal/services/textengine"
	"inkwell/internal/stage"
	"inkwell/internal/storage"
	"inkwell/internal/textutil"
)

// NewStageSet builds the production handlers from configuration. The fast
// endpoint serves both recognition and refinement; the batch endpoint serves
// the heavy OCR stage.
func NewStageSet(cfg *config.Config, objects storage.ObjectStore, logger *slog.Logger) StageSet {
	languages := language.NormalizeAll(cfg.Extraction.Languages)
	timeout := time.Duration(cfg.Extraction.RequestTimeout) * time.Second

	fast := textengine.NewClient(cfg.Extraction.FastEndpoint, cfg.Extraction.APIKey,
		textengine.WithTimeout(timeout))
	batch := ocrengine.NewClient(cfg.Extraction.BatchEndpoint, cfg.Extraction.APIKey,
		ocrengine.WithTimeout(timeout),
		ocrengine.WithPollInterval(time.Duration(cfg.Extraction.PollInterval)*time.Second))

	return StageSet{
		Recognize: NewRecognizeStage(fast, fast, languages, logger),
		OCR:       NewOCRStage(batch, languages, logger),
		Quality:   NewQualityStage(logger),
		Refine:    NewRefineStage(fast, logger),
		Archive:   NewArchiveStage(objects, cfg.Storage.Bucket, cfg.Storage.ResultsPrefix, logger),
	}
}

// healthChecker is implemented by the engine clients.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func checkDependency(ctx context.Context, name string, dep healthChecker) stage.Health {
	if dep == nil {
		return stage.Unhealthy(name, "dependency not configured")
	}
	if err := dep.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// RecognizeStage runs the whole fast-tier pipeline in one stage: recognize,
// refine, render, and assess. The record moves straight from processing to
// processed when it returns.
type RecognizeStage struct {
	engine    extraction.Engine
	refiner   extraction.Refiner
	languages []string
	logger    *slog.Logger
}

// NewRecognizeStage builds the fast-tier handler.
func NewRecognizeStage(engine extraction.Engine, refiner extraction.Refiner, languages []string, logger *slog.Logger) *RecognizeStage {
	return &RecognizeStage{
		engine:    engine,
		refiner:   refiner,
		languages: languages,
		logger:    logging.NewComponentLogger(logger, "stage-recognize"),
	}
}

func (s *RecognizeStage) Name() string { return "recognize" }

func (s *RecognizeStage) Execute(ctx context.Context, job *stage.Job) error {
	doc := job.Document
	out, err := s.engine.Recognize(ctx, extraction.Input{
		DocumentID:  doc.DocumentID,
		ContentType: doc.ContentType,
		Languages:   s.languages,
		Data:        job.Data,
	})
	if err != nil {
		return err
	}
	job.Output = out

	text := textutil.Sanitize(out.Text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "recognize", "execute",
			"engine returned no text", nil)
	}

	refined := text
	if s.refiner != nil {
		raw, err := s.refiner.Refine(ctx, doc.DocumentID, text, out.Language)
		if err != nil {
			return err
		}
		refined = textutil.Sanitize(raw)
	}
	formatted, err := extraction.RenderHTML(refined)
	if err != nil {
		return services.Wrap(services.ErrValidation, "recognize", "render",
			"render refined text", err)
	}
	assessment := extraction.Assess(refined)

	job.Result = records.Result{
		ExtractedText: text,
		RefinedText:   refined,
		FormattedText: formatted,
		Language:      resolveLanguage(out.Language, s.languages),
		PageCount:     resolvePageCount(out.PageCount, doc.PageCount),
		WordCount:     assessment.WordCount,
		QualityScore:  assessment.Score,
	}
	return nil
}

func (s *RecognizeStage) HealthCheck(ctx context.Context) stage.Health {
	checker, _ := s.engine.(healthChecker)
	return checkDependency(ctx, s.Name(), checker)
}

// OCRStage submits the document to the batch engine and waits for the job to
// finish. Awaiting respects ctx, so shutdown interrupts the poll rather than
// the engine.
type OCRStage struct {
	engine    extraction.BatchEngine
	languages []string
	logger    *slog.Logger
}

// NewOCRStage builds the heavy-tier recognition handler.
func NewOCRStage(engine extraction.BatchEngine, languages []string, logger *slog.Logger) *OCRStage {
	return &OCRStage{
		engine:    engine,
		languages: languages,
		logger:    logging.NewComponentLogger(logger, "stage-ocr"),
	}
}

func (s *OCRStage) Name() string { return "ocr" }

func (s *OCRStage) Execute(ctx context.Context, job *stage.Job) error {
	doc := job.Document
	input := extraction.Input{
		DocumentID:  doc.DocumentID,
		ContentType: doc.ContentType,
		Languages:   s.languages,
		Data:        job.Data,
	}

	jobID, err := s.engine.Submit(ctx, input)
	if err != nil {
		return err
	}
	s.logger.Info("batch job submitted", logging.Args(
		logging.String(logging.FieldDocumentID, doc.DocumentID),
		logging.String("engine_job_id", jobID),
	)...)

	out, err := s.engine.Await(ctx, jobID)
	if err != nil {
		return err
	}
	job.Output = out

	text := textutil.Sanitize(out.Text)
	job.Result.ExtractedText = text
	job.Result.Language = resolveLanguage(out.Language, s.languages)
	job.Result.PageCount = resolvePageCount(out.PageCount, doc.PageCount)
	return nil
}

func (s *OCRStage) HealthCheck(ctx context.Context) stage.Health {
	checker, _ := s.engine.(healthChecker)
	return checkDependency(ctx, s.Name(), checker)
}

// QualityStage scores the raw OCR output. A run that recognized nothing
// fails here rather than archiving an empty result.
type QualityStage struct {
	logger *slog.Logger
}

// NewQualityStage builds the assessment handler.
func NewQualityStage(logger *slog.Logger) *QualityStage {
	return &QualityStage{logger: logging.NewComponentLogger(logger, "stage-quality")}
}

func (s *QualityStage) Name() string { return "quality" }

func (s *QualityStage) Execute(ctx context.Context, job *stage.Job) error {
	if job.Result.ExtractedText == "" {
		return services.Wrap(services.ErrValidation, "quality", "execute",
			"no recognized text to assess", nil)
	}
	assessment := extraction.Assess(job.Result.ExtractedText)
	job.Result.WordCount = assessment.WordCount
	job.Result.QualityScore = assessment.Score

	s.logger.Debug("quality assessed", logging.Args(
		logging.String(logging.FieldDocumentID, job.Document.DocumentID),
		logging.Float64("quality_score", assessment.Score),
		logging.Int("word_count", assessment.WordCount),
	)...)
	return nil
}

func (s *QualityStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.Name())
}

// RefineStage repairs the OCR text and renders the display form.
type RefineStage struct {
	refiner extraction.Refiner
	logger  *slog.Logger
}

// NewRefineStage builds the refinement handler.
func NewRefineStage(refiner extraction.Refiner, logger *slog.Logger) *RefineStage {
	return &RefineStage{
		refiner: refiner,
		logger:  logging.NewComponentLogger(logger, "stage-refine"),
	}
}

func (s *RefineStage) Name() string { return "refine" }

func (s *RefineStage) Execute(ctx context.Context, job *stage.Job) error {
	doc := job.Document
	raw, err := s.refiner.Refine(ctx, doc.DocumentID, job.Result.ExtractedText, job.Result.Language)
	if err != nil {
		return err
	}
	refined := textutil.Sanitize(raw)
	formatted, err := extraction.RenderHTML(refined)
	if err != nil {
		return services.Wrap(services.ErrValidation, "refine", "render",
			"render refined text", err)
	}

	job.Result.RefinedText = refined
	job.Result.FormattedText = formatted
	// The score keeps measuring the raw OCR pass; the word count follows the
	// text users actually read.
	job.Result.WordCount = extraction.Assess(refined).WordCount
	return nil
}

func (s *RefineStage) HealthCheck(ctx context.Context) stage.Health {
	checker, _ := s.refiner.(healthChecker)
	return checkDependency(ctx, s.Name(), checker)
}

// resultArchive is the self-contained document the archive stage writes next
// to the extraction results.
type resultArchive struct {
	DocumentID string           `json:"document_id"`
	Tier       string           `json:"tier"`
	ArchivedAt time.Time        `json:"archived_at"`
	Metadata   records.Metadata `json:"metadata"`
	Result     records.Result   `json:"result"`
}

// ArchiveStage writes the finished result to object storage under the
// configured results prefix.
type ArchiveStage struct {
	objects storage.ObjectStore
	bucket  string
	prefix  string
	logger  *slog.Logger
}

// NewArchiveStage builds the persistence handler.
func NewArchiveStage(objects storage.ObjectStore, bucket, prefix string, logger *slog.Logger) *ArchiveStage {
	return &ArchiveStage{
		objects: objects,
		bucket:  bucket,
		prefix:  prefix,
		logger:  logging.NewComponentLogger(logger, "stage-archive"),
	}
}

func (s *ArchiveStage) Name() string { return "archive" }

func (s *ArchiveStage) Execute(ctx context.Context, job *stage.Job) error {
	if s.objects == nil {
		return services.Wrap(services.ErrConfiguration, "archive", "execute",
			"object storage not configured", nil)
	}
	doc := job.Document
	key := storage.ResultKey(s.prefix, doc.DocumentID)

	data, err := json.MarshalIndent(resultArchive{
		DocumentID: doc.DocumentID,
		Tier:       string(doc.Tier),
		ArchivedAt: time.Now().UTC(),
		Metadata:   doc.Metadata(),
		Result:     job.Result,
	}, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, "archive", "execute",
			"marshal result archive", err)
	}

	if err := s.objects.Put(ctx, s.bucket, key, "application/json", bytes.NewReader(data)); err != nil {
		return services.Wrap(services.ErrTransport, "archive", "execute",
			fmt.Sprintf("put %s/%s", s.bucket, key), err)
	}

	job.Result.ResultKey = key
	s.logger.Info("result archived", logging.Args(
		logging.String(logging.FieldDocumentID, doc.DocumentID),
		logging.String("result_key", key),
	)...)
	return nil
}

func (s *ArchiveStage) HealthCheck(ctx context.Context) stage.Health {
	if s.objects == nil {
		return stage.Unhealthy(s.Name(), "object storage not configured")
	}
	if s.bucket == "" {
		return stage.Unhealthy(s.Name(), "results bucket not configured")
	}
	return stage.Healthy(s.Name())
}

func resolveLanguage(detected string, configured []string) string {
	if detected != "" {
		return detected
	}
	if len(configured) > 0 {
		return configured[0]
	}
	return ""
}

func resolvePageCount(detected, known int) int {
	if detected > 0 {
		return detected
	}
	return known
}
