package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/studyforge-backend/internal/data/repos"
	repostudy "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/modules/study/chunking"
	"github.com/yungbote/studyforge-backend/internal/modules/study/ingestion"
	"github.com/yungbote/studyforge-backend/internal/modules/study/ratelimit"
	"github.com/yungbote/studyforge-backend/internal/platform/apierr"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

const ScopeUpload = "upload"

// ObjectStore is the blob storage boundary (GCS, S3 or local disk).
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Acquirer turns file bytes into text.
type Acquirer interface {
	CheckUpload(size int64, mimeType string, head []byte) (string, error)
	Acquire(ctx context.Context, in ingestion.Input) (ingestion.Result, error)
}

type UploadInput struct {
	UserID   uuid.UUID
	FolderID *uuid.UUID
	Title    string
	FileName string
	MimeType string
	Data     []byte
}

type DocumentConfig struct {
	UploadRule     ratelimit.Rule
	DefaultMode    types.Mode
	MaxConcurrency int64
}

type DocumentService interface {
	// Upload stores the file, creates the document and starts background
	// processing. The returned document is already in "extracting".
	Upload(ctx context.Context, in UploadInput) (*types.Document, error)
	RetryDocument(ctx context.Context, userID, documentID uuid.UUID) (*types.Document, error)
	GetDocument(ctx context.Context, userID, documentID uuid.UUID) (*types.Document, error)
	ListDocuments(ctx context.Context, userID uuid.UUID, f repostudy.DocumentListFilter) ([]*types.Document, error)
	// Wait blocks until every background task has finished or ctx is done.
	Wait(ctx context.Context) error
}

type documentService struct {
	log       *logger.Logger
	docs      repos.DocumentRepo
	store     ObjectStore
	acquirer  Acquirer
	generator GenerationService
	limiter   *ratelimit.Limiter
	notify    DocumentNotifier
	cfg       DocumentConfig
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
}

func NewDocumentService(
	baseLog *logger.Logger,
	docs repos.DocumentRepo,
	store ObjectStore,
	acquirer Acquirer,
	generator GenerationService,
	limiter *ratelimit.Limiter,
	notify DocumentNotifier,
	cfg DocumentConfig,
) DocumentService {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if _, ok := study.ParseMode(string(cfg.DefaultMode)); !ok {
		cfg.DefaultMode = study.ModeFaithful
	}
	return &documentService{
		log:       baseLog.With("service", "DocumentService"),
		docs:      docs,
		store:     store,
		acquirer:  acquirer,
		generator: generator,
		limiter:   limiter,
		notify:    notify,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(cfg.MaxConcurrency),
	}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*types.Document, error) {
	if s.limiter != nil {
		if d := s.limiter.Allow(ScopeUpload, in.UserID, s.cfg.UploadRule); !d.Allowed {
			return nil, apierr.RateLimited(d.RetryAfter)
		}
	}
	mt, err := s.acquirer.CheckUpload(int64(len(in.Data)), in.MimeType, in.Data)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(path.Base(strings.ReplaceAll(in.FileName, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(name, path.Ext(name))
	}

	dbc := dbctx.Context{Ctx: ctx}
	doc := &types.Document{
		UserID:    in.UserID,
		FolderID:  in.FolderID,
		Title:     title,
		FileName:  name,
		MimeType:  mt,
		SizeBytes: int64(len(in.Data)),
		Status:    study.DocumentUploading,
	}
	if err := s.docs.Create(dbc, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	key := fmt.Sprintf("documents/%s/%s/%s", in.UserID, doc.ID, name)
	url, err := s.store.Put(ctx, key, in.Data, mt)
	if err != nil {
		s.fail(ctx, doc, fmt.Errorf("store upload: %w", err))
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.docs.UpdateFields(dbc, doc.ID, map[string]interface{}{"file_url": url, "storage_key": key}); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}
	doc.FileURL, doc.StorageKey = url, key

	if err := s.move(ctx, doc, []study.DocumentStatus{study.DocumentUploading}, study.DocumentExtracting); err != nil {
		return nil, err
	}
	s.spawn(ctx, doc, in.Data)
	return doc, nil
}

func (s *documentService) RetryDocument(ctx context.Context, userID, documentID uuid.UUID) (*types.Document, error) {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	target := study.DocumentExtracting
	if strings.TrimSpace(doc.ExtractedText) != "" {
		target = study.DocumentGenerating
	}
	if !study.CanTransition(doc.Status, target, true) {
		return nil, apierr.New(http.StatusConflict, "DOCUMENT_NOT_RETRYABLE", fmt.Errorf("document is %s", doc.Status))
	}
	if target == study.DocumentExtracting && doc.StorageKey == "" {
		return nil, apierr.New(http.StatusConflict, "DOCUMENT_NOT_RETRYABLE", errors.New("original file is not stored"))
	}
	if err := s.move(ctx, doc, []study.DocumentStatus{study.DocumentError, study.DocumentReady}, target); err != nil {
		return nil, err
	}
	s.spawn(ctx, doc, nil)
	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, userID, documentID uuid.UUID) (*types.Document, error) {
	doc, err := s.docs.GetForUser(dbctx.Context{Ctx: ctx}, userID, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *documentService) ListDocuments(ctx context.Context, userID uuid.UUID, f repostudy.DocumentListFilter) ([]*types.Document, error) {
	return s.docs.ListByUser(dbctx.Context{Ctx: ctx}, userID, f)
}

func (s *documentService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// spawn runs processing detached from the request; data may be nil, in
// which case the original is read back from storage when needed.
func (s *documentService) spawn(ctx context.Context, doc *types.Document, data []byte) {
	bg := context.WithoutCancel(ctx)
	snapshot := *doc
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.fail(bg, &snapshot, fmt.Errorf("panic: %v", r))
			}
		}()
		if err := s.sem.Acquire(bg, 1); err != nil {
			s.fail(bg, &snapshot, err)
			return
		}
		defer s.sem.Release(1)
		if err := s.process(bg, &snapshot, data); err != nil {
			s.fail(bg, &snapshot, err)
		}
	}()
}

func (s *documentService) process(ctx context.Context, doc *types.Document, data []byte) error {
	dbc := dbctx.Context{Ctx: ctx}
	if doc.Status == study.DocumentExtracting {
		if data == nil {
			b, err := s.store.Get(ctx, doc.StorageKey)
			if err != nil {
				return fmt.Errorf("load original: %w", err)
			}
			data = b
		}
		res, err := s.acquirer.Acquire(ctx, ingestion.Input{FileName: doc.FileName, MimeType: doc.MimeType, Data: data})
		if err != nil {
			return err
		}
		text := chunking.Normalize(res.Text)
		updates := map[string]interface{}{
			"extracted_text":    text,
			"ocr_confidence":    res.Confidence,
			"extraction_method": res.Method,
			"text_hash":         chunking.TextHash(text),
		}
		if err := s.docs.UpdateFields(dbc, doc.ID, updates); err != nil {
			return fmt.Errorf("save extracted text: %w", err)
		}
		doc.ExtractedText, doc.OCRConfidence, doc.ExtractionMethod = text, res.Confidence, res.Method
		s.log.Info("text acquired",
			"document_id", doc.ID,
			"method", res.Method,
			"confidence", res.Confidence,
			"pages", res.Pages,
			"warnings", len(res.Warnings),
		)
		if err := s.move(ctx, doc, []study.DocumentStatus{study.DocumentExtracting}, study.DocumentGenerating); err != nil {
			return err
		}
	}

	if _, err := s.generator.GenerateAfterIngest(ctx, doc.UserID, doc.ID, s.cfg.DefaultMode); err != nil {
		return err
	}
	return s.move(ctx, doc, []study.DocumentStatus{study.DocumentGenerating}, study.DocumentReady)
}

func (s *documentService) move(ctx context.Context, doc *types.Document, from []study.DocumentStatus, to study.DocumentStatus) error {
	ok, err := s.docs.SetStatus(dbctx.Context{Ctx: ctx}, doc.ID, from, to, "")
	if err != nil {
		return fmt.Errorf("set status %s: %w", to, err)
	}
	if !ok {
		return fmt.Errorf("document %s left %v before moving to %s", doc.ID, from, to)
	}
	doc.Status, doc.StatusError = to, ""
	s.notify.StatusChanged(ctx, doc)
	return nil
}

// fail moves a non-terminal document to error, recording the sentinel code
// when there is one.
func (s *documentService) fail(ctx context.Context, doc *types.Document, cause error) {
	msg := apierr.CodeOf(cause)
	if msg == "" {
		msg = cause.Error()
	}
	if errors.Is(cause, ingestion.ErrEmptyExtraction) {
		msg = "EXTRACTION_EMPTY"
	}
	s.log.Warn("document processing failed", "document_id", doc.ID, "error", cause)
	from := []study.DocumentStatus{study.DocumentUploading, study.DocumentExtracting, study.DocumentGenerating}
	ok, err := s.docs.SetStatus(dbctx.Context{Ctx: ctx}, doc.ID, from, study.DocumentError, msg)
	if err != nil {
		s.log.Error("mark document error failed", "document_id", doc.ID, "error", err)
		return
	}
	if ok {
		doc.Status, doc.StatusError = study.DocumentError, msg
		s.notify.StatusChanged(ctx, doc)
	}
}
