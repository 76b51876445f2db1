package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/clausewise/clausewise/internal/ai"
	"github.com/clausewise/clausewise/internal/filestore"
	"github.com/clausewise/clausewise/internal/model"
	appErr "github.com/clausewise/clausewise/internal/pkg/errors"
)

type ChunkWriter interface {
	InsertBatch(ctx context.Context, chunks []*model.Chunk) error
	ListPending(ctx context.Context, limit int) ([]model.Chunk, error)
	SaveEmbedding(ctx context.Context, chunkID string, embedding []float32) error
	DeleteByDocument(ctx context.Context, tenantID, documentID string) error
}

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Get(ctx context.Context, tenantID, docID string) (*model.Document, error)
	List(ctx context.Context, tenantID string, limit int) ([]model.Document, error)
	MarkDeleted(ctx context.Context, tenantID, docID string, now int64) error
}

// IngestService turns an uploaded contract into chunks. The raw upload
// goes to the file store; chunks are inserted without embeddings and
// the backfill job fills them in asynchronously.
type IngestService struct {
	documents DocumentStore
	chunks    ChunkWriter
	files     filestore.Store
	chunker   *ai.Chunker
	embedder  Embedder
}

func NewIngestService(documents DocumentStore, chunks ChunkWriter, files filestore.Store, embedder Embedder) *IngestService {
	return &IngestService{
		documents: documents,
		chunks:    chunks,
		files:     files,
		chunker:   ai.NewChunker(),
		embedder:  embedder,
	}
}

func (s *IngestService) IngestDocument(ctx context.Context, tenantID, filename, contractType, content string) (*model.Document, error) {
	tenantID = strings.TrimSpace(tenantID)
	filename = strings.TrimSpace(filename)
	if tenantID == "" || filename == "" || strings.TrimSpace(content) == "" {
		return nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("tenant_id", tenantID),
		zap.String("filename", filename),
	)

	docID := newID()
	storageKey := docID + sanitizeExt(filename)
	if s.files != nil {
		reader := nopSeekCloser{bytes.NewReader([]byte(content))}
		if err := s.files.Save(ctx, storageKey, reader, int64(len(content))); err != nil {
			logger.Error("failed to store source file", zap.Error(err))
			return nil, err
		}
	}

	pieces := s.chunker.Chunk(ctx, content)
	now := time.Now().UnixMilli()
	doc := &model.Document{
		ID:           docID,
		TenantID:     tenantID,
		Filename:     filename,
		ContractType: strings.TrimSpace(contractType),
		StorageKey:   storageKey,
		ChunkCount:   len(pieces),
		State:        model.DocumentStateNormal,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	chunks := make([]*model.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, &model.Chunk{
			ID:          newID(),
			DocumentID:  docID,
			TenantID:    tenantID,
			ChunkNumber: piece.Number,
			Text:        piece.Text,
			Processed:   false,
			Ctime:       now,
		})
	}
	if err := s.chunks.InsertBatch(ctx, chunks); err != nil {
		logger.Error("failed to insert chunks", zap.Error(err))
		return nil, err
	}
	logger.Info("document ingested", zap.String("document_id", docID), zap.Int("chunks", len(chunks)))
	return doc, nil
}

func (s *IngestService) GetDocument(ctx context.Context, tenantID, docID string) (*model.Document, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(docID) == "" {
		return nil, appErr.ErrInvalid
	}
	return s.documents.Get(ctx, tenantID, docID)
}

func (s *IngestService) ListDocuments(ctx context.Context, tenantID string, limit int) ([]model.Document, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, appErr.ErrInvalid
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.documents.List(ctx, tenantID, limit)
}

// DeleteDocument removes the document and every chunk derived from it,
// so deleted content can no longer surface in retrieval.
func (s *IngestService) DeleteDocument(ctx context.Context, tenantID, docID string) error {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(docID) == "" {
		return appErr.ErrInvalid
	}
	if err := s.documents.MarkDeleted(ctx, tenantID, docID, time.Now().UnixMilli()); err != nil {
		return err
	}
	return s.chunks.DeleteByDocument(ctx, tenantID, docID)
}

// ProcessPendingEmbeddings embeds up to batch unprocessed chunks. A
// provider outage aborts the batch; the remaining chunks stay pending
// for the next run.
func (s *IngestService) ProcessPendingEmbeddings(ctx context.Context, batch int) error {
	if batch <= 0 {
		batch = 32
	}
	pending, err := s.chunks.ListPending(ctx, batch)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	for _, chunk := range pending {
		vec, err := s.embedder.Embed(ctx, chunk.Text, ai.TaskTypeDocument)
		if err != nil {
			if errors.Is(err, ai.ErrUnavailable) {
				logger.Warn("embedding provider unavailable, deferring backfill", zap.Error(err))
				return err
			}
			logger.Error("failed to embed chunk", zap.String("chunk_id", chunk.ID), zap.Error(err))
			continue
		}
		if err := s.chunks.SaveEmbedding(ctx, chunk.ID, vec); err != nil {
			logger.Error("failed to save chunk embedding", zap.String("chunk_id", chunk.ID), zap.Error(err))
			return err
		}
	}
	logger.Info("embedding backfill batch processed", zap.Int("chunks", len(pending)))
	return nil
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".txt":
		return ext
	default:
		return ".txt"
	}
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
