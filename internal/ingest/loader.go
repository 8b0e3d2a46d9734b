package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hjh12035/NLP-Proj2/internal/rag"
)

// page markers embedded in chunk content so the model can cite locations
const (
	pdfPageMarker   = "--- 第 %d 页 ---\n%s\n"
	slideMarker     = "--- 幻灯片 %d ---\n%s\n"
	imageOCRHeading = "[图片OCR内容]"
)

// Loader walks a materials directory and produces page-level documents.
// Binary formats go through the extractor; plain text is read directly.
// Per-file failures are logged and skipped so one broken file never sinks
// an ingest run.
type Loader struct {
	dataDir   string
	extractor Extractor
	logger    *zap.Logger
}

// NewLoader creates a loader over dataDir. extractor may be nil, in which
// case binary formats are skipped with a warning.
func NewLoader(dataDir string, extractor Extractor, logger *zap.Logger) (*Loader, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		dataDir:   dataDir,
		extractor: extractor,
		logger:    logger.Named("loader"),
	}, nil
}

func supportedExt(ext string) bool {
	switch ext {
	case ".pdf", ".pptx", ".docx", ".txt", ".md":
		return true
	}
	return false
}

// LoadAll loads every supported file under the data directory.
func (l *Loader) LoadAll(ctx context.Context) ([]Document, error) {
	if _, err := os.Stat(l.dataDir); err != nil {
		return nil, fmt.Errorf("data directory unavailable: %w", err)
	}

	var docs []Document
	err := filepath.WalkDir(l.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedExt(strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.logger.Info("loading file", zap.String("path", path))
		loaded, err := l.LoadFile(ctx, path)
		if err != nil {
			l.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
			return nil
		}
		docs = append(docs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("loaded documents", zap.Int("count", len(docs)))
	return docs, nil
}

// LoadFile loads a single file into page-level documents.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	filename := filepath.Base(path)

	switch ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, nil
		}
		return []Document{{
			Content:   string(data),
			Filename:  filename,
			Filepath:  path,
			Filetype:  ext,
			Page:      0,
			ChunkType: rag.ChunkTypeText,
		}}, nil

	case ".pdf", ".pptx", ".docx":
		return l.loadBinary(ctx, path, filename, ext)
	}

	return nil, fmt.Errorf("unsupported file format: %s", ext)
}

func (l *Loader) loadBinary(ctx context.Context, path, filename, ext string) ([]Document, error) {
	if l.extractor == nil {
		return nil, fmt.Errorf("no extractor configured for %s files", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	extraction, err := l.extractor.Extract(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	marker := pdfPageMarker
	if ext == ".pptx" {
		marker = slideMarker
	}

	docs := make([]Document, 0, len(extraction.Pages)+len(extraction.Images))
	for _, page := range extraction.Pages {
		content := page.Text
		if page.Page > 0 {
			content = fmt.Sprintf(marker, page.Page, page.Text)
		}
		docs = append(docs, Document{
			Content:   content,
			Filename:  filename,
			Filepath:  path,
			Filetype:  ext,
			Page:      page.Page,
			ChunkType: rag.ChunkTypeText,
		})
	}

	for _, img := range extraction.Images {
		if strings.TrimSpace(img.Text) == "" {
			continue
		}
		content := fmt.Sprintf(marker, img.Page, imageOCRHeading+"\n"+img.Text)
		docs = append(docs, Document{
			Content:   content,
			Filename:  filename,
			Filepath:  path,
			Filetype:  ext,
			Page:      img.Page,
			ChunkType: rag.ChunkTypeImage,
		})
	}

	return docs, nil
}
