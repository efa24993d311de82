package highlight

import (
	"context"
	"strings"

	"github.com/jun/drivelookup/internal/adapter"
	"github.com/jun/drivelookup/internal/logging"
	"github.com/jun/drivelookup/internal/model"
	"go.uber.org/zap"
)

// Extractor converts downloaded bytes into text.
type Extractor interface {
	Extract(data []byte, mimeType string) (string, error)
}

// Strategy is one way of downloading a file's bytes.
type Strategy struct {
	Name  string
	Fetch func(ctx context.Context, p adapter.FileSearchProvider, fileID, mimeType string) ([]byte, error)
}

// DefaultStrategies tries an export first, then a plain download.
var DefaultStrategies = []Strategy{
	{
		Name: "export",
		Fetch: func(ctx context.Context, p adapter.FileSearchProvider, fileID, mimeType string) ([]byte, error) {
			return p.ExportFile(ctx, fileID, mimeType)
		},
	},
	{
		Name: "media",
		Fetch: func(ctx context.Context, p adapter.FileSearchProvider, fileID, _ string) ([]byte, error) {
			return p.GetFileMedia(ctx, fileID)
		},
	},
}

// Engine fetches file content and highlights matches in it.
type Engine struct {
	extractor  Extractor
	strategies []Strategy
	log        *zap.Logger
}

// NewEngine creates an Engine. A nil strategy list means DefaultStrategies.
func NewEngine(extractor Extractor, strategies []Strategy) *Engine {
	if strategies == nil {
		strategies = DefaultStrategies
	}
	return &Engine{
		extractor:  extractor,
		strategies: strategies,
		log:        logging.ForComponent(logging.CompHighlight),
	}
}

// Fetch downloads and extracts the raw text of file. ok is false when no
// content could be obtained. Only unauthorized provider errors and context
// cancellation are returned; every other failure means "no content".
// Fetch holds no state and may run concurrently.
func (e *Engine) Fetch(ctx context.Context, p adapter.FileSearchProvider, file model.FileRecord) (string, bool, error) {
	resolved := ExportMIMEType(file.MIMEType)
	if Skipped(resolved) {
		return "", false, nil
	}

	for _, s := range e.strategies {
		data, err := s.Fetch(ctx, p, file.ID, resolved)
		if err != nil {
			if adapter.IsUnauthorized(err) {
				return "", false, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", false, ctxErr
			}
			e.log.Debug("content strategy failed",
				zap.String("strategy", s.Name),
				zap.String("file_id", file.ID),
				zap.Error(err))
			continue
		}
		if len(data) == 0 {
			continue
		}

		text, err := e.extractor.Extract(data, resolved)
		if err != nil {
			e.log.Debug("content extraction failed",
				zap.String("file_id", file.ID),
				zap.String("mime_type", resolved),
				zap.Error(err))
			return "", false, nil
		}
		if strings.TrimSpace(text) == "" {
			return "", false, nil
		}
		return text, true, nil
	}
	return "", false, nil
}

// Apply sanitizes and highlights text fetched for file, numbering matches
// from start. It returns the updated record and the new global total.
// Calls for one search must be made sequentially in file order.
func (e *Engine) Apply(file model.FileRecord, text string, ok bool, term, searchID string, start int) (model.FileRecord, int) {
	if !ok {
		file.Content = model.NoContentText
		file.ContentStatus = model.ContentUnavailable
		file.Range = &model.Range{Min: start, Max: start - 1}
		return file, start - 1
	}

	clean := Sanitize(text)
	res, err := Highlight(clean, term, searchID, start)
	if err != nil {
		e.log.Warn("highlight failed", zap.String("file_id", file.ID), zap.Error(err))
	}
	file.Content = res.Text
	file.ContentStatus = model.ContentReady
	rng := res.Range
	file.Range = &rng
	return file, res.Total
}

// FetchAndHighlight fetches file and highlights it in one step.
func (e *Engine) FetchAndHighlight(ctx context.Context, p adapter.FileSearchProvider, file model.FileRecord, term, searchID string, start int) (model.FileRecord, int, error) {
	text, ok, err := e.Fetch(ctx, p, file)
	if err != nil {
		return file, start - 1, err
	}
	updated, total := e.Apply(file, text, ok, term, searchID, start)
	return updated, total, nil
}
