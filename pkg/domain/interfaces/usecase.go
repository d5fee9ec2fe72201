package interfaces

import (
	"context"

	"github.com/m-mizutani/csvpull/pkg/domain/model"
)

// Fetcher downloads a ZIP archive for a target and hands it to an Extractor
type Fetcher interface {
	// Fetch runs download, save and extraction in sequence on the calling goroutine
	Fetch(ctx context.Context, target model.Target) (*model.FetchResult, error)
}

// Extractor extracts CSV entries from a saved archive
type Extractor interface {
	// Extract writes matching entries into req.OutputDir and removes the archive
	Extract(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractResult, error)
}
