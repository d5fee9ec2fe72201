package usecase

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/csvpull/pkg/domain/interfaces"
	"github.com/m-mizutani/csvpull/pkg/domain/model"
	"github.com/m-mizutani/csvpull/pkg/domain/types"
	"github.com/m-mizutani/csvpull/pkg/utils/logging"
)

type fetcher struct {
	httpClient        interfaces.HTTPClient
	extractor         interfaces.Extractor
	strictContentType bool
}

// FetcherOption is a functional option for the fetcher
type FetcherOption func(*fetcher)

// WithStrictContentType requires an exact ZIP media type instead of any
// Content-Type containing "zip"
func WithStrictContentType(enabled bool) FetcherOption {
	return func(f *fetcher) {
		f.strictContentType = enabled
	}
}

// NewFetcher creates a new Fetcher
func NewFetcher(httpClient interfaces.HTTPClient, extractor interfaces.Extractor, opts ...FetcherOption) interfaces.Fetcher {
	f := &fetcher{
		httpClient: httpClient,
		extractor:  extractor,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads target.URL into target.OutputDir and extracts its CSV entries.
// A non-200 status, a non-ZIP content type or an archive without CSV entries
// ends the fetch early with a nil error; FetchResult.Status tells which.
func (f *fetcher) Fetch(ctx context.Context, target model.Target) (*model.FetchResult, error) {
	result := &model.FetchResult{
		ID:     uuid.NewString(),
		Target: target,
	}
	logger := logging.From(ctx).With("fetch_id", result.ID)
	ctx = logging.With(ctx, logger)

	req, err := f.download(ctx, target, result)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return result, nil
	}

	extracted, err := f.extractor.Extract(ctx, req)
	if err != nil {
		return nil, err
	}

	result.Extract = extracted
	result.Status = model.FetchStatusExtracted
	if extracted.Count() == 0 {
		result.Status = model.FetchStatusNoMatchingEntries
	}

	return result, nil
}

// download saves the response body to disk. It returns a nil request when the
// response is rejected; result.Status is set accordingly.
func (f *fetcher) download(ctx context.Context, target model.Target, result *model.FetchResult) (*model.ExtractionRequest, error) {
	logger := logging.From(ctx)

	if err := os.MkdirAll(target.OutputDir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create output directory",
			goerr.V("output_dir", target.OutputDir),
			goerr.T(types.ErrTagFilesystem))
	}

	logger.Info("Downloading resource", "url", target.URL)

	resp, err := f.httpClient.Get(ctx, target.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.ContentType

	if resp.StatusCode != http.StatusOK {
		logger.Warn("An error occurred while retrieving resource",
			"url", target.URL,
			"status", resp.StatusCode,
		)
		result.Status = model.FetchStatusBadStatus
		return nil, nil
	}

	if !resp.IsZip(f.strictContentType) {
		logger.Warn("Resource is not a ZIP archive",
			"url", target.URL,
			"content_type", resp.ContentType,
		)
		result.Status = model.FetchStatusWrongContentType
		return nil, nil
	}

	filename := resp.Filename()
	archivePath := filepath.Join(target.OutputDir, filename)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body",
			goerr.V("url", target.URL),
			goerr.T(types.ErrTagNetwork))
	}

	if err := os.WriteFile(archivePath, data, 0644); err != nil {
		return nil, goerr.Wrap(err, "failed to save archive",
			goerr.V("path", archivePath),
			goerr.T(types.ErrTagFilesystem))
	}

	result.Filename = filename
	result.ArchivePath = archivePath

	logger.Info("Successfully saved archive",
		"file", filename,
		"output_dir", target.OutputDir,
		"size_bytes", len(data),
	)

	return &model.ExtractionRequest{
		ArchivePath: archivePath,
		OutputDir:   target.OutputDir,
	}, nil
}
