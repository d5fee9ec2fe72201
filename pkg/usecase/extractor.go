package usecase

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/csvpull/pkg/domain/interfaces"
	"github.com/m-mizutani/csvpull/pkg/domain/model"
	"github.com/m-mizutani/csvpull/pkg/domain/types"
	"github.com/m-mizutani/csvpull/pkg/utils/logging"
)

const (
	csvSuffix      = ".csv"
	macOSXMetadata = "__MACOSX"
)

type extractor struct {
	alwaysRemove bool
}

// ExtractorOption is a functional option for the extractor
type ExtractorOption func(*extractor)

// WithAlwaysRemoveArchive removes the archive even when no entry matched.
// By default an archive without CSV entries is left on disk.
func WithAlwaysRemoveArchive(enabled bool) ExtractorOption {
	return func(e *extractor) {
		e.alwaysRemove = enabled
	}
}

// NewExtractor creates a new Extractor that pulls CSV entries out of ZIP archives
func NewExtractor(opts ...ExtractorOption) interfaces.Extractor {
	e := &extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsCSVEntry reports whether an archive entry is extracted: its name ends with
// ".csv" and its path does not contain "__MACOSX".
func IsCSVEntry(name string) bool {
	return strings.HasSuffix(name, csvSuffix) && !strings.Contains(name, macOSXMetadata)
}

// Extract extracts CSV entries of req.ArchivePath into req.OutputDir and removes the archive.
// Entries already written stay on disk if a later entry fails.
func (e *extractor) Extract(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractResult, error) {
	logger := logging.From(ctx)

	result, err := e.extractArchive(ctx, req)
	if err != nil {
		return nil, err
	}

	if result.Count() == 0 {
		logger.Info("No CSV files found in the ZIP archive", "archive", req.ArchivePath)
		if !e.alwaysRemove {
			return result, nil
		}
	}

	if err := os.Remove(req.ArchivePath); err != nil {
		return nil, goerr.Wrap(err, "failed to remove archive",
			goerr.V("archive", req.ArchivePath),
			goerr.T(types.ErrTagFilesystem))
	}
	result.ArchiveRemoved = true

	logger.Debug("Removed archive", "archive", req.ArchivePath)
	return result, nil
}

// extractArchive writes matching entries and closes the archive before returning,
// so the file can be removed afterwards on every platform.
func (e *extractor) extractArchive(ctx context.Context, req *model.ExtractionRequest) (*model.ExtractResult, error) {
	logger := logging.From(ctx)

	zipReader, err := zip.OpenReader(req.ArchivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		// The reader is still usable; unsafe names are sanitized per entry below
		err = nil
	}
	if err != nil {
		if zipReader != nil {
			_ = zipReader.Close()
		}
		return nil, goerr.Wrap(err, "failed to open zip archive",
			goerr.V("archive", req.ArchivePath),
			goerr.T(types.ErrTagArchiveCorrupt))
	}
	defer zipReader.Close()

	result := &model.ExtractResult{
		ArchivePath: req.ArchivePath,
	}

	for _, file := range zipReader.File {
		if !IsCSVEntry(file.Name) {
			continue
		}

		name := sanitizeEntryName(file.Name)
		if name == "" {
			logger.Warn("Skipped entry without a usable name", "entry", file.Name)
			continue
		}
		if name != file.Name {
			logger.Warn("Sanitized unsafe entry name", "entry", file.Name, "name", name)
		}

		if err := extractFile(file, name, req.OutputDir); err != nil {
			return nil, err
		}

		result.Files = append(result.Files, name)
		logger.Info("Successfully extracted file", "entry", name, "output_dir", req.OutputDir)
	}

	return result, nil
}

// sanitizeEntryName turns an entry name into a relative path below the
// output directory. Absolute prefixes, drive letters, "." and ".." elements
// are dropped, so "../evil.csv" becomes "evil.csv". An empty result means the
// entry has no usable name.
func sanitizeEntryName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if len(name) >= 2 && name[1] == ':' {
		name = name[2:]
	}

	parts := make([]string, 0, strings.Count(name, "/")+1)
	for _, part := range strings.Split(name, "/") {
		switch part {
		case "", ".", "..":
			continue
		}
		parts = append(parts, part)
	}

	clean := filepath.Join(parts...)
	if !filepath.IsLocal(clean) {
		return ""
	}
	return clean
}

// extractFile writes a single entry to name below destDir. name must already be sanitized.
func extractFile(file *zip.File, name, destDir string) error {
	destPath := filepath.Join(destDir, name)
	if !filepath.IsLocal(name) {
		return goerr.New("invalid file path detected",
			goerr.V("file", file.Name),
			goerr.V("dest", destPath),
			goerr.T(types.ErrTagArchiveCorrupt))
	}

	// Open file in ZIP
	rc, err := file.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open file in zip",
			goerr.V("file", file.Name),
			goerr.T(types.ErrTagArchiveCorrupt))
	}
	defer rc.Close()

	// Create parent directories
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories",
			goerr.V("dir", filepath.Dir(destPath)),
			goerr.T(types.ErrTagFilesystem))
	}

	// Create destination file
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file",
			goerr.V("path", destPath),
			goerr.T(types.ErrTagFilesystem))
	}
	defer destFile.Close()

	// Copy content; a checksum or decompression failure surfaces here
	if _, err := io.Copy(destFile, rc); err != nil {
		return goerr.Wrap(err, "failed to copy file content",
			goerr.V("path", destPath),
			goerr.T(types.ErrTagArchiveCorrupt))
	}

	if err := destFile.Close(); err != nil {
		return goerr.Wrap(err, "failed to close destination file",
			goerr.V("path", destPath),
			goerr.T(types.ErrTagFilesystem))
	}
	return nil
}
