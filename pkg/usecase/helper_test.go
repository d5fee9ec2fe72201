package usecase_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
)

type zipEntry struct {
	Name    string
	Content string
}

// createTestZip creates a ZIP archive in memory, keeping entry order
func createTestZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	for _, entry := range entries {
		writer, err := zipWriter.Create(entry.Name)
		gt.NoError(t, err)

		_, err = writer.Write([]byte(entry.Content))
		gt.NoError(t, err)
	}

	gt.NoError(t, zipWriter.Close())
	return buf.Bytes()
}

// writeTestZip writes a ZIP archive to dir/name and returns its path
func writeTestZip(t *testing.T, dir, name string, entries ...zipEntry) string {
	t.Helper()

	path := filepath.Join(dir, name)
	gt.NoError(t, os.WriteFile(path, createTestZip(t, entries...), 0644))
	return path
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	gt.NoError(t, err)
	return true
}
