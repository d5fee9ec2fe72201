package model

import (
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
)

// DefaultFilename is used when neither Content-Disposition nor the URL yields a name
const DefaultFilename = "download.zip"

// zipMediaTypes are accepted when strict content type matching is enabled
var zipMediaTypes = map[string]struct{}{
	"application/zip":              {},
	"application/x-zip":            {},
	"application/x-zip-compressed": {},
	"application/zip-compressed":   {},
}

// HTTPResponse is the part of an HTTP response consumed by the fetcher
type HTTPResponse struct {
	StatusCode         int
	ContentType        string
	ContentDisposition string
	URL                *url.URL // Final URL after redirects
	Body               io.ReadCloser
}

// IsZip reports whether the response declares a ZIP archive.
//
// In permissive mode any Content-Type containing "zip" (case-insensitive) is
// accepted, so "application/x-zip-foo" passes as well. In strict mode the
// media type, stripped of parameters, must be one of the known ZIP types.
// A missing header never matches.
func (r *HTTPResponse) IsZip(strict bool) bool {
	return IsZipContentType(r.ContentType, strict)
}

// Filename derives the archive filename from Content-Disposition, falling back to the final URL
func (r *HTTPResponse) Filename() string {
	if name, ok := FilenameFromContentDisposition(r.ContentDisposition); ok {
		return name
	}
	return FilenameFromURL(r.URL)
}

// IsZipContentType applies the content type check to a raw header value
func IsZipContentType(contentType string, strict bool) bool {
	if !strict {
		return strings.Contains(strings.ToLower(contentType), "zip")
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := zipMediaTypes[mediaType]
	return ok
}

// FilenameFromContentDisposition extracts the value following the last
// "filename=" in the header. Parsing rules:
//   - an empty header, or one without "filename=", yields ok=false
//   - with several "filename=" occurrences the last one wins
//   - the value ends at the next ';'
//   - surrounding whitespace is trimmed and one layer of double quotes stripped
//   - directory components are dropped so the name cannot leave the output directory
//
// The "filename=" match is case-sensitive. "filename*=" (RFC 5987) is not a match.
func FilenameFromContentDisposition(header string) (string, bool) {
	const key = "filename="

	idx := strings.LastIndex(header, key)
	if idx < 0 {
		return "", false
	}

	value := header[idx+len(key):]
	if end := strings.IndexByte(value, ';'); end >= 0 {
		value = value[:end]
	}
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, `"`)
	value = strings.TrimSuffix(value, `"`)

	name := baseName(value)
	if name == "" {
		return "", false
	}
	return name, true
}

// FilenameFromURL returns the last path segment of u, or DefaultFilename when there is none.
// Query and fragment are never part of the name.
func FilenameFromURL(u *url.URL) string {
	if u == nil {
		return DefaultFilename
	}

	segment := u.Path
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	if name := baseName(segment); name != "" {
		return name
	}
	return DefaultFilename
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}
