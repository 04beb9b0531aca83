// Package materializer turns message part descriptions into files the engine can send.
//
// File-backed parts are referenced in place: file:// URIs are reduced to local
// paths and a missing content type is detected from the file contents. Text
// parts are written as UTF-8 into the send workspace, named after their
// content id, with a suffix matching their content type when one is known.
package materializer

import (
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/light-bringer/commhistory-mms/internal/app/mms/domain"
)

const (
	defaultTextType = "text/plain"
	utf8Charset     = ";charset=utf-8"
	filePerm        = 0o600
)

// Materializer writes and resolves message parts.
type Materializer struct {
	openFile func(name string) (io.WriteCloser, error)
}

// New creates a Materializer writing to the local filesystem.
func New() *Materializer {
	return &Materializer{openFile: createFile}
}

func createFile(name string) (io.WriteCloser, error) {
	return os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
}

// Materialize resolves spec into a file. Text parts are written below dir.
func (m *Materializer) Materialize(dir string, spec domain.PartSpec) (domain.MaterializedPart, error) {
	if err := spec.Validate(); err != nil {
		return domain.MaterializedPart{}, fmt.Errorf("part %q: %w", spec.ContentID, err)
	}

	switch src := spec.Source.(type) {
	case domain.FilePath:
		return m.fromFile(spec, string(src))
	case domain.InlineText:
		return m.fromText(dir, spec, string(src))
	default:
		return domain.MaterializedPart{}, fmt.Errorf("part %q: %w", spec.ContentID, domain.ErrMissingContentSource)
	}
}

func (m *Materializer) fromFile(spec domain.PartSpec, source string) (domain.MaterializedPart, error) {
	path := LocalPath(source)

	info, err := os.Stat(path)
	if err != nil {
		return domain.MaterializedPart{}, fmt.Errorf("part %q: %w", spec.ContentID, err)
	}
	if info.IsDir() {
		return domain.MaterializedPart{}, fmt.Errorf("part %q: %s is a directory: %w", spec.ContentID, path, domain.ErrMissingContentSource)
	}

	contentType := spec.ContentType
	if contentType == "" {
		detected, err := mimetype.DetectFile(path)
		if err != nil {
			return domain.MaterializedPart{}, fmt.Errorf("part %q: detect content type: %w", spec.ContentID, err)
		}
		contentType = detected.String()
	}
	if contentType == "" {
		return domain.MaterializedPart{}, fmt.Errorf("part %q: %w", spec.ContentID, domain.ErrUnknownContentType)
	}

	return domain.MaterializedPart{
		FileName:    path,
		ContentType: contentType,
		ContentID:   spec.ContentID,
	}, nil
}

func (m *Materializer) fromText(dir string, spec domain.PartSpec, text string) (domain.MaterializedPart, error) {
	contentType := spec.ContentType
	if contentType == "" {
		contentType = defaultTextType
	}
	baseType := BaseType(contentType)

	suffixes := Suffixes(baseType)

	name := filepath.Join(dir, safeFileName(spec.ContentID))
	if len(suffixes) > 0 && !hasAnySuffix(name, suffixes) {
		name += suffixes[0]
	}

	data := []byte(strings.ToValidUTF8(text, "�"))
	if err := m.write(name, data); err != nil {
		return domain.MaterializedPart{}, fmt.Errorf("part %q: %w", spec.ContentID, err)
	}

	return domain.MaterializedPart{
		FileName:    name,
		ContentType: baseType + utf8Charset,
		ContentID:   spec.ContentID,
	}, nil
}

func (m *Materializer) write(name string, data []byte) error {
	f, err := m.openFile(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	n, err := f.Write(data)
	closeErr := f.Close()
	if n < len(data) {
		return fmt.Errorf("wrote %d of %d bytes to %s: %w", n, len(data), name, domain.ErrShortWrite)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", name, closeErr)
	}
	return nil
}

// LocalPath turns a file:// URI into a local path. Anything else is returned unchanged.
func LocalPath(source string) string {
	if !strings.HasPrefix(strings.ToLower(source), "file:") {
		return source
	}

	u, err := url.Parse(source)
	if err != nil {
		return strings.TrimPrefix(source[len("file:"):], "//")
	}
	if u.Path != "" {
		return u.Path
	}
	return u.Opaque
}

// BaseType strips parameters from a content type and lowercases it.
// Some mime databases reject canonical names with the wrong case.
func BaseType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// Suffixes lists the filename suffixes recognized for baseType, preferred one first.
// An unknown type has none.
func Suffixes(baseType string) []string {
	var suffixes []string

	if mt := mimetype.Lookup(baseType); mt != nil {
		if ext := mt.Extension(); ext != "" {
			suffixes = append(suffixes, ext)
		}
	}

	exts, err := mime.ExtensionsByType(baseType)
	if err == nil {
		for _, ext := range exts {
			if !slices.Contains(suffixes, ext) {
				suffixes = append(suffixes, ext)
			}
		}
	}

	return suffixes
}

func hasAnySuffix(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// safeFileName keeps a content id from escaping the workspace.
func safeFileName(contentID string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, contentID)

	if name == "." || name == ".." {
		return "_"
	}
	return name
}
