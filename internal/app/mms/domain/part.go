package domain

// PartSource is where the content of a message part comes from.
// It is either a FilePath or an InlineText.
type PartSource interface {
	isPartSource()
}

// FilePath references an existing file, as a plain path or a file:// URI.
type FilePath string

// InlineText is literal text that gets written to a file before sending.
type InlineText string

func (FilePath) isPartSource()   {}
func (InlineText) isPartSource() {}

// PartSpec describes one part of an outgoing multimedia message.
type PartSpec struct {
	ContentID   string
	ContentType string // optional, inferred when empty
	Source      PartSource
}

// FilePart builds a PartSpec backed by a file.
func FilePart(contentID, contentType, path string) PartSpec {
	return PartSpec{ContentID: contentID, ContentType: contentType, Source: FilePath(path)}
}

// TextPart builds a PartSpec backed by inline text.
func TextPart(contentID, contentType, text string) PartSpec {
	return PartSpec{ContentID: contentID, ContentType: contentType, Source: InlineText(text)}
}

// Validate checks the invariants that do not need the filesystem.
func (p PartSpec) Validate() error {
	if p.ContentID == "" {
		return ErrMissingContentID
	}

	switch src := p.Source.(type) {
	case FilePath:
		if src == "" {
			return ErrMissingContentSource
		}
	case InlineText:
		if src == "" {
			return ErrMissingContentSource
		}
	default:
		return ErrMissingContentSource
	}
	return nil
}

// MaterializedPart is a message part that exists on disk and can be handed to the engine.
type MaterializedPart struct {
	FileName    string
	ContentType string
	ContentID   string
}
