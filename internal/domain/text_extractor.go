package domain

// TextExtractor turns an uploaded or local file into plain text.
type TextExtractor interface {
	// Extract returns ErrUnsupportedDocument for file types it cannot read.
	Extract(filename string, content []byte) (string, error)
}
