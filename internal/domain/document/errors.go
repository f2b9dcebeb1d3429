package document

import "errors"

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrPermissionDenied = errors.New("document belongs to another owner")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidCursor    = errors.New("invalid cursor")
)
