package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a file or group failed to upload.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindParse is a structural read failure (malformed CSV, header/column mismatch).
	KindParse
	// KindVocabulary means no recognized measurement columns were found.
	KindVocabulary
	// KindValidation covers oversized flags, ambiguous group keys and missing required fields.
	KindValidation
	// KindMismatch is a profile header that disagrees with its site details.
	KindMismatch
	// KindFormat is an unparseable value token such as an unknown aspect.
	KindFormat
	// KindConfig is an invalid options contract.
	KindConfig
	// KindStorage is a failure at the database or raster storage boundary.
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindVocabulary:
		return "vocabulary"
	case KindValidation:
		return "validation"
	case KindMismatch:
		return "mismatch"
	case KindFormat:
		return "format"
	case KindConfig:
		return "config"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error carries an ErrorKind alongside the underlying cause.
type Error struct {
	Kind ErrorKind
	File string
	Err  error
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind. A nil err yields nil.
func NewError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Errorf formats a new error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WithFile attaches a filename to err, keeping any kind already present.
func WithFile(err error, file string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		if de.File == "" {
			return &Error{Kind: de.Kind, File: file, Err: de.Err}
		}
		return err
	}
	return &Error{Kind: KindUnknown, File: file, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

var (
	ErrNoDataNames = errors.New("unable to determine data names from header/columns")
	ErrNoGeoInfo   = errors.New("no geographic information was provided in the file header or via options")
	ErrNoEPSG      = errors.New("EPSG was not determined from the header nor was it provided as an option")
	ErrFlagsLength = errors.New("flag column is too long")
)
