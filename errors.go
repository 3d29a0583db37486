package docstamp

import (
	"errors"
	"fmt"
)

// Sentinel errors usable with errors.Is against the typed errors below.
var (
	ErrMissingAsset      = errors.New("missing asset")
	ErrInvalidTemplate   = errors.New("invalid template")
	ErrConversion        = errors.New("conversion failed")
	ErrConversionTimeout = errors.New("conversion timed out")
	ErrPathTraversal     = errors.New("path traversal")
)

// MissingAssetError reports a required input file (the QR image) that does
// not exist. It aborts the whole pipeline before any document is opened.
type MissingAssetError struct {
	Asset string // "qr"
	Path  string
	Err   error
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("missing %s asset %q: %v", e.Asset, e.Path, e.Err)
}

func (e *MissingAssetError) Unwrap() error { return e.Err }

// Is reports ErrMissingAsset as a match.
func (e *MissingAssetError) Is(target error) bool { return target == ErrMissingAsset }

// InvalidTemplateError reports a template that is not a readable .docx
// file. It is reported per template and does not abort a batch.
type InvalidTemplateError struct {
	Template string
	Reason   string
	Err      error
}

func (e *InvalidTemplateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid template %q: %s: %v", e.Template, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid template %q: %s", e.Template, e.Reason)
}

func (e *InvalidTemplateError) Unwrap() error { return e.Err }

// Is reports ErrInvalidTemplate as a match.
func (e *InvalidTemplateError) Is(target error) bool { return target == ErrInvalidTemplate }

// ConversionError reports a failed run of the external fixed-format
// converter: a non-zero exit, a failure to start, or a missing output file.
type ConversionError struct {
	Input    string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("converting %q failed (exit code %d)", e.Input, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Is reports ErrConversion as a match.
func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

// ConversionTimeoutError reports a converter run that exceeded its
// deadline and was killed.
type ConversionTimeoutError struct {
	Input   string
	Timeout string
	Stderr  string
}

func (e *ConversionTimeoutError) Error() string {
	return fmt.Sprintf("converting %q timed out after %s", e.Input, e.Timeout)
}

// Is reports ErrConversionTimeout as a match.
func (e *ConversionTimeoutError) Is(target error) bool { return target == ErrConversionTimeout }

// PathTraversalError reports a download identifier that tries to escape
// the output root.
type PathTraversalError struct {
	Identifier string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("rejected identifier %q: path traversal", e.Identifier)
}

// Is reports ErrPathTraversal as a match.
func (e *PathTraversalError) Is(target error) bool { return target == ErrPathTraversal }
