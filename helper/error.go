package helper

import (
	"errors"
	"fmt"
)

// NewError wraps err with the step that failed.
func NewError(step string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", step, err)
}

// ErrorKind classifies a fatal merge failure.
type ErrorKind string

const (
	KindInvalidSpan                 ErrorKind = "InvalidSpan"
	KindMissingAnnotation           ErrorKind = "MissingAnnotation"
	KindLeafCountMismatch           ErrorKind = "LeafCountMismatch"
	KindMixedTokenizationBranch     ErrorKind = "MixedTokenizationBranch"
	KindOffsetReconciliationFailure ErrorKind = "OffsetReconciliationFailure"
	KindOutOfRangeSentence          ErrorKind = "OutOfRangeSentence"
	KindInvalidMention              ErrorKind = "InvalidMention"
	KindSubsetViolation             ErrorKind = "SubsetViolation"
)

// Sentinels for errors.Is. Matching compares kinds only.
var (
	ErrInvalidSpan                 = &MergeError{Kind: KindInvalidSpan}
	ErrMissingAnnotation           = &MergeError{Kind: KindMissingAnnotation}
	ErrLeafCountMismatch           = &MergeError{Kind: KindLeafCountMismatch}
	ErrMixedTokenizationBranch     = &MergeError{Kind: KindMixedTokenizationBranch}
	ErrOffsetReconciliationFailure = &MergeError{Kind: KindOffsetReconciliationFailure}
	ErrOutOfRangeSentence          = &MergeError{Kind: KindOutOfRangeSentence}
	ErrInvalidMention              = &MergeError{Kind: KindInvalidMention}
	ErrSubsetViolation             = &MergeError{Kind: KindSubsetViolation}
)

// MergeError is returned for every fatal condition of a document merge.
type MergeError struct {
	Kind       ErrorKind
	DocumentID string
	Err        error
}

// NewMergeError creates a MergeError of the given kind with a formatted cause.
func NewMergeError(kind ErrorKind, format string, args ...interface{}) *MergeError {
	return &MergeError{
		Kind: kind,
		Err:  fmt.Errorf(format, args...),
	}
}

func (e *MergeError) Error() string {
	msg := string(e.Kind)
	if e.DocumentID != "" {
		msg = fmt.Sprintf("%s (document %s)", msg, e.DocumentID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a MergeError of the same kind.
func (e *MergeError) Is(target error) bool {
	t, ok := target.(*MergeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first MergeError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var mergeErr *MergeError
	if errors.As(err, &mergeErr) {
		return mergeErr.Kind, true
	}
	return "", false
}

// WithDocument stamps the document id onto the MergeError in err's chain.
// Errors that are not MergeErrors are returned unchanged.
func WithDocument(err error, documentID string) error {
	var mergeErr *MergeError
	if errors.As(err, &mergeErr) && mergeErr.DocumentID == "" && !isSentinel(mergeErr) {
		mergeErr.DocumentID = documentID
	}
	return err
}

func isSentinel(e *MergeError) bool {
	switch e {
	case ErrInvalidSpan, ErrMissingAnnotation, ErrLeafCountMismatch, ErrMixedTokenizationBranch,
		ErrOffsetReconciliationFailure, ErrOutOfRangeSentence, ErrInvalidMention, ErrSubsetViolation:
		return true
	}
	return false
}
