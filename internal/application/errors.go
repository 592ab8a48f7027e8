package application

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the ingest failure taxonomy
var (
	ErrNotFound           = errors.New("not found")
	ErrSourceDefect       = errors.New("source defect")
	ErrIntegrityViolation = errors.New("integrity violation")
	ErrOversizeGroup      = errors.New("oversize group")
	ErrArtifactWrite      = errors.New("artifact write failure")
	ErrTransaction        = errors.New("transaction failure")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SourceDefectError reports unusable input on the source disk
type SourceDefectError struct {
	Path   string
	Reason string
}

func (e *SourceDefectError) Error() string {
	return fmt.Sprintf("source defect in %s: %s", e.Path, e.Reason)
}

func (e *SourceDefectError) Is(target error) bool {
	return target == ErrSourceDefect
}

// IntegrityError reports a contradiction in the data that makes the run unsafe
type IntegrityError struct {
	Entity string
	Key    string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s %s: %s", e.Entity, e.Key, e.Reason)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

// TransactionError reports a failed commit. OrphanTracks lists tracks whose
// owning group is missing from the final group set.
type TransactionError struct {
	Op           string
	OrphanTracks []string
	Err          error
}

func (e *TransactionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "transaction failed during %s", e.Op)
	if len(e.OrphanTracks) > 0 {
		fmt.Fprintf(&sb, " (orphan tracks: %s)", strings.Join(e.OrphanTracks, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *TransactionError) Is(target error) bool {
	return target == ErrTransaction
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
