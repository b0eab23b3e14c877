package importer

import (
	"errors"
	"fmt"
)

// Stage identifies which pipeline phase an error belongs to. The CLI
// maps stages to exit codes so a scheduler can tell a bad input file
// from a remote failure without parsing log output.
type Stage string

const (
	StageInput    Stage = "input"
	StageGenerate Stage = "generate"
	StageBackup   Stage = "backup"
	StagePublish  Stage = "publish"
)

// ErrConflict marks a run aborted because an existing lookup could not
// be backed up. When this error surfaces, nothing was published: the
// original lookup is untouched.
var ErrConflict = errors.New("existing lookup could not be backed up")

// StageError wraps a failure with the stage it occurred in, the index
// of the failing statement when one applies, and the remote error
// payload when the failure came back from splunkd.
type StageError struct {
	Stage          Stage
	StatementIndex int    // 0-based; -1 when no statement is involved
	Payload        string // raw remote error payload, "" when local
	Err            error
}

func (e *StageError) Error() string {
	if e.StatementIndex >= 0 {
		return fmt.Sprintf("%s stage failed at statement %d: %v", e.Stage, e.StatementIndex, e.Err)
	}
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf extracts the pipeline stage from err, or "" when err did not
// originate in a pipeline stage.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// PayloadOf extracts the remote error payload from err, or "".
func PayloadOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Payload
	}
	return ""
}
