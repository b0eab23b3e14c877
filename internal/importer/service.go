// Package importer orchestrates the import pipeline: read the source
// CSV, generate the SPL statements, back up any existing lookup, then
// publish. Stages run strictly in sequence and fail fast; a completed
// remote effect (such as a finished backup) is never rolled back.
//
// The execution capability is injected as a SearchRunner so the whole
// pipeline can be exercised against a fake without a Splunk instance.
package importer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"csvlookup/internal/csv"
	"csvlookup/internal/logging"
	"csvlookup/internal/spl"
	"csvlookup/internal/splunk"
)

// SearchRunner is the execute-SPL capability the pipeline consumes:
// dispatch one statement, then block until its result or error.
// *splunk.Client satisfies it.
type SearchRunner interface {
	Submit(ctx context.Context, spl string) (splunk.JobHandle, error)
	Await(ctx context.Context, h splunk.JobHandle) (*splunk.JobResult, error)
}

// Importer runs the import pipeline against one Splunk instance.
// Not safe for concurrent Run calls; one invocation drives one import
// at a time, which also keeps the backup timestamps strictly ordered.
type Importer struct {
	runner SearchRunner
	gen    *spl.Generator

	now       func() time.Time
	lastStamp string
}

// Option customizes an Importer.
type Option func(*Importer)

// WithClock replaces the timestamp source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(imp *Importer) { imp.now = now }
}

// New builds an Importer on top of the given execution capability.
func New(runner SearchRunner, gen *spl.Generator, opts ...Option) *Importer {
	imp := &Importer{
		runner: runner,
		gen:    gen,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Report summarizes a completed import.
type Report struct {
	Lookup     string
	Rows       int
	Statements int
	BackupName string   // "" when no prior lookup existed
	SIDs       []string // search job IDs of the publish statements
	// VerifiedCount is the row count read back after publish,
	// -1 when verification could not run.
	VerifiedCount int
}

// Run executes the full pipeline for one source file and target lookup.
// On failure the returned error is a *StageError identifying the stage,
// and no later stage has run.
func (imp *Importer) Run(ctx context.Context, sourceFile, lookup string) (*Report, error) {
	log := logging.WithFields(ctx, "lookup", lookup, "source", sourceFile)

	if err := spl.ValidateLookupName(lookup); err != nil {
		return nil, &StageError{Stage: StageInput, StatementIndex: -1, Err: err}
	}

	ds, err := csv.Read(sourceFile)
	if err != nil {
		return nil, &StageError{Stage: StageInput, StatementIndex: -1, Err: err}
	}
	log.Info("source file read", "columns", len(ds.Header), "rows", ds.Len())

	statements, err := imp.gen.Generate(spl.Dataset{Header: ds.Header, Rows: ds.Rows}, lookup)
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, StatementIndex: -1, Err: err}
	}
	log.Info("spl generated", "statements", len(statements), "delimiter", imp.gen.Delimiter())

	backupName, err := imp.backupIfExists(ctx, lookup)
	if err != nil {
		return nil, err
	}

	sids, err := imp.execute(ctx, statements)
	if err != nil {
		return nil, err
	}
	log.Info("lookup published", "statements", len(statements))

	report := &Report{
		Lookup:        lookup,
		Rows:          ds.Len(),
		Statements:    len(statements),
		BackupName:    backupName,
		SIDs:          sids,
		VerifiedCount: imp.verify(ctx, lookup, ds.Len()),
	}
	return report, nil
}

// Preview reads the source file and returns the statements that Run
// would publish, without touching the network. Used by dry runs.
func (imp *Importer) Preview(sourceFile, lookup string) ([]string, error) {
	if err := spl.ValidateLookupName(lookup); err != nil {
		return nil, &StageError{Stage: StageInput, StatementIndex: -1, Err: err}
	}
	ds, err := csv.Read(sourceFile)
	if err != nil {
		return nil, &StageError{Stage: StageInput, StatementIndex: -1, Err: err}
	}
	statements, err := imp.gen.Generate(spl.Dataset{Header: ds.Header, Rows: ds.Rows}, lookup)
	if err != nil {
		return nil, &StageError{Stage: StageGenerate, StatementIndex: -1, Err: err}
	}
	return statements, nil
}

// runSearch is the synchronous submit+await primitive the orchestration
// steps are built on.
func (imp *Importer) runSearch(ctx context.Context, statement string) (*splunk.JobResult, error) {
	h, err := imp.runner.Submit(ctx, statement)
	if err != nil {
		return nil, err
	}
	return imp.runner.Await(ctx, h)
}

// verify reads back the published row count and logs a warning on
// mismatch. Verification never fails the run: the publish statements
// already succeeded, and a count mismatch is a signal for the operator,
// not a reason to report the import as failed.
func (imp *Importer) verify(ctx context.Context, lookup string, want int) int {
	log := logging.FromContext(ctx)

	res, err := imp.runSearch(ctx, spl.RowCountQuery(lookup))
	if err != nil {
		log.Warn("row count verification failed", "lookup", lookup, "error", err)
		return -1
	}

	got, err := strconv.Atoi(res.FirstString("count"))
	if err != nil {
		log.Warn("row count verification returned no count", "lookup", lookup)
		return -1
	}

	if got != want {
		log.Warn("published row count differs from source",
			"lookup", lookup, "published", got, "source", want)
	} else {
		log.Info("row count verified", "lookup", lookup, "rows", got)
	}
	return got
}

// payloadOf extracts the remote error payload from a runner error.
func payloadOf(err error) string {
	var apiErr *splunk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Payload
	}
	var jobErr *splunk.JobFailedError
	if errors.As(err, &jobErr) {
		texts := make([]string, len(jobErr.Messages))
		for i, m := range jobErr.Messages {
			texts[i] = m.Text
		}
		return strings.Join(texts, "; ")
	}
	return ""
}
