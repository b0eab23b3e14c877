package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"csvlookup/internal/config"
	"csvlookup/internal/importer"
	"csvlookup/internal/logging"
	"csvlookup/internal/manifest"
	"csvlookup/internal/spl"
	"csvlookup/internal/splunk"
)

// Exit codes identify the failing pipeline stage so a scheduler can
// react without parsing output.
const (
	exitOK       = 0
	exitOther    = 1
	exitInput    = 2
	exitGenerate = 3
	exitBackup   = 4
	exitPublish  = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	sourceFile := flag.String("source_file", "", "path to the source CSV file")
	targetLookup := flag.String("target_lookup_name", "", "name of the target lookup, must end in .csv")
	manifestPath := flag.String("manifest", "", "YAML manifest running several imports in one invocation")
	dryRun := flag.Bool("dry-run", false, "print the generated SPL without contacting Splunk")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return exitOther
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	imports, err := resolveImports(*sourceFile, *targetLookup, *manifestPath)
	if err != nil {
		slog.Error("invalid invocation", "error", err)
		fmt.Fprintln(os.Stderr, importer.FormatUserError(err))
		return exitInput
	}

	var runner importer.SearchRunner
	if !*dryRun {
		if err := cfg.ValidateConnection(); err != nil {
			slog.Error("incomplete splunk configuration", "error", err)
			return exitOther
		}
		runner = splunk.New(splunk.Config{
			Scheme:             cfg.Splunk.Scheme,
			Host:               cfg.Splunk.Host,
			Port:               cfg.Splunk.Port,
			Token:              cfg.Splunk.Token,
			Username:           cfg.Splunk.Username,
			Password:           cfg.Splunk.Password,
			InsecureSkipVerify: cfg.Splunk.InsecureSkipVerify,
			RequestTimeout:     cfg.Search.RequestTimeout,
			PollInterval:       cfg.Search.PollInterval,
			WaitTimeout:        cfg.Search.WaitTimeout,
		})
	}

	for _, entry := range imports {
		if code := runImport(cfg, runner, entry, *dryRun); code != exitOK {
			return code
		}
	}
	return exitOK
}

// resolveImports turns the flag combination into the list of imports to
// run: either the single source/target pair or the manifest entries.
func resolveImports(sourceFile, targetLookup, manifestPath string) ([]manifest.Import, error) {
	if manifestPath != "" {
		if sourceFile != "" || targetLookup != "" {
			return nil, fmt.Errorf("-manifest cannot be combined with -source_file/-target_lookup_name")
		}
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return nil, err
		}
		return m.Imports, nil
	}

	if sourceFile == "" || targetLookup == "" {
		return nil, fmt.Errorf("both -source_file and -target_lookup_name are required")
	}
	return []manifest.Import{{SourceFile: sourceFile, TargetLookup: targetLookup}}, nil
}

func runImport(cfg *config.Config, runner importer.SearchRunner, entry manifest.Import, dryRun bool) int {
	ctx, _ := logging.WithRunID(context.Background())
	log := logging.WithFields(ctx, "source", entry.SourceFile, "lookup", entry.TargetLookup)

	delimiter := cfg.Generator.Delimiter
	if entry.Delimiter != "" {
		delimiter = entry.Delimiter
	}
	chunkSize := cfg.Generator.ChunkSize
	if entry.ChunkSize > 0 {
		chunkSize = entry.ChunkSize
	}

	gen, err := spl.NewGenerator(delimiter, chunkSize)
	if err != nil {
		log.Error("invalid generator settings", "error", err)
		fmt.Fprintln(os.Stderr, importer.FormatUserError(err))
		return exitOther
	}

	imp := importer.New(runner, gen)

	if dryRun {
		statements, err := imp.Preview(entry.SourceFile, entry.TargetLookup)
		if err != nil {
			return fail(log, err)
		}
		for i, s := range statements {
			fmt.Printf("-- statement %d --\n%s\n", i, s)
		}
		log.Info("dry run complete", "statements", len(statements))
		return exitOK
	}

	report, err := imp.Run(ctx, entry.SourceFile, entry.TargetLookup)
	if err != nil {
		return fail(log, err)
	}

	log.Info("import complete",
		"rows", report.Rows,
		"statements", report.Statements,
		"backup", report.BackupName,
		"verified_count", report.VerifiedCount,
	)
	return exitOK
}

// fail logs the technical error, prints the operator-facing message and
// maps the pipeline stage to an exit code.
func fail(log *slog.Logger, err error) int {
	log.Error("import failed",
		"stage", string(importer.StageOf(err)),
		"error", err,
		"payload", importer.PayloadOf(err),
	)
	fmt.Fprintln(os.Stderr, importer.FormatUserError(err))

	switch importer.StageOf(err) {
	case importer.StageInput:
		return exitInput
	case importer.StageGenerate:
		return exitGenerate
	case importer.StageBackup:
		return exitBackup
	case importer.StagePublish:
		return exitPublish
	default:
		return exitOther
	}
}
