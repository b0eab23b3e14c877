package importer

import (
	"context"
	"fmt"
	"time"

	"csvlookup/internal/logging"
	"csvlookup/internal/spl"
)

// backupStampFormat gives second granularity, matching the lifetime of
// a full pipeline run. The collision guard in nextStamp covers repeated
// runs within the same second.
const backupStampFormat = "20060102150405"

// backupIfExists checks whether lookup already exists on the instance
// and, if so, copies it to a timestamp-suffixed backup name before
// anything overwrites it. Returns the backup name, or "" when the
// lookup did not exist.
//
// Any failure here aborts the pipeline before the first publish
// statement: an overwrite must never happen while the old content is
// still unsaved.
func (imp *Importer) backupIfExists(ctx context.Context, lookup string) (string, error) {
	log := logging.FromContext(ctx)

	res, err := imp.runSearch(ctx, spl.LookupExistsQuery(lookup))
	if err != nil {
		return "", &StageError{
			Stage:          StageBackup,
			StatementIndex: -1,
			Payload:        payloadOf(err),
			Err:            fmt.Errorf("checking whether lookup %q exists: %w", lookup, err),
		}
	}

	if len(res.Results) == 0 {
		log.Info("no existing lookup, skipping backup", "lookup", lookup)
		return "", nil
	}

	backup := lookup + "_" + imp.nextStamp()
	if _, err := imp.runSearch(ctx, spl.BackupCopy(lookup, backup)); err != nil {
		return "", &StageError{
			Stage:          StageBackup,
			StatementIndex: -1,
			Payload:        payloadOf(err),
			Err:            fmt.Errorf("%w: copying %q to %q: %w", ErrConflict, lookup, backup, err),
		}
	}

	log.Info("existing lookup backed up", "lookup", lookup, "backup", backup)
	return backup, nil
}

// nextStamp formats the current instant and guarantees that two backups
// issued by the same Importer never share a name, even within one
// second: a colliding stamp is advanced until it differs.
func (imp *Importer) nextStamp() string {
	t := imp.now()
	stamp := t.Format(backupStampFormat)
	for stamp == imp.lastStamp {
		t = t.Add(time.Second)
		stamp = t.Format(backupStampFormat)
	}
	imp.lastStamp = stamp
	return stamp
}
