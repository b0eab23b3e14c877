package importer

import (
	"context"
	"fmt"

	"csvlookup/internal/logging"
)

// execute submits the publish statements strictly in order, waiting for
// each job to complete before dispatching the next. The statements are
// not commutative: the first one overwrites the lookup and the rest
// append, so out-of-order or concurrent submission would corrupt the
// result.
//
// No retries. The first failure stops the run; re-running the whole
// pipeline is the retry mechanism.
func (imp *Importer) execute(ctx context.Context, statements []string) ([]string, error) {
	log := logging.FromContext(ctx)

	sids := make([]string, 0, len(statements))
	for i, stmt := range statements {
		h, err := imp.runner.Submit(ctx, stmt)
		if err != nil {
			return nil, &StageError{
				Stage:          StagePublish,
				StatementIndex: i,
				Payload:        payloadOf(err),
				Err:            fmt.Errorf("submitting statement %d of %d: %w", i+1, len(statements), err),
			}
		}

		if _, err := imp.runner.Await(ctx, h); err != nil {
			return nil, &StageError{
				Stage:          StagePublish,
				StatementIndex: i,
				Payload:        payloadOf(err),
				Err:            fmt.Errorf("statement %d of %d (job %s): %w", i+1, len(statements), h.SID, err),
			}
		}

		sids = append(sids, h.SID)
		log.Debug("statement completed", "index", i, "sid", h.SID)
	}
	return sids, nil
}
