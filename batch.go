package gridform

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tsawler/gridform/decoder"
)

// TableJob pairs a table with the predictor that decodes it. Predictors are
// usually stateful per decode, so each job carries its own.
type TableJob struct {
	Predictor decoder.Predictor
	Input     TableInput
}

// ProcessAll processes independent tables concurrently with the pipeline's
// configuration. Every table is isolated - the stages share no mutable
// state - so concurrency is bounded only by the limit (<= 0 means no limit).
// Results are index-aligned to jobs, with each result's warnings attached to
// it. The first fatal error cancels the remaining work.
func (p *Pipeline) ProcessAll(ctx context.Context, jobs []TableJob, limit int) ([]*Result, error) {
	if p.err != nil {
		return nil, p.err
	}

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]*Result, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			worker := p.clone()
			worker.pred = job.Predictor
			res, _, err := worker.Process(job.Input)
			if err != nil {
				return fmt.Errorf("table %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
