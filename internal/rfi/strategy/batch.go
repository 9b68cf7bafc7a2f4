package strategy

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/rfi.flagger/internal/rfi/tfgrid"
)

// Job is one independent grid to flag, for example one baseline and
// polarisation. Missing may be nil.
//
// Polarisations that flag the same samples set Shared instead of Grid, each
// job holding its own reference. ExecuteBatch releases that reference when
// the job ends, whether it ran or not.
type Job struct {
	Grid                 *tfgrid.Grid
	Shared               *tfgrid.Shared
	Mask                 *tfgrid.Mask
	Missing              *tfgrid.Mask
	Additive             bool
	TimeSensitivity      float64
	FrequencySensitivity float64
}

// ExecuteBatch flags every job with at most workers running at once; zero
// workers means one per CPU. Jobs may share grids, which are only read, but
// never masks. Results are returned in job order. The context is checked
// before each job starts; a job that has started always runs to completion.
// The first error cancels the jobs that have not started yet.
func (c *ThresholdConfig) ExecuteBatch(ctx context.Context, jobs []Job, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			defer job.release()
			if err := ctx.Err(); err != nil {
				return err
			}
			grid := job.grid()
			if grid == nil {
				return fmt.Errorf("job %d: %w: no grid", i, ErrInvalidConfig)
			}
			var (
				res Result
				err error
			)
			if job.Missing != nil {
				res, err = c.ExecuteWithMissing(grid, job.Mask, job.Missing, job.Additive, job.TimeSensitivity, job.FrequencySensitivity)
			} else {
				res, err = c.Execute(grid, job.Mask, job.Additive, job.TimeSensitivity, job.FrequencySensitivity)
			}
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (j Job) grid() *tfgrid.Grid {
	if j.Shared != nil {
		return j.Shared.Grid()
	}
	return j.Grid
}

func (j Job) release() {
	if j.Shared != nil {
		j.Shared.Release()
	}
}
