package compute

import (
	"context"

	"github.com/exograph/exo-core/contrib/dataloader"
)

// computeJob is one pending computed-field subsystem invocation belonging to
// a sibling row inside a one-to-many relation's list, identified by its
// position among those siblings so a batch's completions land back on the
// row that asked for them.
type computeJob struct {
	index      int
	row        map[string]any
	key        string
	subsystem  Subsystem
	scriptPath string
	parent     map[string]any
	args       map[string]any
	selection  []SelectionDescriptor
}

type jobOutcome struct {
	job   computeJob
	value any
}

// runComputeBatch fires every job's subsystem call concurrently and
// reassembles the results into request order via dataloader.OrderByKeys: the
// goroutines complete in whatever order their subprocess exits, same as a
// batched foreign-key load completing out of request order.
func runComputeBatch(ctx context.Context, jobs []computeJob) ([]jobOutcome, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	type completion struct {
		outcome jobOutcome
		err     error
	}
	results := make(chan completion, len(jobs))
	for _, j := range jobs {
		go func(j computeJob) {
			v, err := j.subsystem.ExecuteAndGet(ctx, j.scriptPath, j.parent, j.args, j.selection)
			results <- completion{outcome: jobOutcome{job: j, value: v}, err: err}
		}(j)
	}

	arrived := make([]jobOutcome, 0, len(jobs))
	for range jobs {
		c := <-results
		if c.err != nil {
			return nil, c.err
		}
		arrived = append(arrived, c.outcome)
	}

	wantKeys := make([]int, len(jobs))
	for i, j := range jobs {
		wantKeys[i] = j.index
	}
	ordered, orderErrs := dataloader.OrderByKeys(wantKeys, arrived, func(o jobOutcome) int { return o.job.index })
	for _, err := range orderErrs {
		if err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
