// Copyright 2024 KestrelDB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package colexec

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kestreldb/vecagg/pkg/container/batch"
	"github.com/kestreldb/vecagg/pkg/logutil"
)

// ParallelDriver aggregates disjoint input shards concurrently: each
// shard runs its own executor to a partial result on a worker pool, and
// one merge executor combines the partials. The merge executor is only
// touched after every shard finished, so it needs no locking.
type ParallelDriver struct {
	sources []Source
	// newExec builds one executor per shard; instances must be
	// independent.
	newExec func() (Exec, error)
	merger  Exec
	workers int
}

func NewParallelDriver(sources []Source, newExec func() (Exec, error), merger Exec, workers int) *ParallelDriver {
	if workers <= 0 {
		workers = len(sources)
	}
	return &ParallelDriver{
		sources: sources,
		newExec: newExec,
		merger:  merger,
		workers: workers,
	}
}

func (d *ParallelDriver) Run(ctx context.Context) (*batch.Batch, error) {
	pool, err := ants.NewPool(d.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	partials := make([]*batch.Batch, len(d.sources))
	errs := make([]error, len(d.sources))

	for i, src := range d.sources {
		i, src := i, src
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			exec, err := d.newExec()
			if err != nil {
				errs[i] = err
				return
			}
			partials[i], errs[i] = NewDriver(src, exec, true).Run(ctx)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	logutil.Debug("parallel aggregation shards finished", zap.Int("shards", len(d.sources)))
	for _, partial := range partials {
		if err := d.merger.Update(partial); err != nil {
			return nil, err
		}
	}
	return d.merger.Flush()
}
