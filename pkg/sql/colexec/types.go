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

// Package colexec holds the engine's execution surface: the executor and
// source interfaces, the batch driver pulling a source into an executor,
// the shard-parallel driver, the engine configuration, and the wire codec
// for partial aggregation results.
package colexec

import (
	"context"

	"github.com/kestreldb/vecagg/pkg/container/batch"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

// Source yields columnar batches until exhausted; a nil batch with nil
// error marks end-of-input. Batches must stay immutable until the next
// call.
type Source interface {
	Next(ctx context.Context) (*batch.Batch, error)
}

// Exec is one aggregation executor instance. Update consumes input
// batches one at a time; exactly one of Flush or PartialResult ends the
// executor's life.
type Exec interface {
	// Update folds one batch into the executor's group states.
	Update(bat *batch.Batch) error

	// Flush finalizes: group columns plus one finished value column per
	// aggregate.
	Flush() (*batch.Batch, error)

	// PartialResult emits group columns plus the live accumulator states
	// in the batch's Aggs, for a downstream merge executor.
	PartialResult() (*batch.Batch, error)
}

// Aggregate describes one aggregate call pushed down to the engine.
type Aggregate struct {
	// Op is the function id (aggexec.AggSum and friends).
	Op int64
	// Distinct applies per-group deduplication before accumulating.
	Distinct bool
	// ColIdx is the argument column's position in the input batch, -1
	// for count(*).
	ColIdx int32
	// Type is the argument column's type; T_any for count(*).
	Type types.Type
}

// NewAggExecs resolves every aggregate spec through the factory. Fails
// whole if any spec has no registered specialization.
func NewAggExecs(aggs []Aggregate) ([]aggexec.AggFuncExec, error) {
	execs := make([]aggexec.AggFuncExec, len(aggs))
	for i, spec := range aggs {
		op, typ := spec.Op, spec.Type
		if spec.ColIdx < 0 {
			op = aggexec.AggStarCount
			typ = types.T_any.ToType()
		}
		exec, err := aggexec.MakeAgg(op, spec.Distinct, typ)
		if err != nil {
			return nil, err
		}
		execs[i] = exec
	}
	return execs, nil
}
