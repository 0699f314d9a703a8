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

// Package mergegroup combines partial aggregation results from peer
// executors: group keys are re-inserted into the local hash map and the
// incoming accumulator states are merged group by group.
package mergegroup

import (
	"github.com/kestreldb/vecagg/pkg/common/hashmap"
	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/batch"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/container/vector"
	"github.com/kestreldb/vecagg/pkg/sql/colexec"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"

	_ "github.com/kestreldb/vecagg/pkg/sql/colexec/agg"
)

type Exec struct {
	groupIdx []int32
	aggSpecs []colexec.Aggregate
	aggs     []aggexec.AggFuncExec

	hash *hashmap.StrHashMap
	itr  *hashmap.Iterator

	groupVecs []*vector.Vector

	packer  *types.Packer
	keyBufs [hashmap.UnitLimit][]byte
	keys    [hashmap.UnitLimit][]byte

	grandInit bool
}

// New builds a merge executor over the same group columns and aggregate
// specs its upstream partial producers were built with. In a partial
// batch the group columns sit at positions 0..len(groupTypes)-1.
func New(groupTypes []types.Type, aggs []colexec.Aggregate) (*Exec, error) {
	execs, err := colexec.NewAggExecs(aggs)
	if err != nil {
		return nil, err
	}
	e := &Exec{
		aggSpecs: aggs,
		aggs:     execs,
		hash:     hashmap.NewStrMap(),
		packer:   types.NewPacker(),
	}
	e.itr = e.hash.NewIterator()
	e.groupIdx = make([]int32, len(groupTypes))
	e.groupVecs = make([]*vector.Vector, len(groupTypes))
	for i, typ := range groupTypes {
		e.groupIdx[i] = int32(i)
		e.groupVecs[i] = vector.NewVec(typ)
	}
	return e, nil
}

// Update folds one partial-result batch in. Row i of the batch is group
// ordinal i of the batch's accumulator states.
func (e *Exec) Update(bat *batch.Batch) error {
	if bat.Sels != nil {
		return verr.NewInvalidInput("partial result batches cannot carry a selection")
	}
	others, err := e.incomingAggs(bat)
	if err != nil {
		return err
	}

	if len(e.groupVecs) == 0 {
		return e.updateGrand(others)
	}

	n := bat.Length()
	for start := 0; start < n; start += hashmap.UnitLimit {
		chunk := n - start
		if chunk > hashmap.UnitLimit {
			chunk = hashmap.UnitLimit
		}
		if err = e.mergeChunk(bat, others, start, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exec) incomingAggs(bat *batch.Batch) ([]aggexec.AggFuncExec, error) {
	if len(bat.Aggs) != len(e.aggs) {
		return nil, verr.NewMergeTypeMismatch(
			"partial result carries %d aggregate states, executor expects %d", len(bat.Aggs), len(e.aggs))
	}
	others := make([]aggexec.AggFuncExec, len(bat.Aggs))
	for i, raw := range bat.Aggs {
		other, ok := raw.(aggexec.AggFuncExec)
		if !ok {
			return nil, verr.NewMergeTypeMismatch("partial result state %d is not an aggregate executor", i)
		}
		others[i] = other
	}
	return others, nil
}

func (e *Exec) mergeChunk(bat *batch.Batch, others []aggexec.AggFuncExec, start, chunk int) error {
	for i := 0; i < chunk; i++ {
		row := start + i
		e.packer.Reset()
		for _, col := range e.groupIdx {
			if err := bat.Vecs[col].EncodeValue(e.packer, row); err != nil {
				return err
			}
		}
		e.keyBufs[i] = append(e.keyBufs[i][:0], e.packer.Bytes()...)
		e.keys[i] = e.keyBufs[i]
	}

	values, inserted := e.itr.Insert(e.keys[:chunk])

	news := 0
	for _, ins := range inserted {
		news += int(ins)
	}
	if news > 0 {
		for _, agg := range e.aggs {
			if err := agg.Grows(news); err != nil {
				return err
			}
		}
		for i := 0; i < chunk; i++ {
			if inserted[i] == 0 {
				continue
			}
			for j, col := range e.groupIdx {
				if err := e.groupVecs[j].UnionOne(bat.Vecs[col], start+i); err != nil {
					return err
				}
			}
		}
	}

	for i, agg := range e.aggs {
		if err := agg.BatchMerge(others[i], int64(start), values); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exec) updateGrand(others []aggexec.AggFuncExec) error {
	if !e.grandInit {
		for _, agg := range e.aggs {
			if err := agg.Grows(1); err != nil {
				return err
			}
		}
		e.grandInit = true
	}
	for i, agg := range e.aggs {
		if err := agg.Merge(others[i], 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// MergePartial folds in a serialized partial result received from a
// peer node.
func (e *Exec) MergePartial(data []byte) error {
	bat, err := colexec.DecodePartialResult(data)
	if err != nil {
		return err
	}
	return e.Update(bat)
}

func (e *Exec) Flush() (*batch.Batch, error) {
	if len(e.groupVecs) == 0 && !e.grandInit {
		for _, agg := range e.aggs {
			if err := agg.Grows(1); err != nil {
				return nil, err
			}
		}
		e.grandInit = true
	}
	out := batch.NewWithSize(len(e.groupVecs) + len(e.aggs))
	copy(out.Vecs, e.groupVecs)
	for i, agg := range e.aggs {
		vec, err := agg.Flush()
		if err != nil {
			return nil, err
		}
		out.Vecs[len(e.groupVecs)+i] = vec
	}
	return out, nil
}

// PartialResult re-exports the merged state, so merge executors chain
// across levels.
func (e *Exec) PartialResult() (*batch.Batch, error) {
	out := batch.NewWithSize(len(e.groupVecs))
	copy(out.Vecs, e.groupVecs)
	out.Aggs = make([]any, len(e.aggs))
	for i, agg := range e.aggs {
		out.Aggs[i] = agg
	}
	return out, nil
}

func (e *Exec) GroupCount() uint64 {
	if len(e.groupVecs) == 0 {
		if e.grandInit {
			return 1
		}
		return 0
	}
	return e.hash.GroupCount()
}

func (e *Exec) Free() {
	for _, agg := range e.aggs {
		agg.Free()
	}
}
