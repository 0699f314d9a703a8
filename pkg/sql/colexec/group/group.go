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

// Package group is the hash aggregation executor: packed group keys map
// to dense ordinals through the hash map, every aggregate keeps one state
// row indexed by those ordinals.
package group

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

	// groupVecs accumulate each distinct key's group values, appended
	// the moment the key is first inserted.
	groupVecs []*vector.Vector

	packer *types.Packer
	// keyBufs own the packed keys of one insert chunk.
	keyBufs [hashmap.UnitLimit][]byte
	keys    [hashmap.UnitLimit][]byte
	rows    [hashmap.UnitLimit]int64

	// set once the implicit group of a grand aggregation exists.
	grandInit bool
}

// New builds a hash executor. groupIdx names the grouping columns by
// position in the input batch, groupTypes their types; both empty means
// grand aggregation over the whole input.
func New(groupIdx []int32, groupTypes []types.Type, aggs []colexec.Aggregate) (*Exec, error) {
	if len(groupIdx) != len(groupTypes) {
		return nil, verr.NewInvalidInput("group executor: %d group columns, %d types", len(groupIdx), len(groupTypes))
	}
	execs, err := colexec.NewAggExecs(aggs)
	if err != nil {
		return nil, err
	}
	e := &Exec{
		groupIdx: groupIdx,
		aggSpecs: aggs,
		aggs:     execs,
		hash:     hashmap.NewStrMap(),
		packer:   types.NewPacker(),
	}
	e.itr = e.hash.NewIterator()
	e.groupVecs = make([]*vector.Vector, len(groupTypes))
	for i, typ := range groupTypes {
		e.groupVecs[i] = vector.NewVec(typ)
	}
	return e, nil
}

func (e *Exec) Update(bat *batch.Batch) error {
	n := bat.RowCount()
	if n == 0 {
		return nil
	}
	if len(e.groupIdx) == 0 {
		return e.updateGrand(bat, n)
	}

	for start := 0; start < n; start += hashmap.UnitLimit {
		chunk := n - start
		if chunk > hashmap.UnitLimit {
			chunk = hashmap.UnitLimit
		}
		if err := e.updateChunk(bat, start, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exec) updateChunk(bat *batch.Batch, start, chunk int) error {
	for i := 0; i < chunk; i++ {
		row := bat.Row(start + i)
		e.packer.Reset()
		for _, col := range e.groupIdx {
			if err := bat.Vecs[col].EncodeValue(e.packer, int(row)); err != nil {
				return err
			}
		}
		e.keyBufs[i] = append(e.keyBufs[i][:0], e.packer.Bytes()...)
		e.keys[i] = e.keyBufs[i]
		e.rows[i] = row
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
				if err := e.groupVecs[j].UnionOne(bat.Vecs[col], int(e.rows[i])); err != nil {
					return err
				}
			}
		}
	}

	for i, agg := range e.aggs {
		vec := e.argVec(bat, i)
		if err := agg.BatchFill(e.rows[:chunk], values, vec); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exec) updateGrand(bat *batch.Batch, n int) error {
	if err := e.ensureGrand(); err != nil {
		return err
	}
	for i, agg := range e.aggs {
		vec := e.argVec(bat, i)
		if vec == nil {
			// count(*) has no argument; one fill per active row.
			for j := 0; j < n; j++ {
				if err := agg.Fill(0, 0, nil); err != nil {
					return err
				}
			}
			continue
		}
		if bat.Sels == nil {
			if err := agg.BulkFill(0, vec); err != nil {
				return err
			}
			continue
		}
		for _, row := range bat.Sels {
			if err := agg.Fill(0, row, vec); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureGrand creates the implicit group, so a grand aggregation flushes
// one row even when no input ever arrived.
func (e *Exec) ensureGrand() error {
	if e.grandInit {
		return nil
	}
	for _, agg := range e.aggs {
		if err := agg.Grows(1); err != nil {
			return err
		}
	}
	e.grandInit = true
	return nil
}

func (e *Exec) argVec(bat *batch.Batch, i int) *vector.Vector {
	if e.aggSpecs[i].ColIdx < 0 {
		return nil
	}
	return bat.Vecs[e.aggSpecs[i].ColIdx]
}

func (e *Exec) Flush() (*batch.Batch, error) {
	if len(e.groupIdx) == 0 {
		if err := e.ensureGrand(); err != nil {
			return nil, err
		}
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

// PartialResult hands the group columns plus the live accumulator states
// over to a merge executor. The states stay mergeable; nothing is
// finalized.
func (e *Exec) PartialResult() (*batch.Batch, error) {
	if len(e.groupIdx) == 0 {
		if err := e.ensureGrand(); err != nil {
			return nil, err
		}
	}
	out := batch.NewWithSize(len(e.groupVecs))
	copy(out.Vecs, e.groupVecs)
	out.Aggs = make([]any, len(e.aggs))
	for i, agg := range e.aggs {
		out.Aggs[i] = agg
	}
	return out, nil
}

// GroupCount reports the number of groups built so far.
func (e *Exec) GroupCount() uint64 {
	if len(e.groupIdx) == 0 {
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
