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

// Package streamgroup is the stream aggregation executor. Input must
// arrive sorted by the group columns; only the current group's states are
// live, so memory stays constant in the number of groups. Because the
// key codec preserves order, sortedness is checked bytewise on the
// packed keys and a violation fails the query immediately.
package streamgroup

import (
	"bytes"

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

	packer *types.Packer

	// curKey is the live group's packed key; hasCur guards against the
	// zero-length key of an all-NULL group being mistaken for "no group".
	curKey []byte
	hasCur bool

	// direction is fixed by the first observed key transition: +1
	// ascending, -1 descending, 0 unknown.
	direction int

	// finished output, one row appended per closed group.
	outGroupVecs []*vector.Vector
	outAggVecs   []*vector.Vector
}

func New(groupIdx []int32, groupTypes []types.Type, aggs []colexec.Aggregate) (*Exec, error) {
	if len(groupIdx) != len(groupTypes) {
		return nil, verr.NewInvalidInput("stream executor: %d group columns, %d types", len(groupIdx), len(groupTypes))
	}
	execs, err := colexec.NewAggExecs(aggs)
	if err != nil {
		return nil, err
	}
	e := &Exec{
		groupIdx: groupIdx,
		aggSpecs: aggs,
		aggs:     execs,
		packer:   types.NewPacker(),
	}
	e.outGroupVecs = make([]*vector.Vector, len(groupTypes))
	for i, typ := range groupTypes {
		e.outGroupVecs[i] = vector.NewVec(typ)
	}
	e.outAggVecs = make([]*vector.Vector, len(execs))
	for i, agg := range execs {
		e.outAggVecs[i] = vector.NewVec(agg.OutputType())
	}
	return e, nil
}

func (e *Exec) Update(bat *batch.Batch) error {
	n := bat.RowCount()
	for i := 0; i < n; i++ {
		row := bat.Row(i)

		e.packer.Reset()
		for _, col := range e.groupIdx {
			if err := bat.Vecs[col].EncodeValue(e.packer, int(row)); err != nil {
				return err
			}
		}
		key := e.packer.Bytes()

		if !e.hasCur {
			if err := e.openGroup(key); err != nil {
				return err
			}
		} else if !bytes.Equal(key, e.curKey) {
			if err := e.checkOrder(key); err != nil {
				return err
			}
			if err := e.closeGroup(); err != nil {
				return err
			}
			if err := e.openGroup(key); err != nil {
				return err
			}
		}

		for j, agg := range e.aggs {
			var vec *vector.Vector
			if e.aggSpecs[j].ColIdx >= 0 {
				vec = bat.Vecs[e.aggSpecs[j].ColIdx]
			}
			if err := agg.Fill(0, row, vec); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkOrder verifies the new key continues the input's sort direction.
// The first transition fixes the direction; any later reversal means the
// caller's sortedness precondition is broken.
func (e *Exec) checkOrder(key []byte) error {
	cmp := bytes.Compare(key, e.curKey)
	switch {
	case e.direction == 0:
		if cmp > 0 {
			e.direction = 1
		} else {
			e.direction = -1
		}
	case cmp > 0 && e.direction < 0, cmp < 0 && e.direction > 0:
		return verr.NewOrderingViolation(
			"stream aggregation input is not sorted by the group columns")
	}
	return nil
}

func (e *Exec) openGroup(key []byte) error {
	e.curKey = append(e.curKey[:0], key...)
	e.hasCur = true
	for _, agg := range e.aggs {
		if err := agg.Grows(1); err != nil {
			return err
		}
	}
	return nil
}

// closeGroup finalizes the live group into the output vectors and resets
// every aggregate back to zero groups.
func (e *Exec) closeGroup() error {
	tuple, err := types.Unpack(e.curKey)
	if err != nil {
		return err
	}
	if len(tuple) != len(e.outGroupVecs) {
		return verr.NewInternal("stream group key has %d values for %d group columns", len(tuple), len(e.outGroupVecs))
	}
	for i, el := range tuple {
		if err = e.outGroupVecs[i].AppendTupleElement(el); err != nil {
			return err
		}
	}
	for i, agg := range e.aggs {
		vec, err := agg.Flush()
		if err != nil {
			return err
		}
		if err = e.outAggVecs[i].UnionOne(vec, 0); err != nil {
			return err
		}
		agg.Reset()
	}
	e.hasCur = false
	return nil
}

func (e *Exec) Flush() (*batch.Batch, error) {
	if e.hasCur {
		if err := e.closeGroup(); err != nil {
			return nil, err
		}
	}
	out := batch.NewWithSize(len(e.outGroupVecs) + len(e.outAggVecs))
	copy(out.Vecs, e.outGroupVecs)
	copy(out.Vecs[len(e.outGroupVecs):], e.outAggVecs)
	return out, nil
}

// PartialResult is not meaningful for stream aggregation: closed groups
// are already final, and the single live group would not amortize a merge
// pass. The hash executor serves the partial path.
func (e *Exec) PartialResult() (*batch.Batch, error) {
	return nil, verr.NewInvalidInput("stream aggregation does not produce partial results")
}

func (e *Exec) Free() {
	for _, agg := range e.aggs {
		agg.Free()
	}
}
