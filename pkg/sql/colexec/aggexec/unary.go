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

package aggexec

import (
	"github.com/kestreldb/vecagg/pkg/common/hashmap"
	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/container/vector"
)

// UnaryAgg is the generic single-column aggregate executor. T1 is the
// argument's in-memory type ([]byte for varlen columns), T2 the
// accumulator/result type. The per-function behavior lives in the fill,
// merge and eval callbacks; the executor owns the dense per-group state
// row (vs) and the empty-group flags (es).
type UnaryAgg[T1, T2 any] struct {
	op   int64
	priv AggStruct

	// vs[i] is group i's accumulator, es[i] true while the group has not
	// absorbed any row.
	vs []T2
	es []bool

	// initial seeds a fresh group's accumulator: the function's identity.
	initial T2

	// isStarCount marks count(*): no argument, NULL rows still count.
	isStarCount bool
	// emitNullForEmpty: groups still in Initial state flush as NULL
	// (sum/avg/min/max...) instead of the seeded identity (count, bit ops).
	emitNullForEmpty bool

	otyp  types.Type
	ityps []types.Type

	grows func(n int)
	eval  func(vs []T2) ([]T2, error)
	merge func(groupIdx1, groupIdx2 int64, x, y T2, xEmpty, yEmpty bool, otherPriv any) (T2, bool, error)
	fill  func(groupIdx int64, value T1, ov T2, z int64, isEmpty, isNull bool) (T2, bool, error)
}

func NewUnaryAgg[T1, T2 any](
	op int64, priv AggStruct, isStarCount, emitNullForEmpty bool,
	ityp, otyp types.Type, initial T2,
	grows func(int),
	eval func([]T2) ([]T2, error),
	merge func(int64, int64, T2, T2, bool, bool, any) (T2, bool, error),
	fill func(int64, T1, T2, int64, bool, bool) (T2, bool, error)) AggFuncExec {
	return &UnaryAgg[T1, T2]{
		op:               op,
		priv:             priv,
		initial:          initial,
		isStarCount:      isStarCount,
		emitNullForEmpty: emitNullForEmpty,
		otyp:             otyp,
		ityps:            []types.Type{ityp},
		grows:            grows,
		eval:             eval,
		merge:            merge,
		fill:             fill,
	}
}

func (a *UnaryAgg[T1, T2]) OperatorID() int64 {
	return a.op
}

func (a *UnaryAgg[T1, T2]) IsDistinct() bool {
	return false
}

func (a *UnaryAgg[T1, T2]) OutputType() types.Type {
	return a.otyp
}

func (a *UnaryAgg[T1, T2]) InputTypes() []types.Type {
	return a.ityps
}

func (a *UnaryAgg[T1, T2]) Grows(n int) error {
	for i := 0; i < n; i++ {
		a.vs = append(a.vs, a.initial)
		a.es = append(a.es, true)
	}
	if a.grows != nil {
		a.grows(n)
	}
	return nil
}

func (a *UnaryAgg[T1, T2]) Fill(groupIdx int64, row int64, vec *vector.Vector) (err error) {
	var value T1
	if vec == nil {
		if !a.isStarCount {
			return verr.NewInternal("aggregate %s called without an argument column", Names[a.op])
		}
		a.vs[groupIdx], a.es[groupIdx], err = a.fill(groupIdx, value, a.vs[groupIdx], 1, a.es[groupIdx], false)
		return err
	}

	isNull := vec.IsNull(uint64(row))
	if !isNull {
		if vec.GetType().IsVarlen() {
			value = any(vec.GetBytesAt(int(row))).(T1)
		} else {
			value = vector.MustFixedCol[T1](vec)[row]
		}
	}
	a.vs[groupIdx], a.es[groupIdx], err = a.fill(groupIdx, value, a.vs[groupIdx], 1, a.es[groupIdx], isNull)
	return err
}

func (a *UnaryAgg[T1, T2]) BulkFill(groupIdx int64, vec *vector.Vector) (err error) {
	var value T1
	if vec == nil {
		if !a.isStarCount {
			return verr.NewInternal("aggregate %s called without an argument column", Names[a.op])
		}
		return a.Fill(groupIdx, 0, nil)
	}

	length := vec.Length()
	if vec.GetType().IsVarlen() {
		nsp := vec.GetNulls()
		for i := 0; i < length; i++ {
			isNull := nsp.Contains(uint64(i))
			if !isNull {
				value = any(vec.GetBytesAt(i)).(T1)
			}
			a.vs[groupIdx], a.es[groupIdx], err = a.fill(groupIdx, value, a.vs[groupIdx], 1, a.es[groupIdx], isNull)
			if err != nil {
				return err
			}
		}
		return nil
	}

	values := vector.MustFixedCol[T1](vec)
	nsp := vec.GetNulls()
	for i := 0; i < length; i++ {
		a.vs[groupIdx], a.es[groupIdx], err = a.fill(groupIdx, values[i], a.vs[groupIdx], 1, a.es[groupIdx], nsp.Contains(uint64(i)))
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *UnaryAgg[T1, T2]) BatchFill(rows []int64, groups []uint64, vec *vector.Vector) (err error) {
	var value T1

	if vec == nil {
		if !a.isStarCount {
			return verr.NewInternal("aggregate %s called without an argument column", Names[a.op])
		}
		for i := range groups {
			if groups[i] == hashmap.GroupNotMatch {
				continue
			}
			g := int64(groups[i] - 1)
			a.vs[g], a.es[g], err = a.fill(g, value, a.vs[g], 1, a.es[g], false)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if vec.GetType().IsVarlen() {
		nsp := vec.GetNulls()
		for i := range groups {
			if groups[i] == hashmap.GroupNotMatch {
				continue
			}
			g := int64(groups[i] - 1)
			row := rows[i]

			isNull := nsp.Contains(uint64(row))
			if !isNull {
				value = any(vec.GetBytesAt(int(row))).(T1)
			}
			a.vs[g], a.es[g], err = a.fill(g, value, a.vs[g], 1, a.es[g], isNull)
			if err != nil {
				return err
			}
		}
		return nil
	}

	values := vector.MustFixedCol[T1](vec)
	nsp := vec.GetNulls()
	for i := range groups {
		if groups[i] == hashmap.GroupNotMatch {
			continue
		}
		g := int64(groups[i] - 1)
		row := rows[i]

		a.vs[g], a.es[g], err = a.fill(g, values[row], a.vs[g], 1, a.es[g], nsp.Contains(uint64(row)))
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *UnaryAgg[T1, T2]) Merge(other AggFuncExec, groupIdx1, groupIdx2 int64) (err error) {
	a2, err := a.compatible(other)
	if err != nil {
		return err
	}
	a.vs[groupIdx1], a.es[groupIdx1], err = a.merge(
		groupIdx1, groupIdx2, a.vs[groupIdx1], a2.vs[groupIdx2], a.es[groupIdx1], a2.es[groupIdx2], a2.priv)
	return err
}

func (a *UnaryAgg[T1, T2]) BatchMerge(other AggFuncExec, offset int64, groups []uint64) (err error) {
	a2, err := a.compatible(other)
	if err != nil {
		return err
	}
	for i := range groups {
		if groups[i] == hashmap.GroupNotMatch {
			continue
		}
		g1 := int64(groups[i] - 1)
		g2 := offset + int64(i)

		a.vs[g1], a.es[g1], err = a.merge(g1, g2, a.vs[g1], a2.vs[g2], a.es[g1], a2.es[g2], a2.priv)
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *UnaryAgg[T1, T2]) compatible(other AggFuncExec) (*UnaryAgg[T1, T2], error) {
	a2, ok := other.(*UnaryAgg[T1, T2])
	if !ok || a2.op != a.op || !a2.ityps[0].Eq(a.ityps[0]) {
		return nil, verr.NewMergeTypeMismatch(
			"cannot merge %s(%s) state into %s(%s)",
			Names[other.OperatorID()], other.InputTypes()[0], Names[a.op], a.ityps[0])
	}
	return a2, nil
}

func (a *UnaryAgg[T1, T2]) Flush() (*vector.Vector, error) {
	var err error
	if a.vs, err = a.eval(a.vs); err != nil {
		return nil, err
	}

	var nullList []bool
	if a.emitNullForEmpty {
		nullList = a.es
	}

	vec := vector.NewVec(a.otyp)
	if a.otyp.IsVarlen() {
		vector.AppendBytesList(vec, any(a.vs).([][]byte), nullList)
	} else {
		vector.AppendFixedList(vec, a.vs, nullList)
	}
	return vec, nil
}

func (a *UnaryAgg[T1, T2]) Reset() {
	a.vs = a.vs[:0]
	a.es = a.es[:0]
	if a.priv != nil {
		a.priv.Reset()
	}
}

func (a *UnaryAgg[T1, T2]) Free() {
	a.vs = nil
	a.es = nil
	if a.priv != nil {
		a.priv.Reset()
	}
}
