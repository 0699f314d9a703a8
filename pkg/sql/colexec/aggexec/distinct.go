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

// UnaryDistAgg is the distinct variant of UnaryAgg. Each group carries a
// deduplication map keyed by the value's canonical raw bytes; the combine
// callback only fires on the first occurrence of a value in its group.
// NULL inputs are skipped before deduplication, matching the non-distinct
// NULL policy.
type UnaryDistAgg[T1, T2 any] struct {
	op   int64
	priv AggStruct

	vs []T2
	es []bool

	maps []*hashmap.StrHashMap
	// srcs keeps each group's distinct raw values, in first-seen order.
	// It backs both state merging and partial-state serialization.
	srcs [][][]byte

	initial          T2
	emitNullForEmpty bool

	otyp  types.Type
	ityps []types.Type

	grows func(n int)
	eval  func(vs []T2) ([]T2, error)
	fill  func(groupIdx int64, value T1, ov T2, z int64, isEmpty, isNull bool) (T2, bool, error)
}

func NewUnaryDistAgg[T1, T2 any](
	op int64, priv AggStruct, isStarCount, emitNullForEmpty bool,
	ityp, otyp types.Type, initial T2,
	grows func(int),
	eval func([]T2) ([]T2, error),
	_ func(int64, int64, T2, T2, bool, bool, any) (T2, bool, error),
	fill func(int64, T1, T2, int64, bool, bool) (T2, bool, error)) AggFuncExec {
	return &UnaryDistAgg[T1, T2]{
		op:               op,
		priv:             priv,
		initial:          initial,
		emitNullForEmpty: emitNullForEmpty,
		otyp:             otyp,
		ityps:            []types.Type{ityp},
		grows:            grows,
		eval:             eval,
		fill:             fill,
	}
}

func (a *UnaryDistAgg[T1, T2]) OperatorID() int64 {
	return a.op
}

func (a *UnaryDistAgg[T1, T2]) IsDistinct() bool {
	return true
}

func (a *UnaryDistAgg[T1, T2]) OutputType() types.Type {
	return a.otyp
}

func (a *UnaryDistAgg[T1, T2]) InputTypes() []types.Type {
	return a.ityps
}

func (a *UnaryDistAgg[T1, T2]) Grows(n int) error {
	for i := 0; i < n; i++ {
		a.vs = append(a.vs, a.initial)
		a.es = append(a.es, true)
		a.maps = append(a.maps, hashmap.NewStrMap())
		a.srcs = append(a.srcs, nil)
	}
	if a.grows != nil {
		a.grows(n)
	}
	return nil
}

// fillRaw applies one non-deduplicated value occurrence.
func (a *UnaryDistAgg[T1, T2]) fillRaw(groupIdx int64, raw []byte, value T1, isNull bool) (err error) {
	if isNull {
		return nil
	}
	if _, isNew := a.maps[groupIdx].InsertValue(raw); !isNew {
		return nil
	}
	owned := make([]byte, len(raw))
	copy(owned, raw)
	a.srcs[groupIdx] = append(a.srcs[groupIdx], owned)

	a.vs[groupIdx], a.es[groupIdx], err = a.fill(groupIdx, value, a.vs[groupIdx], 1, a.es[groupIdx], false)
	return err
}

func (a *UnaryDistAgg[T1, T2]) Fill(groupIdx int64, row int64, vec *vector.Vector) error {
	if vec == nil {
		return verr.NewInternal("distinct aggregate %s called without an argument column", Names[a.op])
	}
	if vec.IsNull(uint64(row)) {
		return nil
	}
	var value T1
	if vec.GetType().IsVarlen() {
		value = any(vec.GetBytesAt(int(row))).(T1)
	} else {
		value = vector.MustFixedCol[T1](vec)[row]
	}
	return a.fillRaw(groupIdx, vec.RawAt(int(row)), value, false)
}

func (a *UnaryDistAgg[T1, T2]) BulkFill(groupIdx int64, vec *vector.Vector) error {
	length := vec.Length()
	for i := 0; i < length; i++ {
		if err := a.Fill(groupIdx, int64(i), vec); err != nil {
			return err
		}
	}
	return nil
}

func (a *UnaryDistAgg[T1, T2]) BatchFill(rows []int64, groups []uint64, vec *vector.Vector) error {
	for i := range groups {
		if groups[i] == hashmap.GroupNotMatch {
			continue
		}
		if err := a.Fill(int64(groups[i]-1), rows[i], vec); err != nil {
			return err
		}
	}
	return nil
}

// Merge folds other's distinct set into the receiver's: values already
// seen here contribute nothing, new ones fire the combine callback once.
func (a *UnaryDistAgg[T1, T2]) Merge(other AggFuncExec, groupIdx1, groupIdx2 int64) error {
	a2, err := a.compatible(other)
	if err != nil {
		return err
	}
	varlen := a.ityps[0].IsVarlen()
	for _, raw := range a2.srcs[groupIdx2] {
		if err = a.fillRaw(groupIdx1, raw, rawToValue[T1](raw, varlen), false); err != nil {
			return err
		}
	}
	return nil
}

func (a *UnaryDistAgg[T1, T2]) BatchMerge(other AggFuncExec, offset int64, groups []uint64) error {
	for i := range groups {
		if groups[i] == hashmap.GroupNotMatch {
			continue
		}
		if err := a.Merge(other, int64(groups[i]-1), offset+int64(i)); err != nil {
			return err
		}
	}
	return nil
}

func (a *UnaryDistAgg[T1, T2]) compatible(other AggFuncExec) (*UnaryDistAgg[T1, T2], error) {
	a2, ok := other.(*UnaryDistAgg[T1, T2])
	if !ok || a2.op != a.op || !a2.ityps[0].Eq(a.ityps[0]) {
		return nil, verr.NewMergeTypeMismatch(
			"cannot merge %s(%s) state into distinct %s(%s)",
			Names[other.OperatorID()], other.InputTypes()[0], Names[a.op], a.ityps[0])
	}
	return a2, nil
}

func (a *UnaryDistAgg[T1, T2]) Flush() (*vector.Vector, error) {
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

func (a *UnaryDistAgg[T1, T2]) Reset() {
	a.vs = a.vs[:0]
	a.es = a.es[:0]
	a.maps = a.maps[:0]
	a.srcs = a.srcs[:0]
	if a.priv != nil {
		a.priv.Reset()
	}
}

func (a *UnaryDistAgg[T1, T2]) Free() {
	a.vs = nil
	a.es = nil
	a.maps = nil
	a.srcs = nil
	if a.priv != nil {
		a.priv.Reset()
	}
}

// rawToValue recovers a typed value from its canonical raw bytes.
func rawToValue[T any](raw []byte, isVarlen bool) T {
	if isVarlen {
		owned := make([]byte, len(raw))
		copy(owned, raw)
		return any(owned).(T)
	}
	return types.DecodeSlice[T](raw)[0]
}
