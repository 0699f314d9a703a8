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

// Package aggexec carries the aggregate-function framework: the executor
// interface every function implements, the generic single-column executor
// driven by per-function fill/merge/eval callbacks, the distinct wrapper,
// the registration-based factory, and partial-state serialization.
package aggexec

import (
	"encoding"

	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/container/vector"
)

// Operator ids of the registered aggregate functions.
const (
	AggSum int64 = iota
	AggAvg
	AggCount
	AggStarCount
	AggMin
	AggMax
	AggBitAnd
	AggBitOr
	AggBitXor
	AggVarPop
	AggStddevPop
	AggApproxCountDistinct
	AggAnyValue
	AggGroupConcat
)

var Names = map[int64]string{
	AggSum:                 "sum",
	AggAvg:                 "avg",
	AggCount:               "count",
	AggStarCount:           "starcount",
	AggMin:                 "min",
	AggMax:                 "max",
	AggBitAnd:              "bit_and",
	AggBitOr:               "bit_or",
	AggBitXor:              "bit_xor",
	AggVarPop:              "var_pop",
	AggStddevPop:           "stddev_pop",
	AggApproxCountDistinct: "approx_count_distinct",
	AggAnyValue:            "any_value",
	AggGroupConcat:         "group_concat",
}

// AggFuncExec is one aggregate function holding the accumulator states of
// every group the owning executor has created. Groups are addressed by
// the dense ordinals handed out by the executor's hash map (or, for
// stream grouping, ordinal zero).
type AggFuncExec interface {
	OperatorID() int64
	IsDistinct() bool
	OutputType() types.Type
	InputTypes() []types.Type

	// Grows appends n fresh groups in Initial state.
	Grows(n int) error

	// Fill applies one row of vec to one group. A nil vec is only legal
	// for count(*), which consumes no argument.
	Fill(groupIdx int64, row int64, vec *vector.Vector) error

	// BulkFill applies every row of vec to one group.
	BulkFill(groupIdx int64, vec *vector.Vector) error

	// BatchFill applies row rows[i] to group groups[i]-1 for every i with
	// groups[i] != hashmap.GroupNotMatch. Observably equivalent to the
	// corresponding sequence of Fill calls.
	BatchFill(rows []int64, groups []uint64, vec *vector.Vector) error

	// Merge folds group groupIdx2 of other into group groupIdx1 of the
	// receiver, as if other's input rows had been filled here directly.
	Merge(other AggFuncExec, groupIdx1, groupIdx2 int64) error

	// BatchMerge folds other's group offset+i into the receiver's group
	// groups[i]-1, skipping GroupNotMatch entries.
	BatchMerge(other AggFuncExec, offset int64, groups []uint64) error

	// Flush finalizes every group into the output vector. The executor
	// must not be updated afterwards.
	Flush() (*vector.Vector, error)

	// Reset discards all group state, returning the executor to zero
	// groups. Resolution of the specialization is kept.
	Reset()

	Free()

	marshal() (*EncodedAgg, error)
	unmarshal(enc *EncodedAgg) error
}

// AggStruct is the per-function private state (auxiliary per-group
// slices such as avg's counts); functions without one use a nil private.
type AggStruct interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Reset()
}
