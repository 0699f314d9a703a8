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

package aggexec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/container/vector"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"

	_ "github.com/kestreldb/vecagg/pkg/sql/colexec/agg"
)

func newVec(t types.T, vals []int64, nullRows ...int) *vector.Vector {
	vec := vector.NewVec(t.ToType())
	isNull := make(map[int]bool, len(nullRows))
	for _, r := range nullRows {
		isNull[r] = true
	}
	for i, v := range vals {
		switch t {
		case types.T_int64:
			vector.AppendFixed(vec, v, isNull[i])
		case types.T_int32:
			vector.AppendFixed(vec, int32(v), isNull[i])
		default:
			panic("unexpected test type")
		}
	}
	return vec
}

func TestBatchFillMatchesFill(t *testing.T) {
	vec := newVec(types.T_int64, []int64{10, 20, 30, 40}, 1)
	groups := []uint64{1, 2, 1, 2}
	rows := []int64{0, 1, 2, 3}

	batched, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, batched.Grows(2))
	require.NoError(t, batched.BatchFill(rows, groups, vec))

	rowWise, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, rowWise.Grows(2))
	for i := range rows {
		require.NoError(t, rowWise.Fill(int64(groups[i]-1), rows[i], vec))
	}

	a, err := batched.Flush()
	require.NoError(t, err)
	b, err := rowWise.Flush()
	require.NoError(t, err)
	require.Equal(t, vector.MustFixedCol[int64](b), vector.MustFixedCol[int64](a))
}

func TestBatchFillSkipsGroupNotMatch(t *testing.T) {
	vec := newVec(types.T_int64, []int64{10, 20, 30})
	exec, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, exec.Grows(1))
	require.NoError(t, exec.BatchFill([]int64{0, 1, 2}, []uint64{1, 0, 1}, vec))

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, int64(40), vector.MustFixedCol[int64](out)[0])
}

func TestMergeTypeMismatch(t *testing.T) {
	sum64, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int64.ToType())
	require.NoError(t, err)
	sum32, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int32.ToType())
	require.NoError(t, err)
	count64, err := aggexec.MakeAgg(aggexec.AggCount, false, types.T_int64.ToType())
	require.NoError(t, err)
	for _, exec := range []aggexec.AggFuncExec{sum64, sum32, count64} {
		require.NoError(t, exec.Grows(1))
	}

	err = sum64.Merge(sum32, 0, 0)
	require.Error(t, err)
	require.True(t, verr.IsCode(err, verr.ErrMergeTypeMismatch))

	err = sum64.Merge(count64, 0, 0)
	require.Error(t, err)
	require.True(t, verr.IsCode(err, verr.ErrMergeTypeMismatch))
}

func TestSerializeRoundtrip(t *testing.T) {
	exec, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, exec.Grows(3))
	require.NoError(t, exec.BulkFill(0, newVec(types.T_int64, []int64{1, 2})))
	require.NoError(t, exec.BulkFill(2, newVec(types.T_int64, []int64{10})))

	data, err := aggexec.MarshalAggFuncExec(exec)
	require.NoError(t, err)

	restored, err := aggexec.UnmarshalAggFuncExec(data)
	require.NoError(t, err)
	require.Equal(t, aggexec.AggSum, restored.OperatorID())
	require.False(t, restored.IsDistinct())

	out, err := restored.Flush()
	require.NoError(t, err)
	require.Equal(t, 3, out.Length())
	require.Equal(t, int64(3), vector.MustFixedCol[int64](out)[0])
	require.True(t, out.IsNull(1))
	require.Equal(t, int64(10), vector.MustFixedCol[int64](out)[2])
}

func TestSerializeRoundtripWithPrivateState(t *testing.T) {
	exec, err := aggexec.MakeAgg(aggexec.AggAvg, false, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, exec.Grows(1))
	require.NoError(t, exec.BulkFill(0, newVec(types.T_int64, []int64{2, 4, 9})))

	data, err := aggexec.MarshalAggFuncExec(exec)
	require.NoError(t, err)

	restored, err := aggexec.UnmarshalAggFuncExec(data)
	require.NoError(t, err)
	out, err := restored.Flush()
	require.NoError(t, err)
	require.InDelta(t, 5.0, vector.MustFixedCol[float64](out)[0], 1e-9)
}

func TestSerializedStateStaysMergeable(t *testing.T) {
	a, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, a.Grows(1))
	require.NoError(t, a.BulkFill(0, newVec(types.T_int64, []int64{1, 2})))

	b, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, b.Grows(1))
	require.NoError(t, b.BulkFill(0, newVec(types.T_int64, []int64{10})))

	data, err := aggexec.MarshalAggFuncExec(b)
	require.NoError(t, err)
	restored, err := aggexec.UnmarshalAggFuncExec(data)
	require.NoError(t, err)

	require.NoError(t, a.Merge(restored, 0, 0))
	out, err := a.Flush()
	require.NoError(t, err)
	require.Equal(t, int64(13), vector.MustFixedCol[int64](out)[0])
}

func TestDistinctSerializeRoundtrip(t *testing.T) {
	exec, err := aggexec.MakeAgg(aggexec.AggSum, true, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, exec.Grows(1))
	require.NoError(t, exec.BulkFill(0, newVec(types.T_int64, []int64{3, 3, 4})))

	data, err := aggexec.MarshalAggFuncExec(exec)
	require.NoError(t, err)
	restored, err := aggexec.UnmarshalAggFuncExec(data)
	require.NoError(t, err)
	require.True(t, restored.IsDistinct())

	// values already present before serialization must stay deduplicated
	require.NoError(t, restored.BulkFill(0, newVec(types.T_int64, []int64{3, 4, 5})))
	out, err := restored.Flush()
	require.NoError(t, err)
	require.Equal(t, int64(12), vector.MustFixedCol[int64](out)[0])
}

func TestDistinctMerge(t *testing.T) {
	a, err := aggexec.MakeAgg(aggexec.AggCount, true, types.T_int64.ToType())
	require.NoError(t, err)
	b, err := aggexec.MakeAgg(aggexec.AggCount, true, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, a.Grows(1))
	require.NoError(t, b.Grows(1))

	require.NoError(t, a.BulkFill(0, newVec(types.T_int64, []int64{1, 2})))
	require.NoError(t, b.BulkFill(0, newVec(types.T_int64, []int64{2, 3})))

	require.NoError(t, a.Merge(b, 0, 0))
	out, err := a.Flush()
	require.NoError(t, err)
	require.Equal(t, int64(3), vector.MustFixedCol[int64](out)[0])
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := aggexec.UnmarshalAggFuncExec([]byte{1, 2, 3})
	require.Error(t, err)
	require.True(t, verr.IsCode(err, verr.ErrEncoding))
}

func TestResetReturnsExecutorToZeroGroups(t *testing.T) {
	exec, err := aggexec.MakeAgg(aggexec.AggSum, false, types.T_int64.ToType())
	require.NoError(t, err)
	require.NoError(t, exec.Grows(2))
	require.NoError(t, exec.BulkFill(0, newVec(types.T_int64, []int64{5})))

	exec.Reset()
	require.NoError(t, exec.Grows(1))
	require.NoError(t, exec.BulkFill(0, newVec(types.T_int64, []int64{7})))

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, out.Length())
	require.Equal(t, int64(7), vector.MustFixedCol[int64](out)[0])
}
