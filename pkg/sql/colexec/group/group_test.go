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

package group

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestreldb/vecagg/pkg/container/batch"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/container/vector"
	"github.com/kestreldb/vecagg/pkg/sql/colexec"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

func varcharCol(vals []string, nullRows ...int) *vector.Vector {
	vec := vector.NewVec(types.T_varchar.ToType())
	isNull := make(map[int]bool)
	for _, r := range nullRows {
		isNull[r] = true
	}
	for i, v := range vals {
		vector.AppendBytes(vec, []byte(v), isNull[i])
	}
	return vec
}

func int64Col(vals []int64, nullRows ...int) *vector.Vector {
	vec := vector.NewVec(types.T_int64.ToType())
	isNull := make(map[int]bool)
	for _, r := range nullRows {
		isNull[r] = true
	}
	for i, v := range vals {
		vector.AppendFixed(vec, v, isNull[i])
	}
	return vec
}

// groupRows indexes the output by group value for order-insensitive
// comparison. NULL group values key as "<NULL>".
func groupRows(t *testing.T, out *batch.Batch) map[string][]any {
	t.Helper()
	rows := make(map[string][]any)
	for i := 0; i < out.Length(); i++ {
		var key string
		if out.Vecs[0].IsNull(uint64(i)) {
			key = "<NULL>"
		} else if out.Vecs[0].GetType().IsVarlen() {
			key = string(out.Vecs[0].GetBytesAt(i))
		} else {
			key = string(out.Vecs[0].RawAt(i))
		}
		var vals []any
		for _, vec := range out.Vecs[1:] {
			if vec.IsNull(uint64(i)) {
				vals = append(vals, nil)
				continue
			}
			switch vec.GetType().Oid {
			case types.T_int64:
				vals = append(vals, vector.MustFixedCol[int64](vec)[i])
			case types.T_uint64:
				vals = append(vals, vector.MustFixedCol[uint64](vec)[i])
			case types.T_float64:
				vals = append(vals, vector.MustFixedCol[float64](vec)[i])
			default:
				vals = append(vals, string(vec.GetBytesAt(i)))
			}
		}
		require.NotContains(t, rows, key, "duplicate group in output")
		rows[key] = vals
	}
	return rows
}

// The canonical example: k=A rows (1, NULL, 7), k=B rows (NULL, NULL).
// sum(v) is 8 for A and NULL for B; count(v) is 2 and 0; count(*) is 3
// and 2.
func TestHashGroupNullSemantics(t *testing.T) {
	exec, err := New([]int32{0}, []types.Type{types.T_varchar.ToType()}, []colexec.Aggregate{
		{Op: aggexec.AggSum, ColIdx: 1, Type: types.T_int64.ToType()},
		{Op: aggexec.AggCount, ColIdx: 1, Type: types.T_int64.ToType()},
		{Op: aggexec.AggStarCount, ColIdx: -1},
	})
	require.NoError(t, err)

	bat := batch.NewWithSize(2)
	bat.Vecs[0] = varcharCol([]string{"A", "A", "B", "A", "B"})
	bat.Vecs[1] = int64Col([]int64{1, 0, 0, 7, 0}, 1, 2, 4)
	require.NoError(t, exec.Update(bat))

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 2, out.Length())

	rows := groupRows(t, out)
	require.Equal(t, []any{int64(8), int64(2), int64(3)}, rows["A"])
	require.Equal(t, []any{nil, int64(0), int64(2)}, rows["B"])
}

// NULL is a group of its own, distinct from every value.
func TestHashGroupNullKey(t *testing.T) {
	exec, err := New([]int32{0}, []types.Type{types.T_varchar.ToType()}, []colexec.Aggregate{
		{Op: aggexec.AggStarCount, ColIdx: -1},
	})
	require.NoError(t, err)

	bat := batch.NewWithSize(1)
	bat.Vecs[0] = varcharCol([]string{"", "x", "", ""}, 0, 2)
	require.NoError(t, exec.Update(bat))

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 3, out.Length())

	rows := groupRows(t, out)
	require.Equal(t, []any{int64(2)}, rows["<NULL>"])
	require.Equal(t, []any{int64(1)}, rows["x"])
	require.Equal(t, []any{int64(1)}, rows[""])
}

func TestHashGroupBatchSplitInsensitive(t *testing.T) {
	newExec := func() *Exec {
		exec, err := New([]int32{0}, []types.Type{types.T_int64.ToType()}, []colexec.Aggregate{
			{Op: aggexec.AggSum, ColIdx: 1, Type: types.T_int64.ToType()},
			{Op: aggexec.AggMin, ColIdx: 1, Type: types.T_int64.ToType()},
		})
		require.NoError(t, err)
		return exec
	}

	keys := []int64{1, 2, 3, 1, 2, 3, 1, 9}
	vals := []int64{5, 4, 0, 1, 1, 1, 2, 100}

	one := newExec()
	bat := batch.NewWithSize(2)
	bat.Vecs[0] = int64Col(keys)
	bat.Vecs[1] = int64Col(vals, 2)
	require.NoError(t, one.Update(bat))

	split := newExec()
	for _, cut := range [][2]int{{0, 3}, {3, 4}, {4, 8}} {
		b := batch.NewWithSize(2)
		b.Vecs[0] = int64Col(keys[cut[0]:cut[1]])
		nullRows := []int{}
		for i := cut[0]; i < cut[1]; i++ {
			if i == 2 {
				nullRows = append(nullRows, i-cut[0])
			}
		}
		b.Vecs[1] = int64Col(vals[cut[0]:cut[1]], nullRows...)
		require.NoError(t, split.Update(b))
	}

	a, err := one.Flush()
	require.NoError(t, err)
	b, err := split.Flush()
	require.NoError(t, err)
	require.Equal(t, groupRows(t, a), groupRows(t, b))
}

func TestHashGroupSelection(t *testing.T) {
	exec, err := New([]int32{0}, []types.Type{types.T_int64.ToType()}, []colexec.Aggregate{
		{Op: aggexec.AggSum, ColIdx: 1, Type: types.T_int64.ToType()},
	})
	require.NoError(t, err)

	bat := batch.NewWithSize(2)
	bat.Vecs[0] = int64Col([]int64{1, 1, 2, 2})
	bat.Vecs[1] = int64Col([]int64{10, 20, 30, 40})
	bat.Sels = []int64{0, 3}
	require.NoError(t, exec.Update(bat))

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 2, out.Length())
	rows := groupRows(t, out)
	require.Len(t, rows, 2)
	for _, vals := range rows {
		require.Len(t, vals, 1)
	}
	require.Equal(t, uint64(2), exec.GroupCount())
}

func TestGrandAggregationEmptyInput(t *testing.T) {
	exec, err := New(nil, nil, []colexec.Aggregate{
		{Op: aggexec.AggStarCount, ColIdx: -1},
		{Op: aggexec.AggSum, ColIdx: 0, Type: types.T_int64.ToType()},
	})
	require.NoError(t, err)

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, out.Length())
	require.Equal(t, int64(0), vector.MustFixedCol[int64](out.Vecs[0])[0])
	require.True(t, out.Vecs[1].IsNull(0))
}

func TestGrandAggregation(t *testing.T) {
	exec, err := New(nil, nil, []colexec.Aggregate{
		{Op: aggexec.AggStarCount, ColIdx: -1},
		{Op: aggexec.AggSum, ColIdx: 0, Type: types.T_int64.ToType()},
	})
	require.NoError(t, err)

	bat := batch.NewWithSize(1)
	bat.Vecs[0] = int64Col([]int64{1, 2, 0}, 2)
	require.NoError(t, exec.Update(bat))

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, out.Length())
	require.Equal(t, int64(3), vector.MustFixedCol[int64](out.Vecs[0])[0])
	require.Equal(t, int64(3), vector.MustFixedCol[int64](out.Vecs[1])[0])
}

func TestHashGroupDistinctAcrossBatches(t *testing.T) {
	exec, err := New([]int32{0}, []types.Type{types.T_int64.ToType()}, []colexec.Aggregate{
		{Op: aggexec.AggSum, Distinct: true, ColIdx: 1, Type: types.T_int64.ToType()},
	})
	require.NoError(t, err)

	for _, vals := range [][]int64{{1, 2}, {2, 3}} {
		bat := batch.NewWithSize(2)
		bat.Vecs[0] = int64Col([]int64{7, 7})
		bat.Vecs[1] = int64Col(vals)
		require.NoError(t, exec.Update(bat))
	}

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, out.Length())
	require.Equal(t, int64(6), vector.MustFixedCol[int64](out.Vecs[1])[0])
}

func TestHashGroupMultiColumnKey(t *testing.T) {
	exec, err := New([]int32{0, 1},
		[]types.Type{types.T_int64.ToType(), types.T_varchar.ToType()},
		[]colexec.Aggregate{{Op: aggexec.AggStarCount, ColIdx: -1}})
	require.NoError(t, err)

	bat := batch.NewWithSize(2)
	bat.Vecs[0] = int64Col([]int64{1, 1, 2, 1})
	bat.Vecs[1] = varcharCol([]string{"a", "b", "a", "a"})
	require.NoError(t, exec.Update(bat))

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 3, out.Length())
	require.Equal(t, uint64(3), exec.GroupCount())
}

// More rows than one insert chunk, so the chunked path gets exercised.
func TestHashGroupManyGroups(t *testing.T) {
	exec, err := New([]int32{0}, []types.Type{types.T_int64.ToType()}, []colexec.Aggregate{
		{Op: aggexec.AggCount, ColIdx: 0, Type: types.T_int64.ToType()},
	})
	require.NoError(t, err)

	n := 3000
	keys := make([]int64, n)
	for i := range keys {
		keys[i] = int64(i % 1000)
	}
	bat := batch.NewWithSize(1)
	bat.Vecs[0] = int64Col(keys)
	require.NoError(t, exec.Update(bat))

	out, err := exec.Flush()
	require.NoError(t, err)
	require.Equal(t, 1000, out.Length())
	for i := 0; i < out.Length(); i++ {
		require.Equal(t, int64(3), vector.MustFixedCol[int64](out.Vecs[1])[i])
	}
}
