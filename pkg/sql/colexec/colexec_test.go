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

package colexec_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestreldb/vecagg/pkg/container/batch"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/container/vector"
	"github.com/kestreldb/vecagg/pkg/sql/colexec"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/group"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/mergegroup"
)

type sliceSource struct {
	batches []*batch.Batch
	pos     int
}

func (s *sliceSource) Next(_ context.Context) (*batch.Batch, error) {
	if s.pos >= len(s.batches) {
		return nil, nil
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

func int64Col(vals []int64) *vector.Vector {
	vec := vector.NewVec(types.T_int64.ToType())
	for _, v := range vals {
		vector.AppendFixed(vec, v, false)
	}
	return vec
}

func twoColBatch(keys, vals []int64) *batch.Batch {
	bat := batch.NewWithSize(2)
	bat.Vecs[0] = int64Col(keys)
	bat.Vecs[1] = int64Col(vals)
	return bat
}

func sumSpec() []colexec.Aggregate {
	return []colexec.Aggregate{
		{Op: aggexec.AggSum, ColIdx: 1, Type: types.T_int64.ToType()},
	}
}

func groupTypes() []types.Type {
	return []types.Type{types.T_int64.ToType()}
}

func TestDriverRun(t *testing.T) {
	src := &sliceSource{batches: []*batch.Batch{
		twoColBatch([]int64{1, 2}, []int64{10, 20}),
		twoColBatch([]int64{1, 3}, []int64{5, 30}),
	}}
	exec, err := group.New([]int32{0}, groupTypes(), sumSpec())
	require.NoError(t, err)

	out, err := colexec.NewDriver(src, exec, false).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, out.Length())

	keys := vector.MustFixedCol[int64](out.Vecs[0])
	sums := vector.MustFixedCol[int64](out.Vecs[1])
	got := make(map[int64]int64, len(keys))
	for i, k := range keys {
		got[k] = sums[i]
	}
	require.Equal(t, map[int64]int64{1: 15, 2: 20, 3: 30}, got)
}

func TestDriverCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &sliceSource{batches: []*batch.Batch{
		twoColBatch([]int64{1}, []int64{1}),
	}}
	exec, err := group.New([]int32{0}, groupTypes(), sumSpec())
	require.NoError(t, err)

	_, err = colexec.NewDriver(src, exec, false).Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParallelDriver(t *testing.T) {
	sources := []colexec.Source{
		&sliceSource{batches: []*batch.Batch{twoColBatch([]int64{1, 2}, []int64{1, 2})}},
		&sliceSource{batches: []*batch.Batch{twoColBatch([]int64{2, 3}, []int64{3, 4})}},
		&sliceSource{batches: []*batch.Batch{twoColBatch([]int64{1, 3}, []int64{5, 6})}},
	}
	newExec := func() (colexec.Exec, error) {
		return group.New([]int32{0}, groupTypes(), sumSpec())
	}
	merger, err := mergegroup.New(groupTypes(), sumSpec())
	require.NoError(t, err)

	out, err := colexec.NewParallelDriver(sources, newExec, merger, 2).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, out.Length())

	keys := vector.MustFixedCol[int64](out.Vecs[0])
	sums := vector.MustFixedCol[int64](out.Vecs[1])
	got := make(map[int64]int64, len(keys))
	for i, k := range keys {
		got[k] = sums[i]
	}
	require.Equal(t, map[int64]int64{1: 6, 2: 5, 3: 10}, got)
}

func TestPartialResultCodecRoundtrip(t *testing.T) {
	exec, err := group.New([]int32{0}, groupTypes(), sumSpec())
	require.NoError(t, err)
	require.NoError(t, exec.Update(twoColBatch([]int64{1, 2, 1}, []int64{1, 2, 3})))
	partial, err := exec.PartialResult()
	require.NoError(t, err)

	data, err := colexec.EncodePartialResult(partial, 0)
	require.NoError(t, err)

	restored, err := colexec.DecodePartialResult(data)
	require.NoError(t, err)
	require.Len(t, restored.Vecs, 1)
	require.Len(t, restored.Aggs, 1)
	require.Equal(t, partial.Vecs[0].Length(), restored.Vecs[0].Length())

	agg, ok := restored.Aggs[0].(aggexec.AggFuncExec)
	require.True(t, ok)
	require.Equal(t, aggexec.AggSum, agg.OperatorID())
}

func TestPartialResultCompression(t *testing.T) {
	keys := make([]int64, 4000)
	vals := make([]int64, 4000)
	for i := range keys {
		keys[i] = int64(i)
		vals[i] = int64(i)
	}
	exec, err := group.New([]int32{0}, groupTypes(), sumSpec())
	require.NoError(t, err)
	require.NoError(t, exec.Update(twoColBatch(keys, vals)))
	partial, err := exec.PartialResult()
	require.NoError(t, err)

	small, err := colexec.EncodePartialResult(partial, 1)
	require.NoError(t, err)
	big, err := colexec.EncodePartialResult(partial, 1<<30)
	require.NoError(t, err)
	require.Less(t, len(small), len(big))

	for _, data := range [][]byte{small, big} {
		restored, err := colexec.DecodePartialResult(data)
		require.NoError(t, err)

		merger, err := mergegroup.New(groupTypes(), sumSpec())
		require.NoError(t, err)
		require.NoError(t, merger.Update(restored))
		out, err := merger.Flush()
		require.NoError(t, err)
		require.Equal(t, 4000, out.Length())
	}
}

func TestDecodePartialResultRejectsGarbage(t *testing.T) {
	_, err := colexec.DecodePartialResult(nil)
	require.Error(t, err)
	_, err = colexec.DecodePartialResult([]byte{9})
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
parallelism = 4
partial-compress-threshold = 1024

[log]
level = "debug"
`), 0o644))

	cfg, err := colexec.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Parallelism)
	require.Equal(t, 1024, cfg.PartialCompressThreshold)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestConfigValidate(t *testing.T) {
	cfg := colexec.Config{Parallelism: -1}
	require.Error(t, cfg.Validate())

	cfg = colexec.Config{}
	require.NoError(t, cfg.Validate())
	require.Greater(t, cfg.Parallelism, 0)
	require.Equal(t, colexec.DefaultCompressThreshold, cfg.PartialCompressThreshold)
}
