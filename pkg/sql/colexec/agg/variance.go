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

package agg

import (
	"math"

	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

// Variance accumulates the sum of squares in the executor's accumulator
// and keeps the plain sums and row counts here, so partial states merge
// by simple addition. eval turns the moments into population variance.
type Variance struct {
	Sums []float64
	Cnts []int64
}

func (v *Variance) Grows(n int) {
	for i := 0; i < n; i++ {
		v.Sums = append(v.Sums, 0)
		v.Cnts = append(v.Cnts, 0)
	}
}

func (v *Variance) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8+16*len(v.Cnts))
	buf = append(buf, types.EncodeFixed(uint64(len(v.Cnts)))...)
	buf = append(buf, types.EncodeSlice(v.Sums)...)
	buf = append(buf, types.EncodeSlice(v.Cnts)...)
	owned := make([]byte, len(buf))
	copy(owned, buf)
	return owned, nil
}

func (v *Variance) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return verr.NewEncoding("variance state truncated: %d bytes", len(data))
	}
	n := int(types.DecodeFixed[uint64](data))
	data = data[8:]
	if len(data) != 16*n {
		return verr.NewEncoding("variance state has %d bytes for %d groups", len(data), n)
	}
	v.Sums = append(v.Sums[:0], types.DecodeSlice[float64](data[:8*n])...)
	v.Cnts = append(v.Cnts[:0], types.DecodeSlice[int64](data[8*n:])...)
	return nil
}

func (v *Variance) Reset() {
	v.Sums = v.Sums[:0]
	v.Cnts = v.Cnts[:0]
}

func newVariance[T types.Number](op int64, isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	priv := &Variance{}
	fill := func(groupIdx int64, value T, ov float64, z int64, isEmpty, isNull bool) (float64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		f := float64(value)
		priv.Sums[groupIdx] += f
		priv.Cnts[groupIdx] += z
		return ov + f*f, false, nil
	}
	merge := func(groupIdx1, groupIdx2 int64, x, y float64, xEmpty, yEmpty bool, otherPriv any) (float64, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		o := otherPriv.(*Variance)
		priv.Sums[groupIdx1] += o.Sums[groupIdx2]
		priv.Cnts[groupIdx1] += o.Cnts[groupIdx2]
		return x + y, false, nil
	}
	eval := func(vs []float64) ([]float64, error) {
		for i := range vs {
			cnt := float64(priv.Cnts[i])
			if cnt == 0 {
				continue
			}
			mean := priv.Sums[i] / cnt
			variance := vs[i]/cnt - mean*mean
			if variance < 0 {
				// floating point noise around zero
				variance = 0
			}
			if op == aggexec.AggStddevPop {
				variance = math.Sqrt(variance)
			}
			vs[i] = variance
		}
		return vs, nil
	}
	return newUnary(op, priv, isDistinct, false, true,
		ityp, types.T_float64.ToType(), float64(0), priv.Grows, eval, merge, fill)
}
