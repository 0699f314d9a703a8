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
	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

// Avg keeps the running sum in the accumulator and the per-group row
// counts in its private state; eval divides at flush time.
type Avg struct {
	Cnts []int64
}

func (a *Avg) Grows(n int) {
	for i := 0; i < n; i++ {
		a.Cnts = append(a.Cnts, 0)
	}
}

func (a *Avg) MarshalBinary() ([]byte, error) {
	raw := types.EncodeSlice(a.Cnts)
	owned := make([]byte, len(raw))
	copy(owned, raw)
	return owned, nil
}

func (a *Avg) UnmarshalBinary(data []byte) error {
	if len(data)%8 != 0 {
		return verr.NewEncoding("avg state has %d count bytes", len(data))
	}
	a.Cnts = append(a.Cnts[:0], types.DecodeSlice[int64](data)...)
	return nil
}

func (a *Avg) Reset() {
	a.Cnts = a.Cnts[:0]
}

func newAvg[T types.Number](isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	priv := &Avg{}
	fill := func(groupIdx int64, value T, ov float64, z int64, isEmpty, isNull bool) (float64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		priv.Cnts[groupIdx] += z
		return ov + float64(value), false, nil
	}
	merge := func(groupIdx1, groupIdx2 int64, x, y float64, xEmpty, yEmpty bool, otherPriv any) (float64, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		priv.Cnts[groupIdx1] += otherPriv.(*Avg).Cnts[groupIdx2]
		return x + y, false, nil
	}
	eval := func(vs []float64) ([]float64, error) {
		for i := range vs {
			if priv.Cnts[i] != 0 {
				vs[i] /= float64(priv.Cnts[i])
			}
		}
		return vs, nil
	}
	return newUnary(aggexec.AggAvg, priv, isDistinct, false, true,
		ityp, types.T_float64.ToType(), float64(0), priv.Grows, eval, merge, fill)
}
