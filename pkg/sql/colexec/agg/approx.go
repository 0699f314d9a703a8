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
	"github.com/axiomhq/hyperloglog"

	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

// ApproxCountDistinct keeps one hyperloglog sketch per group; the
// accumulator only receives the estimate at eval time. Sketches of the
// same group merge losslessly, so partial aggregation distributes.
type ApproxCountDistinct struct {
	Sketches []*hyperloglog.Sketch
}

func (a *ApproxCountDistinct) Grows(n int) {
	for i := 0; i < n; i++ {
		a.Sketches = append(a.Sketches, hyperloglog.New())
	}
}

func (a *ApproxCountDistinct) MarshalBinary() ([]byte, error) {
	var buf []byte
	buf = append(buf, types.EncodeFixed(uint64(len(a.Sketches)))...)
	for _, sk := range a.Sketches {
		b, err := sk.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = append(buf, types.EncodeFixed(uint64(len(b)))...)
		buf = append(buf, b...)
	}
	return buf, nil
}

func (a *ApproxCountDistinct) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return verr.NewEncoding("approx_count_distinct state truncated: %d bytes", len(data))
	}
	n := int(types.DecodeFixed[uint64](data))
	data = data[8:]
	a.Sketches = a.Sketches[:0]
	for i := 0; i < n; i++ {
		if len(data) < 8 {
			return verr.NewEncoding("approx_count_distinct state truncated: missing sketch %d", i)
		}
		sz := int(types.DecodeFixed[uint64](data))
		data = data[8:]
		if len(data) < sz {
			return verr.NewEncoding("approx_count_distinct state truncated: sketch %d needs %d bytes", i, sz)
		}
		sk := hyperloglog.New()
		if err := sk.UnmarshalBinary(data[:sz]); err != nil {
			return err
		}
		a.Sketches = append(a.Sketches, sk)
		data = data[sz:]
	}
	return nil
}

func (a *ApproxCountDistinct) Reset() {
	a.Sketches = a.Sketches[:0]
}

func newApproxCountDistinct[T types.FixedSizeT](ityp types.Type) aggexec.AggFuncExec {
	priv := &ApproxCountDistinct{}
	fill := func(groupIdx int64, value T, ov uint64, _ int64, isEmpty, isNull bool) (uint64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		priv.Sketches[groupIdx].Insert(types.EncodeFixed(value))
		return ov, false, nil
	}
	merge := func(groupIdx1, groupIdx2 int64, x, _ uint64, xEmpty, yEmpty bool, otherPriv any) (uint64, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		o := otherPriv.(*ApproxCountDistinct)
		if err := priv.Sketches[groupIdx1].Merge(o.Sketches[groupIdx2]); err != nil {
			return x, xEmpty, err
		}
		return x, false, nil
	}
	eval := func(vs []uint64) ([]uint64, error) {
		for i := range vs {
			vs[i] = priv.Sketches[i].Estimate()
		}
		return vs, nil
	}
	return newUnary(aggexec.AggApproxCountDistinct, priv, false, false, false,
		ityp, types.T_uint64.ToType(), uint64(0), priv.Grows, eval, merge, fill)
}

func newApproxCountDistinctBytes(ityp types.Type) aggexec.AggFuncExec {
	priv := &ApproxCountDistinct{}
	fill := func(groupIdx int64, value []byte, ov uint64, _ int64, isEmpty, isNull bool) (uint64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		priv.Sketches[groupIdx].Insert(value)
		return ov, false, nil
	}
	merge := func(groupIdx1, groupIdx2 int64, x, _ uint64, xEmpty, yEmpty bool, otherPriv any) (uint64, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		o := otherPriv.(*ApproxCountDistinct)
		if err := priv.Sketches[groupIdx1].Merge(o.Sketches[groupIdx2]); err != nil {
			return x, xEmpty, err
		}
		return x, false, nil
	}
	eval := func(vs []uint64) ([]uint64, error) {
		for i := range vs {
			vs[i] = priv.Sketches[i].Estimate()
		}
		return vs, nil
	}
	return newUnary(aggexec.AggApproxCountDistinct, priv, false, false, false,
		ityp, types.T_uint64.ToType(), uint64(0), priv.Grows, eval, merge, fill)
}
