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

// SumReturnType widens the argument: signed ints sum into BIGINT,
// unsigned into BIGINT UNSIGNED, floats into DOUBLE.
func SumReturnType(t types.Type) types.Type {
	switch t.Oid {
	case types.T_int8, types.T_int16, types.T_int32, types.T_int64:
		return types.T_int64.ToType()
	case types.T_uint8, types.T_uint16, types.T_uint32, types.T_uint64:
		return types.T_uint64.ToType()
	default:
		return types.T_float64.ToType()
	}
}

func addInt64Checked(x, y int64) (int64, error) {
	r := x + y
	if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
		return 0, verr.NewOverflow("sum of BIGINT overflows: %d + %d", x, y)
	}
	return r, nil
}

func addUint64Checked(x, y uint64) (uint64, error) {
	r := x + y
	if r < x {
		return 0, verr.NewOverflow("sum of BIGINT UNSIGNED overflows: %d + %d", x, y)
	}
	return r, nil
}

func newSumSigned[T types.Ints](isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	fill := func(_ int64, value T, ov int64, _ int64, isEmpty, isNull bool) (int64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		nv, err := addInt64Checked(ov, int64(value))
		return nv, false, err
	}
	merge := func(_, _ int64, x, y int64, xEmpty, yEmpty bool, _ any) (int64, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		nv, err := addInt64Checked(x, y)
		return nv, false, err
	}
	return newUnary(aggexec.AggSum, nil, isDistinct, false, true,
		ityp, types.T_int64.ToType(), int64(0), nil, evalIdentity[int64], merge, fill)
}

func newSumUnsigned[T types.UInts](isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	fill := func(_ int64, value T, ov uint64, _ int64, isEmpty, isNull bool) (uint64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		nv, err := addUint64Checked(ov, uint64(value))
		return nv, false, err
	}
	merge := func(_, _ int64, x, y uint64, xEmpty, yEmpty bool, _ any) (uint64, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		nv, err := addUint64Checked(x, y)
		return nv, false, err
	}
	return newUnary(aggexec.AggSum, nil, isDistinct, false, true,
		ityp, types.T_uint64.ToType(), uint64(0), nil, evalIdentity[uint64], merge, fill)
}

func newSumFloat[T types.Floats](isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	fill := func(_ int64, value T, ov float64, _ int64, isEmpty, isNull bool) (float64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		return ov + float64(value), false, nil
	}
	merge := func(_, _ int64, x, y float64, xEmpty, yEmpty bool, _ any) (float64, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		return x + y, false, nil
	}
	return newUnary(aggexec.AggSum, nil, isDistinct, false, true,
		ityp, types.T_float64.ToType(), float64(0), nil, evalIdentity[float64], merge, fill)
}
