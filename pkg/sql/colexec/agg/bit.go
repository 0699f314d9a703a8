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
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

// Bit aggregates operate on the argument's 64-bit unsigned image and
// flush their identity for empty groups: all ones for bit_and, zero for
// bit_or and bit_xor.

func bitInitial(op int64) uint64 {
	if op == aggexec.AggBitAnd {
		return ^uint64(0)
	}
	return 0
}

func bitApply(op int64, x, y uint64) uint64 {
	switch op {
	case aggexec.AggBitAnd:
		return x & y
	case aggexec.AggBitOr:
		return x | y
	default:
		return x ^ y
	}
}

func newBit[T types.Ints | types.UInts](op int64, isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	fill := func(_ int64, value T, ov uint64, _ int64, isEmpty, isNull bool) (uint64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		return bitApply(op, ov, uint64(int64(value))), false, nil
	}
	merge := func(_, _ int64, x, y uint64, xEmpty, yEmpty bool, _ any) (uint64, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		return bitApply(op, x, y), false, nil
	}
	return newUnary(op, nil, isDistinct, false, false,
		ityp, types.T_uint64.ToType(), bitInitial(op), nil, evalIdentity[uint64], merge, fill)
}
