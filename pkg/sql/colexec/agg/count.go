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

// count(col) skips NULL rows, count(*) counts every row. Both flush 0 for
// groups that never saw input.

func countMerge(_, _ int64, x, y int64, xEmpty, yEmpty bool, _ any) (int64, bool, error) {
	return x + y, xEmpty && yEmpty, nil
}

func newCount[T any](isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	fill := func(_ int64, _ T, ov int64, z int64, isEmpty, isNull bool) (int64, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		return ov + z, false, nil
	}
	return newUnary(aggexec.AggCount, nil, isDistinct, false, false,
		ityp, types.T_int64.ToType(), int64(0), nil, evalIdentity[int64], countMerge, fill)
}

func newStarCount(ityp types.Type) aggexec.AggFuncExec {
	fill := func(_ int64, _ struct{}, ov int64, z int64, _ bool, _ bool) (int64, bool, error) {
		return ov + z, false, nil
	}
	return newUnary(aggexec.AggStarCount, nil, false, true, false,
		ityp, types.T_int64.ToType(), int64(0), nil, evalIdentity[int64], countMerge, fill)
}
