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

// any_value keeps the first non-NULL value each group sees.

func newAnyValue[T types.FixedSizeT](ityp types.Type) aggexec.AggFuncExec {
	fill := func(_ int64, value T, ov T, _ int64, isEmpty, isNull bool) (T, bool, error) {
		if isNull || !isEmpty {
			return ov, isEmpty, nil
		}
		return value, false, nil
	}
	merge := func(_, _ int64, x, y T, xEmpty, yEmpty bool, _ any) (T, bool, error) {
		if xEmpty && !yEmpty {
			return y, false, nil
		}
		return x, xEmpty, nil
	}
	var zero T
	return newUnary(aggexec.AggAnyValue, nil, false, false, true,
		ityp, ityp, zero, nil, evalIdentity[T], merge, fill)
}

func newAnyValueBytes(ityp types.Type) aggexec.AggFuncExec {
	fill := func(_ int64, value []byte, ov []byte, _ int64, isEmpty, isNull bool) ([]byte, bool, error) {
		if isNull || !isEmpty {
			return ov, isEmpty, nil
		}
		return append(ov[:0], value...), false, nil
	}
	merge := func(_, _ int64, x, y []byte, xEmpty, yEmpty bool, _ any) ([]byte, bool, error) {
		if xEmpty && !yEmpty {
			return append(x[:0], y...), false, nil
		}
		return x, xEmpty, nil
	}
	return newUnary(aggexec.AggAnyValue, nil, false, false, true,
		ityp, ityp, []byte(nil), nil, evalIdentity[[]byte], merge, fill)
}
