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
	"bytes"

	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

func newMinMaxOrdered[T types.OrderedT](op int64, isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	isMin := op == aggexec.AggMin
	better := func(candidate, current T) bool {
		if isMin {
			return candidate < current
		}
		return candidate > current
	}
	fill := func(_ int64, value T, ov T, _ int64, isEmpty, isNull bool) (T, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		if isEmpty || better(value, ov) {
			return value, false, nil
		}
		return ov, false, nil
	}
	merge := func(_, _ int64, x, y T, xEmpty, yEmpty bool, _ any) (T, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		if xEmpty || better(y, x) {
			return y, false, nil
		}
		return x, false, nil
	}
	var zero T
	return newUnary(op, nil, isDistinct, false, true,
		ityp, ityp, zero, nil, evalIdentity[T], merge, fill)
}

func newMinMaxBool(op int64, isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	isMin := op == aggexec.AggMin
	fill := func(_ int64, value bool, ov bool, _ int64, isEmpty, isNull bool) (bool, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		if isEmpty {
			return value, false, nil
		}
		if isMin {
			return ov && value, false, nil
		}
		return ov || value, false, nil
	}
	merge := func(_, _ int64, x, y bool, xEmpty, yEmpty bool, _ any) (bool, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		if xEmpty {
			return y, false, nil
		}
		if isMin {
			return x && y, false, nil
		}
		return x || y, false, nil
	}
	return newUnary(op, nil, isDistinct, false, true,
		ityp, ityp, false, nil, evalIdentity[bool], merge, fill)
}

func newMinMaxBytes(op int64, isDistinct bool, ityp types.Type) aggexec.AggFuncExec {
	isMin := op == aggexec.AggMin
	better := func(candidate, current []byte) bool {
		if isMin {
			return bytes.Compare(candidate, current) < 0
		}
		return bytes.Compare(candidate, current) > 0
	}
	fill := func(_ int64, value []byte, ov []byte, _ int64, isEmpty, isNull bool) ([]byte, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		if isEmpty || better(value, ov) {
			// value aliases the input column, keep an owned copy.
			return append(ov[:0], value...), false, nil
		}
		return ov, false, nil
	}
	merge := func(_, _ int64, x, y []byte, xEmpty, yEmpty bool, _ any) ([]byte, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		if xEmpty || better(y, x) {
			return append(x[:0], y...), false, nil
		}
		return x, false, nil
	}
	return newUnary(op, nil, isDistinct, false, true,
		ityp, ityp, []byte(nil), nil, evalIdentity[[]byte], merge, fill)
}
