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

// DefaultGroupConcatSep matches the MySQL default separator.
const DefaultGroupConcatSep = ","

// newGroupConcat joins each group's non-NULL values in fill order. The
// merge direction follows Merge's argument order, so partial states
// concatenate the way their sources were scanned.
func newGroupConcat(isDistinct bool, ityp types.Type, sep string) aggexec.AggFuncExec {
	fill := func(_ int64, value []byte, ov []byte, _ int64, isEmpty, isNull bool) ([]byte, bool, error) {
		if isNull {
			return ov, isEmpty, nil
		}
		if !isEmpty {
			ov = append(ov, sep...)
		}
		return append(ov, value...), false, nil
	}
	merge := func(_, _ int64, x, y []byte, xEmpty, yEmpty bool, _ any) ([]byte, bool, error) {
		if yEmpty {
			return x, xEmpty, nil
		}
		if xEmpty {
			return append(x[:0], y...), false, nil
		}
		x = append(x, sep...)
		return append(x, y...), false, nil
	}
	otyp := types.T_text.ToType()
	return newUnary(aggexec.AggGroupConcat, nil, isDistinct, false, true,
		ityp, otyp, []byte(nil), nil, evalIdentity[[]byte], merge, fill)
}
