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

// Package agg is the aggregate function catalog. Each file implements one
// function family as fill/merge/eval callbacks over the generic executor;
// register.go binds every supported (function, argument type) pair into
// the factory.
package agg

import (
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

func evalIdentity[T any](vs []T) ([]T, error) {
	return vs, nil
}

// newUnary picks the plain or distinct executor for one specialization.
func newUnary[T1, T2 any](
	op int64, priv aggexec.AggStruct, isDistinct, isStarCount, emitNullForEmpty bool,
	ityp, otyp types.Type, initial T2,
	grows func(int),
	eval func([]T2) ([]T2, error),
	merge func(int64, int64, T2, T2, bool, bool, any) (T2, bool, error),
	fill func(int64, T1, T2, int64, bool, bool) (T2, bool, error)) aggexec.AggFuncExec {
	if isDistinct {
		return aggexec.NewUnaryDistAgg(op, priv, isStarCount, emitNullForEmpty,
			ityp, otyp, initial, grows, eval, merge, fill)
	}
	return aggexec.NewUnaryAgg(op, priv, isStarCount, emitNullForEmpty,
		ityp, otyp, initial, grows, eval, merge, fill)
}
