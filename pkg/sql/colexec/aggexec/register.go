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

package aggexec

import (
	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/types"
)

// Maker builds a fresh executor for one (operator, argument type)
// specialization. isDistinct is only passed true when the entry was
// registered with distinct support.
type Maker func(isDistinct bool, ityp types.Type) AggFuncExec

type registryEntry struct {
	maker            Maker
	supportsDistinct bool
}

// registry is populated by the function catalog's init and read-only
// afterwards.
var registry = map[int64]map[types.T]registryEntry{}

// Register installs one specialization. It is meant to be called from
// init functions; later registrations for the same key overwrite earlier
// ones.
func Register(op int64, t types.T, supportsDistinct bool, m Maker) {
	byType, ok := registry[op]
	if !ok {
		byType = map[types.T]registryEntry{}
		registry[op] = byType
	}
	byType[t] = registryEntry{maker: m, supportsDistinct: supportsDistinct}
}

// MakeAgg resolves the (operator, argument type) specialization at setup
// time. Unknown operators and unsupported argument types fail here, never
// during execution.
func MakeAgg(op int64, isDistinct bool, ityp types.Type) (AggFuncExec, error) {
	byType, ok := registry[op]
	if !ok {
		return nil, verr.NewUnsupportedFunction("unknown aggregate function id %d", op)
	}
	entry, ok := byType[ityp.Oid]
	if !ok {
		return nil, verr.NewUnsupportedFunction("aggregate %s does not support argument type %s", Names[op], ityp)
	}
	if isDistinct && !entry.supportsDistinct {
		return nil, verr.NewUnsupportedFunction("aggregate %s does not support distinct", Names[op])
	}
	return entry.maker(isDistinct, ityp), nil
}
