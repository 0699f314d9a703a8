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

// Package hashmap wraps the raw hash table with the bulk iterator the
// group executors consume: packed keys go in UnitLimit-sized chunks, dense
// group ordinals come out.
package hashmap

import (
	"github.com/kestreldb/vecagg/pkg/container/hashtable"
)

// UnitLimit is the chunk size of bulk inserts; the executors reuse
// per-chunk scratch buffers of this size.
const UnitLimit = 256

// GroupNotMatch marks a row that maps to no group in the iterator's
// result slice. Valid ordinals are offset by one.
const GroupNotMatch = 0

// StrHashMap maps packed group keys to dense group ordinals starting
// from 1 (0 is GroupNotMatch).
type StrHashMap struct {
	rows    uint64
	hashMap *hashtable.StringHashMap
}

func NewStrMap() *StrHashMap {
	return &StrHashMap{hashMap: hashtable.NewStringHashMap()}
}

// GroupCount returns the number of distinct keys inserted so far.
func (m *StrHashMap) GroupCount() uint64 {
	return m.rows
}

// InsertValue inserts a single key, returning its 1-based group value and
// whether it was new.
func (m *StrHashMap) InsertValue(key []byte) (uint64, bool) {
	ordinal, inserted := m.hashMap.Insert(key)
	if inserted {
		m.rows++
	}
	return ordinal + 1, inserted
}

// Find returns the 1-based group value for key, or GroupNotMatch.
func (m *StrHashMap) Find(key []byte) uint64 {
	ordinal, ok := m.hashMap.Find(key)
	if !ok {
		return GroupNotMatch
	}
	return ordinal + 1
}

type Iterator struct {
	mp       *StrHashMap
	values   []uint64
	inserted []uint8
}

func (m *StrHashMap) NewIterator() *Iterator {
	return &Iterator{
		mp:       m,
		values:   make([]uint64, UnitLimit),
		inserted: make([]uint8, UnitLimit),
	}
}

// Insert inserts up to UnitLimit keys. keys[i] == nil marks an inactive
// row and yields GroupNotMatch. The returned slices alias the iterator's
// scratch buffers and are valid until the next call.
func (itr *Iterator) Insert(keys [][]byte) (values []uint64, inserted []uint8) {
	n := len(keys)
	for i := 0; i < n; i++ {
		itr.inserted[i] = 0
		if keys[i] == nil {
			itr.values[i] = GroupNotMatch
			continue
		}
		v, isNew := itr.mp.InsertValue(keys[i])
		if isNew {
			itr.inserted[i] = 1
		}
		itr.values[i] = v
	}
	return itr.values[:n], itr.inserted[:n]
}
