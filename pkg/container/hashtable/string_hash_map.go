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

// Package hashtable implements the open-addressing hash table behind the
// engine's group maps: byte-string keys mapped to dense uint64 ordinals.
package hashtable

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

const (
	initialBucketCntBits = 10
	initialBucketCnt     = 1 << initialBucketCntBits
	defaultLoadFactor    = 0.5
)

type stringHashMapCell struct {
	hash   uint64
	mapped uint64 // ordinal + 1; 0 marks an empty cell
	key    []byte
}

type StringHashMap struct {
	bucketCntBits uint8
	bucketCnt     uint64
	elemCnt       uint64
	maxElemCnt    uint64
	cells         []stringHashMapCell
}

func NewStringHashMap() *StringHashMap {
	return &StringHashMap{
		bucketCntBits: initialBucketCntBits,
		bucketCnt:     initialBucketCnt,
		maxElemCnt:    initialBucketCnt * defaultLoadFactor,
		cells:         make([]stringHashMapCell, initialBucketCnt),
	}
}

func (ht *StringHashMap) Cardinality() uint64 {
	return ht.elemCnt
}

// Insert returns the ordinal mapped to key, assigning the next dense
// ordinal when the key is new. The second result reports insertion.
// The key bytes are copied on first insertion.
func (ht *StringHashMap) Insert(key []byte) (uint64, bool) {
	if ht.elemCnt >= ht.maxElemCnt {
		ht.grow()
	}
	hash := xxhash.Sum64(key)
	cell := ht.findCell(hash, key)
	if cell.mapped != 0 {
		return cell.mapped - 1, false
	}
	owned := make([]byte, len(key))
	copy(owned, key)
	ht.elemCnt++
	cell.hash = hash
	cell.mapped = ht.elemCnt
	cell.key = owned
	return cell.mapped - 1, true
}

// Find returns the ordinal for key and whether it is present.
func (ht *StringHashMap) Find(key []byte) (uint64, bool) {
	cell := ht.findCell(xxhash.Sum64(key), key)
	if cell.mapped == 0 {
		return 0, false
	}
	return cell.mapped - 1, true
}

func (ht *StringHashMap) findCell(hash uint64, key []byte) *stringHashMapCell {
	mask := ht.bucketCnt - 1
	for idx := hash & mask; ; idx = (idx + 1) & mask {
		cell := &ht.cells[idx]
		if cell.mapped == 0 || (cell.hash == hash && bytes.Equal(cell.key, key)) {
			return cell
		}
	}
}

func (ht *StringHashMap) grow() {
	oldCells := ht.cells
	ht.bucketCntBits += 2
	ht.bucketCnt = 1 << ht.bucketCntBits
	ht.maxElemCnt = uint64(float64(ht.bucketCnt) * defaultLoadFactor)
	ht.cells = make([]stringHashMapCell, ht.bucketCnt)

	mask := ht.bucketCnt - 1
	for i := range oldCells {
		old := &oldCells[i]
		if old.mapped == 0 {
			continue
		}
		for idx := old.hash & mask; ; idx = (idx + 1) & mask {
			cell := &ht.cells[idx]
			if cell.mapped == 0 {
				*cell = *old
				break
			}
		}
	}
}
