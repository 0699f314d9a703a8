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

// Package nulls tracks the NULL rows of one column as a roaring bitmap.
// A nil *Nulls (or one with no set bits) means the column has no NULLs;
// every accessor tolerates the nil receiver.
package nulls

import (
	"github.com/RoaringBitmap/roaring"
)

type Nulls struct {
	np *roaring.Bitmap
}

func NewWithSize(int) *Nulls {
	return &Nulls{np: roaring.New()}
}

// Build returns a nulls set containing the given rows.
func Build(size int, rows ...uint64) *Nulls {
	nsp := NewWithSize(size)
	nsp.Add(rows...)
	return nsp
}

func (nsp *Nulls) Clone() *Nulls {
	if nsp == nil || nsp.np == nil {
		return nil
	}
	return &Nulls{np: nsp.np.Clone()}
}

func (nsp *Nulls) Add(rows ...uint64) {
	if len(rows) == 0 {
		return
	}
	if nsp.np == nil {
		nsp.np = roaring.New()
	}
	for _, row := range rows {
		nsp.np.Add(uint32(row))
	}
}

func (nsp *Nulls) Contains(row uint64) bool {
	return nsp != nil && nsp.np != nil && nsp.np.Contains(uint32(row))
}

// Any reports whether at least one row is NULL.
func (nsp *Nulls) Any() bool {
	return nsp != nil && nsp.np != nil && !nsp.np.IsEmpty()
}

func (nsp *Nulls) Count() int {
	if nsp == nil || nsp.np == nil {
		return 0
	}
	return int(nsp.np.GetCardinality())
}

func (nsp *Nulls) Reset() {
	if nsp != nil && nsp.np != nil {
		nsp.np.Clear()
	}
}

// Or merges the other set into nsp.
func (nsp *Nulls) Or(other *Nulls) {
	if !other.Any() {
		return
	}
	if nsp.np == nil {
		nsp.np = roaring.New()
	}
	nsp.np.Or(other.np)
}

func (nsp *Nulls) MarshalBinary() ([]byte, error) {
	if nsp == nil || nsp.np == nil {
		return nil, nil
	}
	return nsp.np.ToBytes()
}

func (nsp *Nulls) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		nsp.np = nil
		return nil
	}
	nsp.np = roaring.New()
	return nsp.np.UnmarshalBinary(data)
}
