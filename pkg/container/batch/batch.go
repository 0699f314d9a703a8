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

// Package batch defines the columnar batch the engine consumes and
// produces: an ordered list of vectors, optionally restricted by a
// selection list of active row numbers.
package batch

import (
	"github.com/kestreldb/vecagg/pkg/container/vector"
)

type Batch struct {
	// Attrs are the column names, informational only.
	Attrs []string
	// Vecs are the columns. All share one length.
	Vecs []*vector.Vector
	// Sels restricts which logical rows are active. nil means all rows.
	// Never mutated by the engine.
	Sels []int64

	// Aggs carries live accumulator state rows on partially aggregated
	// batches travelling between executors. Opaque to this package.
	Aggs []any
}

func NewWithSize(n int) *Batch {
	return &Batch{Vecs: make([]*vector.Vector, n)}
}

func New(attrs []string) *Batch {
	return &Batch{
		Attrs: attrs,
		Vecs:  make([]*vector.Vector, len(attrs)),
	}
}

// Length is the physical row count of the batch's vectors.
func (b *Batch) Length() int {
	if b == nil || len(b.Vecs) == 0 {
		return 0
	}
	return b.Vecs[0].Length()
}

// RowCount is the number of active rows, honoring the selection.
func (b *Batch) RowCount() int {
	if b == nil {
		return 0
	}
	if b.Sels != nil {
		return len(b.Sels)
	}
	return b.Length()
}

// Row maps an active-row ordinal to the physical row number.
func (b *Batch) Row(i int) int64 {
	if b.Sels != nil {
		return b.Sels[i]
	}
	return int64(i)
}
