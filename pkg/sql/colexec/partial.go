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

package colexec

import (
	"encoding/binary"

	"github.com/pierrec/lz4/v4"

	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/batch"
	"github.com/kestreldb/vecagg/pkg/container/vector"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

// DefaultCompressThreshold is the serialized size above which a partial
// result is lz4-compressed before shipping.
const DefaultCompressThreshold = 16 * 1024

const (
	partialPlain      = 0
	partialCompressed = 1
)

// EncodePartialResult serializes a partial-result batch (group columns
// plus live accumulator states) for a peer's MergePartial. Payloads
// larger than threshold travel lz4-compressed; threshold <= 0 uses the
// default.
func EncodePartialResult(bat *batch.Batch, threshold int) ([]byte, error) {
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}

	var buf []byte
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(bat.Vecs)))
	for _, vec := range bat.Vecs {
		b, err := vec.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
		buf = append(buf, b...)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(bat.Aggs)))
	for i, raw := range bat.Aggs {
		agg, ok := raw.(aggexec.AggFuncExec)
		if !ok {
			return nil, verr.NewInvalidInput("partial result state %d is not an aggregate executor", i)
		}
		b, err := aggexec.MarshalAggFuncExec(agg)
		if err != nil {
			return nil, err
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
		buf = append(buf, b...)
	}

	if len(buf) <= threshold {
		return append([]byte{partialPlain}, buf...), nil
	}

	out := make([]byte, 5+lz4.CompressBlockBound(len(buf)))
	out[0] = partialCompressed
	binary.BigEndian.PutUint32(out[1:], uint32(len(buf)))
	n, err := lz4.CompressBlock(buf, out[5:], nil)
	if err != nil {
		return nil, verr.NewEncoding("compressing partial result: %v", err)
	}
	if n == 0 {
		// incompressible payload, keep it plain
		return append([]byte{partialPlain}, buf...), nil
	}
	return out[:5+n], nil
}

// DecodePartialResult is the inverse of EncodePartialResult. The
// aggregate states are rebuilt through the factory from their
// self-describing payloads.
func DecodePartialResult(data []byte) (*batch.Batch, error) {
	if len(data) < 1 {
		return nil, verr.NewEncoding("partial result is empty")
	}
	mode := data[0]
	data = data[1:]

	switch mode {
	case partialPlain:
	case partialCompressed:
		if len(data) < 4 {
			return nil, verr.NewEncoding("partial result truncated: missing raw size")
		}
		rawSize := binary.BigEndian.Uint32(data)
		raw := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(data[4:], raw)
		if err != nil {
			return nil, verr.NewEncoding("decompressing partial result: %v", err)
		}
		if uint32(n) != rawSize {
			return nil, verr.NewEncoding("partial result decompressed to %d bytes, expected %d", n, rawSize)
		}
		data = raw
	default:
		return nil, verr.NewEncoding("unknown partial result mode %d", mode)
	}

	readChunk := func() ([]byte, error) {
		if len(data) < 4 {
			return nil, verr.NewEncoding("partial result truncated")
		}
		n := binary.BigEndian.Uint32(data)
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, verr.NewEncoding("partial result truncated: chunk needs %d bytes", n)
		}
		b := data[:n]
		data = data[n:]
		return b, nil
	}

	if len(data) < 4 {
		return nil, verr.NewEncoding("partial result truncated: missing vector count")
	}
	nVecs := binary.BigEndian.Uint32(data)
	data = data[4:]

	bat := batch.NewWithSize(int(nVecs))
	for i := range bat.Vecs {
		b, err := readChunk()
		if err != nil {
			return nil, err
		}
		vec := &vector.Vector{}
		if err = vec.UnmarshalBinary(b); err != nil {
			return nil, err
		}
		bat.Vecs[i] = vec
	}

	if len(data) < 4 {
		return nil, verr.NewEncoding("partial result truncated: missing aggregate count")
	}
	nAggs := binary.BigEndian.Uint32(data)
	data = data[4:]

	bat.Aggs = make([]any, nAggs)
	for i := range bat.Aggs {
		b, err := readChunk()
		if err != nil {
			return nil, err
		}
		agg, err := aggexec.UnmarshalAggFuncExec(b)
		if err != nil {
			return nil, err
		}
		bat.Aggs[i] = agg
	}
	return bat, nil
}
