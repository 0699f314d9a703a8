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

// Package vector implements the typed columnar arrays batches are made
// of. Fixed-width types live in one contiguous byte buffer reinterpreted
// through types.DecodeSlice; varlen types keep one byte slice per row.
package vector

import (
	"encoding/binary"

	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/nulls"
	"github.com/kestreldb/vecagg/pkg/container/types"
)

type Vector struct {
	typ types.Type

	// data backs fixed-width values; bs backs varlen values. Exactly one
	// of the two is in use, decided by the type.
	data []byte
	bs   [][]byte

	nsp    *nulls.Nulls
	length int
}

func NewVec(typ types.Type) *Vector {
	return &Vector{typ: typ, nsp: &nulls.Nulls{}}
}

func (v *Vector) GetType() *types.Type {
	return &v.typ
}

func (v *Vector) Length() int {
	return v.length
}

func (v *Vector) GetNulls() *nulls.Nulls {
	return v.nsp
}

func (v *Vector) IsNull(row uint64) bool {
	return v.nsp.Contains(row)
}

// MustFixedCol reinterprets the vector's storage as a typed slice.
// Valid only for fixed-width vectors.
func MustFixedCol[T any](v *Vector) []T {
	return types.DecodeSlice[T](v.data)
}

func (v *Vector) GetBytesAt(row int) []byte {
	return v.bs[row]
}

// RawAt returns the canonical raw bytes of one value, usable as a
// deduplication key. NULL rows return nil.
func (v *Vector) RawAt(row int) []byte {
	if v.IsNull(uint64(row)) {
		return nil
	}
	if v.typ.IsVarlen() {
		return v.bs[row]
	}
	sz := v.typ.TypeSize()
	return v.data[row*sz : (row+1)*sz]
}

func AppendFixed[T any](v *Vector, val T, isNull bool) {
	if isNull {
		v.nsp.Add(uint64(v.length))
		var zero T
		val = zero
	}
	v.data = append(v.data, types.EncodeSlice([]T{val})...)
	v.length++
}

func AppendBytes(v *Vector, val []byte, isNull bool) {
	if isNull {
		v.nsp.Add(uint64(v.length))
		val = nil
	}
	owned := make([]byte, len(val))
	copy(owned, val)
	v.bs = append(v.bs, owned)
	v.length++
}

// AppendFixedList bulk-appends values; empties[i] true marks row i NULL.
// A nil empties appends all values as valid.
func AppendFixedList[T any](v *Vector, vals []T, empties []bool) {
	for i, val := range vals {
		AppendFixed(v, val, empties != nil && empties[i])
	}
}

func AppendBytesList(v *Vector, vals [][]byte, empties []bool) {
	for i, val := range vals {
		AppendBytes(v, val, empties != nil && empties[i])
	}
}

// UnionOne appends row of src to v. The vectors must share a type.
func (v *Vector) UnionOne(src *Vector, row int) error {
	if !v.typ.Eq(*src.GetType()) {
		return verr.NewInternal("union of %s vector with %s vector", v.typ, src.GetType())
	}
	isNull := src.IsNull(uint64(row))
	if v.typ.IsVarlen() {
		if isNull {
			AppendBytes(v, nil, true)
		} else {
			AppendBytes(v, src.GetBytesAt(row), false)
		}
		return nil
	}
	sz := v.typ.TypeSize()
	if isNull {
		v.nsp.Add(uint64(v.length))
		v.data = append(v.data, make([]byte, sz)...)
	} else {
		v.data = append(v.data, src.data[row*sz:(row+1)*sz]...)
	}
	v.length++
	return nil
}

// EncodeValue packs the value at row into p using the group key codec.
func (v *Vector) EncodeValue(p *types.Packer, row int) error {
	if v.IsNull(uint64(row)) {
		p.EncodeNull()
		return nil
	}
	switch v.typ.Oid {
	case types.T_bool:
		p.EncodeBool(MustFixedCol[bool](v)[row])
	case types.T_int8:
		p.EncodeInt8(MustFixedCol[int8](v)[row])
	case types.T_int16:
		p.EncodeInt16(MustFixedCol[int16](v)[row])
	case types.T_int32:
		p.EncodeInt32(MustFixedCol[int32](v)[row])
	case types.T_int64:
		p.EncodeInt64(MustFixedCol[int64](v)[row])
	case types.T_uint8:
		p.EncodeUint8(MustFixedCol[uint8](v)[row])
	case types.T_uint16:
		p.EncodeUint16(MustFixedCol[uint16](v)[row])
	case types.T_uint32:
		p.EncodeUint32(MustFixedCol[uint32](v)[row])
	case types.T_uint64:
		p.EncodeUint64(MustFixedCol[uint64](v)[row])
	case types.T_float32:
		p.EncodeFloat32(MustFixedCol[float32](v)[row])
	case types.T_float64:
		p.EncodeFloat64(MustFixedCol[float64](v)[row])
	case types.T_char, types.T_varchar, types.T_text:
		return p.EncodeStringType(v.GetBytesAt(row))
	case types.T_binary, types.T_varbinary, types.T_blob:
		p.EncodeBytes(v.GetBytesAt(row))
	default:
		return verr.NewEncoding("type %s cannot be a grouping column", v.typ)
	}
	return nil
}

// AppendTupleElement appends one decoded group key element to the vector.
func (v *Vector) AppendTupleElement(el types.TupleElement) error {
	if el == nil {
		if v.typ.IsVarlen() {
			AppendBytes(v, nil, true)
		} else {
			appendZero(v)
		}
		return nil
	}
	switch val := el.(type) {
	case bool:
		AppendFixed(v, val, false)
	case int8:
		AppendFixed(v, val, false)
	case int16:
		AppendFixed(v, val, false)
	case int32:
		AppendFixed(v, val, false)
	case int64:
		AppendFixed(v, val, false)
	case uint8:
		AppendFixed(v, val, false)
	case uint16:
		AppendFixed(v, val, false)
	case uint32:
		AppendFixed(v, val, false)
	case uint64:
		AppendFixed(v, val, false)
	case float32:
		AppendFixed(v, val, false)
	case float64:
		AppendFixed(v, val, false)
	case []byte:
		AppendBytes(v, val, false)
	default:
		return verr.NewEncoding("unexpected element %T in group key", el)
	}
	return nil
}

func appendZero(v *Vector) {
	v.nsp.Add(uint64(v.length))
	v.data = append(v.data, make([]byte, v.typ.TypeSize())...)
	v.length++
}

func (v *Vector) MarshalBinary() ([]byte, error) {
	nb, err := v.nsp.MarshalBinary()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, types.TSize+16+len(v.data))
	buf = append(buf, types.EncodeType(&v.typ)...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(v.length))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(nb)))
	buf = append(buf, nb...)

	if v.typ.IsVarlen() {
		for _, b := range v.bs {
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
			buf = append(buf, b...)
		}
		return buf, nil
	}
	buf = append(buf, v.data...)
	return buf, nil
}

func (v *Vector) UnmarshalBinary(data []byte) error {
	if len(data) < types.TSize+8 {
		return verr.NewInvalidInput("vector payload too short")
	}
	v.typ = types.DecodeType(data)
	data = data[types.TSize:]
	v.length = int(binary.BigEndian.Uint32(data))
	nl := int(binary.BigEndian.Uint32(data[4:]))
	data = data[8:]
	if len(data) < nl {
		return verr.NewInvalidInput("vector null bitmap truncated")
	}
	v.nsp = &nulls.Nulls{}
	if err := v.nsp.UnmarshalBinary(data[:nl]); err != nil {
		return err
	}
	data = data[nl:]

	if v.typ.IsVarlen() {
		v.bs = make([][]byte, 0, v.length)
		for i := 0; i < v.length; i++ {
			if len(data) < 4 {
				return verr.NewInvalidInput("vector varlen payload truncated")
			}
			n := int(binary.BigEndian.Uint32(data))
			data = data[4:]
			if len(data) < n {
				return verr.NewInvalidInput("vector varlen payload truncated")
			}
			owned := make([]byte, n)
			copy(owned, data[:n])
			v.bs = append(v.bs, owned)
			data = data[n:]
		}
		return nil
	}
	if len(data) != v.length*v.typ.TypeSize() {
		return verr.NewInvalidInput("vector payload length mismatch")
	}
	v.data = make([]byte, len(data))
	copy(v.data, data)
	return nil
}
