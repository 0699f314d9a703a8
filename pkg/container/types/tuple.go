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

package types

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/kestreldb/vecagg/pkg/common/verr"
)

// The tuple codec turns one row of grouping values into a single byte key.
// Each element is a one-byte type code followed by the value's canonical
// encoding. The codec is injective, distinguishes NULL from every non-NULL
// value, and is order-preserving: for rows sharing one grouping schema,
// bytewise comparison of packed keys matches columnwise comparison of the
// values, with NULL ordering first. Integers are stored big-endian at
// their full width with the sign bit flipped; floats use the IEEE bit
// trick of flipping either the sign bit or the whole word; byte strings
// escape 0x00 as 0x00 0xFF and terminate with a lone 0x00 so that no
// prefix of one key can collide with another.

const (
	nilCode      = 0x00
	bytesCode    = 0x01
	float32Code  = 0x20
	float64Code  = 0x21
	falseCode    = 0x26
	trueCode     = 0x27
	int8Code     = 0x28
	int16Code    = 0x29
	int32Code    = 0x3a
	int64Code    = 0x3b
	uint8Code    = 0x3c
	uint16Code   = 0x3d
	uint32Code   = 0x3e
	uint64Code   = 0x40
	stringCode   = 0x46
)

type TupleElement any

type Tuple []TupleElement

// Packer accumulates the encoding of one row's grouping values.
// Not safe for concurrent use; each executor owns one.
type Packer struct {
	buffer []byte
}

func NewPacker() *Packer {
	return &Packer{buffer: make([]byte, 0, 64)}
}

func (p *Packer) Reset() {
	p.buffer = p.buffer[:0]
}

// Bytes returns the packed key. The slice aliases the packer's buffer and
// is only valid until the next Reset; callers that keep keys must copy.
func (p *Packer) Bytes() []byte {
	return p.buffer
}

func (p *Packer) putByte(b byte) {
	p.buffer = append(p.buffer, b)
}

func (p *Packer) EncodeNull() {
	p.putByte(nilCode)
}

func (p *Packer) EncodeBool(v bool) {
	if v {
		p.putByte(trueCode)
	} else {
		p.putByte(falseCode)
	}
}

// signed integers: big-endian with the sign bit flipped, so that the
// bytewise order equals the numeric order.

func (p *Packer) EncodeInt8(v int8) {
	p.putByte(int8Code)
	p.putByte(uint8(v) ^ 0x80)
}

func (p *Packer) EncodeInt16(v int16) {
	p.putByte(int16Code)
	p.buffer = binary.BigEndian.AppendUint16(p.buffer, uint16(v)^0x8000)
}

func (p *Packer) EncodeInt32(v int32) {
	p.putByte(int32Code)
	p.buffer = binary.BigEndian.AppendUint32(p.buffer, uint32(v)^0x80000000)
}

func (p *Packer) EncodeInt64(v int64) {
	p.putByte(int64Code)
	p.buffer = binary.BigEndian.AppendUint64(p.buffer, uint64(v)^0x8000000000000000)
}

func (p *Packer) EncodeUint8(v uint8) {
	p.putByte(uint8Code)
	p.putByte(v)
}

func (p *Packer) EncodeUint16(v uint16) {
	p.putByte(uint16Code)
	p.buffer = binary.BigEndian.AppendUint16(p.buffer, v)
}

func (p *Packer) EncodeUint32(v uint32) {
	p.putByte(uint32Code)
	p.buffer = binary.BigEndian.AppendUint32(p.buffer, v)
}

func (p *Packer) EncodeUint64(v uint64) {
	p.putByte(uint64Code)
	p.buffer = binary.BigEndian.AppendUint64(p.buffer, v)
}

func (p *Packer) EncodeFloat32(v float32) {
	p.putByte(float32Code)
	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], math.Float32bits(v))
	adjustFloatBytes(scratch[:], true)
	p.buffer = append(p.buffer, scratch[:]...)
}

func (p *Packer) EncodeFloat64(v float64) {
	p.putByte(float64Code)
	var scratch [8]byte
	binary.BigEndian.PutUint64(scratch[:], math.Float64bits(v))
	adjustFloatBytes(scratch[:], true)
	p.buffer = append(p.buffer, scratch[:]...)
}

// EncodeBytes packs binary data: 0x00 bytes are escaped as 0x00 0xFF and
// the value ends with a lone 0x00 terminator, keeping multi-column keys
// unambiguous.
func (p *Packer) EncodeBytes(v []byte) {
	p.encodeVarlen(bytesCode, v)
}

// EncodeStringType packs character data, which must be valid UTF-8.
func (p *Packer) EncodeStringType(v []byte) error {
	if !utf8.Valid(v) {
		return verr.NewEncoding("invalid UTF-8 in string grouping value")
	}
	p.encodeVarlen(stringCode, v)
	return nil
}

func (p *Packer) encodeVarlen(code byte, v []byte) {
	p.putByte(code)
	for {
		idx := bytes.IndexByte(v, 0x00)
		if idx < 0 {
			break
		}
		p.buffer = append(p.buffer, v[:idx+1]...)
		p.putByte(0xFF)
		v = v[idx+1:]
	}
	p.buffer = append(p.buffer, v...)
	p.putByte(0x00)
}

func adjustFloatBytes(b []byte, encode bool) {
	if (encode && b[0]&0x80 != 0x00) || (!encode && b[0]&0x80 == 0x00) {
		// Negative numbers: flip all of the bytes.
		for i := 0; i < len(b); i++ {
			b[i] = b[i] ^ 0xff
		}
	} else {
		// Positive number: flip just the sign bit.
		b[0] = b[0] ^ 0x80
	}
}

func findTerminator(b []byte) int {
	var length int
	bp := b
	for {
		idx := bytes.IndexByte(bp, 0x00)
		if idx < 0 {
			return -1
		}
		length += idx
		if idx+1 == len(bp) || bp[idx+1] != 0xFF {
			return length
		}
		length += 2
		bp = bp[idx+2:]
	}
}

func decodeVarlen(b []byte) ([]byte, int, error) {
	idx := findTerminator(b)
	if idx < 0 {
		return nil, 0, verr.NewEncoding("unterminated byte string in group key")
	}
	return bytes.ReplaceAll(b[:idx], []byte{0x00, 0xFF}, []byte{0x00}), idx + 1, nil
}

func decodeTuple(b []byte) (Tuple, []T, error) {
	var t Tuple
	var schema []T

	i := 0
	for i < len(b) {
		var el any
		var off int
		rest := b[i+1:]

		switch b[i] {
		case nilCode:
			schema = append(schema, T_any)
			el, off = nil, 0
		case falseCode:
			schema = append(schema, T_bool)
			el, off = false, 0
		case trueCode:
			schema = append(schema, T_bool)
			el, off = true, 0
		case int8Code:
			schema = append(schema, T_int8)
			if len(rest) < 1 {
				return nil, nil, verr.NewEncoding("truncated int8 in group key")
			}
			el, off = int8(rest[0]^0x80), 1
		case int16Code:
			schema = append(schema, T_int16)
			if len(rest) < 2 {
				return nil, nil, verr.NewEncoding("truncated int16 in group key")
			}
			el, off = int16(binary.BigEndian.Uint16(rest)^0x8000), 2
		case int32Code:
			schema = append(schema, T_int32)
			if len(rest) < 4 {
				return nil, nil, verr.NewEncoding("truncated int32 in group key")
			}
			el, off = int32(binary.BigEndian.Uint32(rest)^0x80000000), 4
		case int64Code:
			schema = append(schema, T_int64)
			if len(rest) < 8 {
				return nil, nil, verr.NewEncoding("truncated int64 in group key")
			}
			el, off = int64(binary.BigEndian.Uint64(rest)^0x8000000000000000), 8
		case uint8Code:
			schema = append(schema, T_uint8)
			if len(rest) < 1 {
				return nil, nil, verr.NewEncoding("truncated uint8 in group key")
			}
			el, off = rest[0], 1
		case uint16Code:
			schema = append(schema, T_uint16)
			if len(rest) < 2 {
				return nil, nil, verr.NewEncoding("truncated uint16 in group key")
			}
			el, off = binary.BigEndian.Uint16(rest), 2
		case uint32Code:
			schema = append(schema, T_uint32)
			if len(rest) < 4 {
				return nil, nil, verr.NewEncoding("truncated uint32 in group key")
			}
			el, off = binary.BigEndian.Uint32(rest), 4
		case uint64Code:
			schema = append(schema, T_uint64)
			if len(rest) < 8 {
				return nil, nil, verr.NewEncoding("truncated uint64 in group key")
			}
			el, off = binary.BigEndian.Uint64(rest), 8
		case float32Code:
			schema = append(schema, T_float32)
			if len(rest) < 4 {
				return nil, nil, verr.NewEncoding("truncated float32 in group key")
			}
			var scratch [4]byte
			copy(scratch[:], rest)
			adjustFloatBytes(scratch[:], false)
			el, off = math.Float32frombits(binary.BigEndian.Uint32(scratch[:])), 4
		case float64Code:
			schema = append(schema, T_float64)
			if len(rest) < 8 {
				return nil, nil, verr.NewEncoding("truncated float64 in group key")
			}
			var scratch [8]byte
			copy(scratch[:], rest)
			adjustFloatBytes(scratch[:], false)
			el, off = math.Float64frombits(binary.BigEndian.Uint64(scratch[:])), 8
		case bytesCode:
			schema = append(schema, T_binary)
			v, n, err := decodeVarlen(rest)
			if err != nil {
				return nil, nil, err
			}
			el, off = v, n
		case stringCode:
			schema = append(schema, T_varchar)
			v, n, err := decodeVarlen(rest)
			if err != nil {
				return nil, nil, err
			}
			el, off = v, n
		default:
			return nil, nil, verr.NewEncoding("unknown type code %02x in group key", b[i])
		}
		t = append(t, el)
		i += 1 + off
	}

	return t, schema, nil
}

// Unpack recovers the grouping values from a packed key.
func Unpack(b []byte) (Tuple, error) {
	t, _, err := decodeTuple(b)
	return t, err
}

// UnpackWithSchema additionally reports the type code of each element;
// NULL elements decode as T_any.
func UnpackWithSchema(b []byte) (Tuple, []T, error) {
	return decodeTuple(b)
}
