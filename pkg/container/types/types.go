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

// Package types holds the column type descriptors understood by the
// aggregation engine, the raw slice codec used to move fixed-width values
// in and out of byte buffers, and the tuple packer that turns grouping
// values into comparable key bytes.
package types

import "fmt"

type T uint8

const (
	// T_any is the wildcard type, used by count(*) which has no argument.
	T_any T = iota
	T_bool

	T_int8
	T_int16
	T_int32
	T_int64
	T_uint8
	T_uint16
	T_uint32
	T_uint64
	T_float32
	T_float64

	T_char
	T_varchar
	T_binary
	T_varbinary
	T_blob
	T_text
)

// Type describes one column: the oid plus the declared width/scale the
// SQL layer pushed down. Size is the in-memory size of one fixed-width
// element, -1 for varlen types.
type Type struct {
	Oid   T
	Size  int32
	Width int32
	Scale int32
}

func New(oid T, width, scale int32) Type {
	return Type{
		Oid:   oid,
		Size:  int32(oid.TypeLen()),
		Width: width,
		Scale: scale,
	}
}

func (t T) ToType() Type {
	return New(t, 0, 0)
}

// TypeLen returns the fixed element size in bytes, or -1 for varlen types.
func (t T) TypeLen() int {
	switch t {
	case T_bool, T_int8, T_uint8:
		return 1
	case T_int16, T_uint16:
		return 2
	case T_int32, T_uint32, T_float32:
		return 4
	case T_int64, T_uint64, T_float64:
		return 8
	case T_char, T_varchar, T_binary, T_varbinary, T_blob, T_text:
		return -1
	}
	return 0
}

func (t T) FixedLength() int {
	return t.TypeLen()
}

func (t T) IsVarlen() bool {
	return t.TypeLen() < 0
}

// IsMySQLString reports whether the type carries character data that must
// be valid text on the wire.
func (t T) IsMySQLString() bool {
	switch t {
	case T_char, T_varchar, T_text:
		return true
	}
	return false
}

func (t T) String() string {
	switch t {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int8:
		return "TINYINT"
	case T_int16:
		return "SMALLINT"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_uint8:
		return "TINYINT UNSIGNED"
	case T_uint16:
		return "SMALLINT UNSIGNED"
	case T_uint32:
		return "INT UNSIGNED"
	case T_uint64:
		return "BIGINT UNSIGNED"
	case T_float32:
		return "FLOAT"
	case T_float64:
		return "DOUBLE"
	case T_char:
		return "CHAR"
	case T_varchar:
		return "VARCHAR"
	case T_binary:
		return "BINARY"
	case T_varbinary:
		return "VARBINARY"
	case T_blob:
		return "BLOB"
	case T_text:
		return "TEXT"
	}
	return fmt.Sprintf("unexpected_type(%d)", uint8(t))
}

func (t Type) IsVarlen() bool {
	return t.Oid.IsVarlen()
}

func (t Type) TypeSize() int {
	return int(t.Size)
}

func (t Type) Eq(other Type) bool {
	return t.Oid == other.Oid
}

func (t Type) String() string {
	return t.Oid.String()
}

type Ints interface {
	int8 | int16 | int32 | int64
}

type UInts interface {
	uint8 | uint16 | uint32 | uint64
}

type Floats interface {
	float32 | float64
}

type Number interface {
	Ints | UInts | Floats
}

type OrderedT interface {
	Ints | UInts | Floats
}

type FixedSizeT interface {
	bool | Ints | UInts | Floats | Type
}
