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

package vector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestreldb/vecagg/pkg/container/types"
)

func TestAppendFixedAndRead(t *testing.T) {
	vec := NewVec(types.T_int64.ToType())
	AppendFixed(vec, int64(7), false)
	AppendFixed(vec, int64(0), true)
	AppendFixed(vec, int64(-3), false)

	require.Equal(t, 3, vec.Length())
	col := MustFixedCol[int64](vec)
	require.Equal(t, int64(7), col[0])
	require.Equal(t, int64(-3), col[2])
	require.True(t, vec.IsNull(1))
	require.False(t, vec.IsNull(0))
}

func TestAppendBytesCopies(t *testing.T) {
	vec := NewVec(types.T_varchar.ToType())
	src := []byte("hello")
	AppendBytes(vec, src, false)
	src[0] = 'X'
	require.Equal(t, "hello", string(vec.GetBytesAt(0)))
}

func TestRawAt(t *testing.T) {
	vec := NewVec(types.T_int32.ToType())
	AppendFixed(vec, int32(1), false)
	AppendFixed(vec, int32(1), false)
	AppendFixed(vec, int32(2), false)
	AppendFixed(vec, int32(0), true)

	require.Equal(t, vec.RawAt(0), vec.RawAt(1))
	require.NotEqual(t, vec.RawAt(0), vec.RawAt(2))
	require.Nil(t, vec.RawAt(3))
}

func TestUnionOne(t *testing.T) {
	src := NewVec(types.T_int64.ToType())
	AppendFixed(src, int64(5), false)
	AppendFixed(src, int64(0), true)

	dst := NewVec(types.T_int64.ToType())
	require.NoError(t, dst.UnionOne(src, 1))
	require.NoError(t, dst.UnionOne(src, 0))

	require.Equal(t, 2, dst.Length())
	require.True(t, dst.IsNull(0))
	require.Equal(t, int64(5), MustFixedCol[int64](dst)[1])
}

func TestUnionOneTypeMismatch(t *testing.T) {
	src := NewVec(types.T_int64.ToType())
	AppendFixed(src, int64(5), false)
	dst := NewVec(types.T_int32.ToType())
	require.Error(t, dst.UnionOne(src, 0))
}

func TestEncodeValueDistinguishesNull(t *testing.T) {
	vec := NewVec(types.T_int64.ToType())
	AppendFixed(vec, int64(0), false)
	AppendFixed(vec, int64(0), true)

	p := types.NewPacker()
	require.NoError(t, vec.EncodeValue(p, 0))
	zeroKey := append([]byte(nil), p.Bytes()...)

	p.Reset()
	require.NoError(t, vec.EncodeValue(p, 1))
	nullKey := append([]byte(nil), p.Bytes()...)

	require.NotEqual(t, zeroKey, nullKey)
}

func TestEncodeValueUnpackRoundtrip(t *testing.T) {
	iv := NewVec(types.T_int64.ToType())
	AppendFixed(iv, int64(-42), false)
	sv := NewVec(types.T_varchar.ToType())
	AppendBytes(sv, []byte("k"), false)

	p := types.NewPacker()
	require.NoError(t, iv.EncodeValue(p, 0))
	require.NoError(t, sv.EncodeValue(p, 0))

	tuple, err := types.Unpack(p.Bytes())
	require.NoError(t, err)
	require.Len(t, tuple, 2)

	outInt := NewVec(types.T_int64.ToType())
	require.NoError(t, outInt.AppendTupleElement(tuple[0]))
	require.Equal(t, int64(-42), MustFixedCol[int64](outInt)[0])

	outStr := NewVec(types.T_varchar.ToType())
	require.NoError(t, outStr.AppendTupleElement(tuple[1]))
	require.Equal(t, "k", string(outStr.GetBytesAt(0)))
}

func TestMarshalRoundtripFixed(t *testing.T) {
	vec := NewVec(types.T_int64.ToType())
	AppendFixed(vec, int64(1), false)
	AppendFixed(vec, int64(0), true)
	AppendFixed(vec, int64(3), false)

	data, err := vec.MarshalBinary()
	require.NoError(t, err)

	got := &Vector{}
	require.NoError(t, got.UnmarshalBinary(data))
	require.Equal(t, 3, got.Length())
	require.Equal(t, types.T_int64, got.GetType().Oid)
	require.True(t, got.IsNull(1))
	require.Equal(t, []int64{1, 0, 3}, MustFixedCol[int64](got))
}

func TestMarshalRoundtripVarlen(t *testing.T) {
	vec := NewVec(types.T_varchar.ToType())
	AppendBytes(vec, []byte("a"), false)
	AppendBytes(vec, nil, true)
	AppendBytes(vec, []byte("longer value"), false)

	data, err := vec.MarshalBinary()
	require.NoError(t, err)

	got := &Vector{}
	require.NoError(t, got.UnmarshalBinary(data))
	require.Equal(t, 3, got.Length())
	require.Equal(t, "a", string(got.GetBytesAt(0)))
	require.True(t, got.IsNull(1))
	require.Equal(t, "longer value", string(got.GetBytesAt(2)))
}

func TestUnmarshalRejectsTruncated(t *testing.T) {
	vec := NewVec(types.T_int64.ToType())
	AppendFixed(vec, int64(1), false)
	data, err := vec.MarshalBinary()
	require.NoError(t, err)

	got := &Vector{}
	require.Error(t, got.UnmarshalBinary(data[:len(data)-1]))
}
