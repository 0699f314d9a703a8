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
	"encoding/binary"
	"unsafe"

	"github.com/kestreldb/vecagg/pkg/common/hashmap"
	"github.com/kestreldb/vecagg/pkg/common/verr"
	"github.com/kestreldb/vecagg/pkg/container/types"
)

// EncodedAgg is the self-describing wire form of one aggregate executor's
// full state. Operator, argument type and distinctness travel with the
// payload so the receiving side can rebuild the executor through the
// factory and reject mismatched merges.
type EncodedAgg struct {
	Op         int64
	IsDistinct bool
	InputTypes []types.Type
	OutputType types.Type

	// Es holds the per-group empty flags, Result the per-group
	// accumulators (raw fixed-width slice or framed varlen list).
	Es     []bool
	Result []byte

	// Private is the function's private state, empty when it has none.
	Private []byte

	// Groups carries each group's distinct raw values; nil unless
	// IsDistinct.
	Groups [][][]byte
}

func appendFrame(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func readFrame(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, verr.NewEncoding("aggregate state truncated: missing frame header")
	}
	n := binary.BigEndian.Uint32(data)
	data = data[4:]
	if uint32(len(data)) < n {
		return nil, nil, verr.NewEncoding("aggregate state truncated: frame needs %d bytes, %d left", n, len(data))
	}
	return data[:n], data[n:], nil
}

func (enc *EncodedAgg) Marshal() []byte {
	buf := make([]byte, 0, 64+len(enc.Result)+len(enc.Private))

	buf = binary.BigEndian.AppendUint64(buf, uint64(enc.Op))
	var flags byte
	if enc.IsDistinct {
		flags |= 1
	}
	buf = append(buf, flags)

	buf = appendFrame(buf, types.EncodeType(&enc.OutputType))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(enc.InputTypes)))
	for i := range enc.InputTypes {
		buf = appendFrame(buf, types.EncodeType(&enc.InputTypes[i]))
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(enc.Es)))
	for _, e := range enc.Es {
		if e {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	buf = appendFrame(buf, enc.Result)
	buf = appendFrame(buf, enc.Private)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(enc.Groups)))
	for _, raws := range enc.Groups {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(raws)))
		for _, raw := range raws {
			buf = appendFrame(buf, raw)
		}
	}
	return buf
}

func (enc *EncodedAgg) Unmarshal(data []byte) error {
	if len(data) < 9 {
		return verr.NewEncoding("aggregate state truncated: %d bytes", len(data))
	}
	enc.Op = int64(binary.BigEndian.Uint64(data))
	enc.IsDistinct = data[8]&1 != 0
	data = data[9:]

	b, data, err := readFrame(data)
	if err != nil {
		return err
	}
	if len(b) != types.TSize {
		return verr.NewEncoding("aggregate state has a %d byte type descriptor", len(b))
	}
	enc.OutputType = types.DecodeType(b)

	if len(data) < 4 {
		return verr.NewEncoding("aggregate state truncated: missing input type count")
	}
	nIn := binary.BigEndian.Uint32(data)
	data = data[4:]
	enc.InputTypes = make([]types.Type, nIn)
	for i := range enc.InputTypes {
		if b, data, err = readFrame(data); err != nil {
			return err
		}
		if len(b) != types.TSize {
			return verr.NewEncoding("aggregate state has a %d byte type descriptor", len(b))
		}
		enc.InputTypes[i] = types.DecodeType(b)
	}

	if len(data) < 4 {
		return verr.NewEncoding("aggregate state truncated: missing group count")
	}
	nGroups := binary.BigEndian.Uint32(data)
	data = data[4:]
	if uint32(len(data)) < nGroups {
		return verr.NewEncoding("aggregate state truncated: %d empty flags expected", nGroups)
	}
	enc.Es = make([]bool, nGroups)
	for i := range enc.Es {
		enc.Es[i] = data[i] != 0
	}
	data = data[nGroups:]

	if enc.Result, data, err = readFrame(data); err != nil {
		return err
	}
	if enc.Private, data, err = readFrame(data); err != nil {
		return err
	}

	if len(data) < 4 {
		return verr.NewEncoding("aggregate state truncated: missing distinct section")
	}
	nDist := binary.BigEndian.Uint32(data)
	data = data[4:]
	if nDist > 0 {
		enc.Groups = make([][][]byte, nDist)
		for i := range enc.Groups {
			if len(data) < 4 {
				return verr.NewEncoding("aggregate state truncated: missing distinct value count")
			}
			nVals := binary.BigEndian.Uint32(data)
			data = data[4:]
			raws := make([][]byte, nVals)
			for j := range raws {
				if b, data, err = readFrame(data); err != nil {
					return err
				}
				raws[j] = b
			}
			enc.Groups[i] = raws
		}
	}
	return nil
}

// marshalResults flattens the accumulator row. Fixed-width accumulators
// go out as their raw memory, varlen ones as a framed list.
func marshalResults[T2 any](otyp types.Type, vs []T2) []byte {
	if otyp.IsVarlen() {
		bs := any(vs).([][]byte)
		buf := make([]byte, 0, 4*len(bs))
		for _, b := range bs {
			buf = appendFrame(buf, b)
		}
		return buf
	}
	raw := types.EncodeSlice(vs)
	owned := make([]byte, len(raw))
	copy(owned, raw)
	return owned
}

func unmarshalResults[T2 any](otyp types.Type, data []byte, nGroups int) ([]T2, error) {
	if otyp.IsVarlen() {
		bs := make([][]byte, 0, nGroups)
		var b []byte
		var err error
		for len(data) > 0 {
			if b, data, err = readFrame(data); err != nil {
				return nil, err
			}
			owned := make([]byte, len(b))
			copy(owned, b)
			bs = append(bs, owned)
		}
		if len(bs) != nGroups {
			return nil, verr.NewEncoding("aggregate state has %d accumulators for %d groups", len(bs), nGroups)
		}
		return any(bs).([]T2), nil
	}

	var zero T2
	if sz := int(unsafe.Sizeof(zero)); len(data) != nGroups*sz {
		return nil, verr.NewEncoding("aggregate state has %d accumulator bytes for %d groups", len(data), nGroups)
	}
	vs := make([]T2, nGroups)
	copy(vs, types.DecodeSlice[T2](data))
	return vs, nil
}

func (a *UnaryAgg[T1, T2]) marshal() (*EncodedAgg, error) {
	enc := &EncodedAgg{
		Op:         a.op,
		InputTypes: a.ityps,
		OutputType: a.otyp,
		Es:         a.es,
		Result:     marshalResults(a.otyp, a.vs),
	}
	if a.priv != nil {
		priv, err := a.priv.MarshalBinary()
		if err != nil {
			return nil, err
		}
		enc.Private = priv
	}
	return enc, nil
}

func (a *UnaryAgg[T1, T2]) unmarshal(enc *EncodedAgg) error {
	vs, err := unmarshalResults[T2](a.otyp, enc.Result, len(enc.Es))
	if err != nil {
		return err
	}
	a.vs = vs
	a.es = append(a.es[:0], enc.Es...)
	if a.priv != nil {
		if err = a.priv.UnmarshalBinary(enc.Private); err != nil {
			return err
		}
	}
	return nil
}

func (a *UnaryDistAgg[T1, T2]) marshal() (*EncodedAgg, error) {
	enc := &EncodedAgg{
		Op:         a.op,
		IsDistinct: true,
		InputTypes: a.ityps,
		OutputType: a.otyp,
		Es:         a.es,
		Result:     marshalResults(a.otyp, a.vs),
		Groups:     a.srcs,
	}
	if a.priv != nil {
		priv, err := a.priv.MarshalBinary()
		if err != nil {
			return nil, err
		}
		enc.Private = priv
	}
	return enc, nil
}

func (a *UnaryDistAgg[T1, T2]) unmarshal(enc *EncodedAgg) error {
	if len(enc.Groups) != len(enc.Es) {
		return verr.NewEncoding("distinct aggregate state has %d value sets for %d groups", len(enc.Groups), len(enc.Es))
	}
	vs, err := unmarshalResults[T2](a.otyp, enc.Result, len(enc.Es))
	if err != nil {
		return err
	}
	a.vs = vs
	a.es = append(a.es[:0], enc.Es...)
	a.srcs = enc.Groups
	a.maps = a.maps[:0]
	for _, raws := range a.srcs {
		m := hashmap.NewStrMap()
		for _, raw := range raws {
			m.InsertValue(raw)
		}
		a.maps = append(a.maps, m)
	}
	if a.priv != nil {
		if err = a.priv.UnmarshalBinary(enc.Private); err != nil {
			return err
		}
	}
	return nil
}

// MarshalAggFuncExec serializes one executor's full state for shipping to
// a merge site.
func MarshalAggFuncExec(exec AggFuncExec) ([]byte, error) {
	enc, err := exec.marshal()
	if err != nil {
		return nil, err
	}
	return enc.Marshal(), nil
}

// UnmarshalAggFuncExec rebuilds an executor from MarshalAggFuncExec
// output. The operator and argument type are taken from the payload.
func UnmarshalAggFuncExec(data []byte) (AggFuncExec, error) {
	enc := &EncodedAgg{}
	if err := enc.Unmarshal(data); err != nil {
		return nil, err
	}
	if len(enc.InputTypes) != 1 {
		return nil, verr.NewEncoding("aggregate state describes %d argument types", len(enc.InputTypes))
	}
	exec, err := MakeAgg(enc.Op, enc.IsDistinct, enc.InputTypes[0])
	if err != nil {
		return nil, err
	}
	if !exec.OutputType().Eq(enc.OutputType) {
		return nil, verr.NewMergeTypeMismatch(
			"aggregate state for %s declares output %s, executor produces %s",
			Names[enc.Op], enc.OutputType, exec.OutputType())
	}
	if err = exec.unmarshal(enc); err != nil {
		return nil, err
	}
	return exec, nil
}
