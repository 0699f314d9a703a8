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

package agg

import (
	"github.com/kestreldb/vecagg/pkg/container/types"
	"github.com/kestreldb/vecagg/pkg/sql/colexec/aggexec"
)

var signedTypes = []types.T{types.T_int8, types.T_int16, types.T_int32, types.T_int64}
var unsignedTypes = []types.T{types.T_uint8, types.T_uint16, types.T_uint32, types.T_uint64}
var floatTypes = []types.T{types.T_float32, types.T_float64}
var varlenTypes = []types.T{
	types.T_char, types.T_varchar, types.T_binary,
	types.T_varbinary, types.T_blob, types.T_text,
}

func init() {
	registerSum()
	registerCount()
	registerAvg()
	registerMinMax()
	registerBit()
	registerVariance()
	registerApprox()
	registerAnyValue()
	registerGroupConcat()
}

func registerSum() {
	regSigned(aggexec.AggSum, true, sumSignedMakers())
	regUnsigned(aggexec.AggSum, true, sumUnsignedMakers())
	regFloat(aggexec.AggSum, true, sumFloatMakers())
}

func sumSignedMakers() [4]aggexec.Maker {
	return [4]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumSigned[int8](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumSigned[int16](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumSigned[int32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumSigned[int64](d, t) },
	}
}

func sumUnsignedMakers() [4]aggexec.Maker {
	return [4]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumUnsigned[uint8](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumUnsigned[uint16](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumUnsigned[uint32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumUnsigned[uint64](d, t) },
	}
}

func sumFloatMakers() [2]aggexec.Maker {
	return [2]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumFloat[float32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newSumFloat[float64](d, t) },
	}
}

func registerCount() {
	regSigned(aggexec.AggCount, true, [4]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[int8](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[int16](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[int32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[int64](d, t) },
	})
	regUnsigned(aggexec.AggCount, true, [4]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[uint8](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[uint16](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[uint32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[uint64](d, t) },
	})
	regFloat(aggexec.AggCount, true, [2]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[float32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[float64](d, t) },
	})
	aggexec.Register(aggexec.AggCount, types.T_bool, true,
		func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[bool](d, t) })
	for _, t := range varlenTypes {
		aggexec.Register(aggexec.AggCount, t, true,
			func(d bool, t types.Type) aggexec.AggFuncExec { return newCount[[]byte](d, t) })
	}

	aggexec.Register(aggexec.AggStarCount, types.T_any, false,
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newStarCount(t) })
}

func registerAvg() {
	regSigned(aggexec.AggAvg, true, [4]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[int8](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[int16](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[int32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[int64](d, t) },
	})
	regUnsigned(aggexec.AggAvg, true, [4]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[uint8](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[uint16](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[uint32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[uint64](d, t) },
	})
	regFloat(aggexec.AggAvg, true, [2]aggexec.Maker{
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[float32](d, t) },
		func(d bool, t types.Type) aggexec.AggFuncExec { return newAvg[float64](d, t) },
	})
}

func registerMinMax() {
	for _, op := range []int64{aggexec.AggMin, aggexec.AggMax} {
		op := op
		regSigned(op, true, [4]aggexec.Maker{
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[int8](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[int16](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[int32](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[int64](op, d, t) },
		})
		regUnsigned(op, true, [4]aggexec.Maker{
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[uint8](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[uint16](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[uint32](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[uint64](op, d, t) },
		})
		regFloat(op, true, [2]aggexec.Maker{
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[float32](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxOrdered[float64](op, d, t) },
		})
		aggexec.Register(op, types.T_bool, true,
			func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxBool(op, d, t) })
		for _, vt := range varlenTypes {
			aggexec.Register(op, vt, true,
				func(d bool, t types.Type) aggexec.AggFuncExec { return newMinMaxBytes(op, d, t) })
		}
	}
}

func registerBit() {
	for _, op := range []int64{aggexec.AggBitAnd, aggexec.AggBitOr, aggexec.AggBitXor} {
		op := op
		regSigned(op, true, [4]aggexec.Maker{
			func(d bool, t types.Type) aggexec.AggFuncExec { return newBit[int8](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newBit[int16](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newBit[int32](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newBit[int64](op, d, t) },
		})
		regUnsigned(op, true, [4]aggexec.Maker{
			func(d bool, t types.Type) aggexec.AggFuncExec { return newBit[uint8](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newBit[uint16](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newBit[uint32](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newBit[uint64](op, d, t) },
		})
	}
}

func registerVariance() {
	for _, op := range []int64{aggexec.AggVarPop, aggexec.AggStddevPop} {
		op := op
		regSigned(op, true, [4]aggexec.Maker{
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[int8](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[int16](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[int32](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[int64](op, d, t) },
		})
		regUnsigned(op, true, [4]aggexec.Maker{
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[uint8](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[uint16](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[uint32](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[uint64](op, d, t) },
		})
		regFloat(op, true, [2]aggexec.Maker{
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[float32](op, d, t) },
			func(d bool, t types.Type) aggexec.AggFuncExec { return newVariance[float64](op, d, t) },
		})
	}
}

func registerApprox() {
	op := aggexec.AggApproxCountDistinct
	regSigned(op, false, [4]aggexec.Maker{
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[int8](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[int16](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[int32](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[int64](t) },
	})
	regUnsigned(op, false, [4]aggexec.Maker{
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[uint8](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[uint16](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[uint32](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[uint64](t) },
	})
	regFloat(op, false, [2]aggexec.Maker{
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[float32](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[float64](t) },
	})
	aggexec.Register(op, types.T_bool, false,
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinct[bool](t) })
	for _, vt := range varlenTypes {
		aggexec.Register(op, vt, false,
			func(_ bool, t types.Type) aggexec.AggFuncExec { return newApproxCountDistinctBytes(t) })
	}
}

func registerAnyValue() {
	op := aggexec.AggAnyValue
	regSigned(op, false, [4]aggexec.Maker{
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[int8](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[int16](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[int32](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[int64](t) },
	})
	regUnsigned(op, false, [4]aggexec.Maker{
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[uint8](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[uint16](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[uint32](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[uint64](t) },
	})
	regFloat(op, false, [2]aggexec.Maker{
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[float32](t) },
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[float64](t) },
	})
	aggexec.Register(op, types.T_bool, false,
		func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValue[bool](t) })
	for _, vt := range varlenTypes {
		aggexec.Register(op, vt, false,
			func(_ bool, t types.Type) aggexec.AggFuncExec { return newAnyValueBytes(t) })
	}
}

func registerGroupConcat() {
	for _, vt := range varlenTypes {
		aggexec.Register(aggexec.AggGroupConcat, vt, true,
			func(d bool, t types.Type) aggexec.AggFuncExec {
				return newGroupConcat(d, t, DefaultGroupConcatSep)
			})
	}
}

func regSigned(op int64, dist bool, makers [4]aggexec.Maker) {
	for i, t := range signedTypes {
		aggexec.Register(op, t, dist, makers[i])
	}
}

func regUnsigned(op int64, dist bool, makers [4]aggexec.Maker) {
	for i, t := range unsignedTypes {
		aggexec.Register(op, t, dist, makers[i])
	}
}

func regFloat(op int64, dist bool, makers [2]aggexec.Maker) {
	for i, t := range floatTypes {
		aggexec.Register(op, t, dist, makers[i])
	}
}
