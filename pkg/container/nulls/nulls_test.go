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

package nulls

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNilReceiver(t *testing.T) {
	var n *Nulls
	require.False(t, n.Contains(0))
	require.False(t, n.Any())
	require.Equal(t, 0, n.Count())
}

func TestAddContains(t *testing.T) {
	n := &Nulls{}
	require.False(t, n.Any())
	n.Add(3)
	n.Add(100)
	require.True(t, n.Contains(3))
	require.True(t, n.Contains(100))
	require.False(t, n.Contains(4))
	require.Equal(t, 2, n.Count())
}

func TestMarshalRoundtrip(t *testing.T) {
	n := &Nulls{}
	n.Add(1)
	n.Add(1 << 20)
	data, err := n.MarshalBinary()
	require.NoError(t, err)

	m := &Nulls{}
	require.NoError(t, m.UnmarshalBinary(data))
	require.True(t, m.Contains(1))
	require.True(t, m.Contains(1<<20))
	require.False(t, m.Contains(2))
}

func TestMarshalEmpty(t *testing.T) {
	n := &Nulls{}
	data, err := n.MarshalBinary()
	require.NoError(t, err)

	m := &Nulls{}
	require.NoError(t, m.UnmarshalBinary(data))
	require.False(t, m.Any())
}

func TestReset(t *testing.T) {
	n := &Nulls{}
	n.Add(7)
	n.Reset()
	require.False(t, n.Contains(7))
	require.False(t, n.Any())
}
