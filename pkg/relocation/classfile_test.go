/*
Copyright The Smol Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package relocation

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classTail stands in for everything after the constant pool.
var classTail = []byte{0x00, 0x21, 0x00, 0x02, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// classFile builds a minimal class file. Strings become Utf8 constants,
// int64 values Long constants and uint16 values Class constants.
func classFile(t *testing.T, constants ...interface{}) []byte {
	t.Helper()
	var pool bytes.Buffer
	slots := 1
	for _, c := range constants {
		switch v := c.(type) {
		case string:
			pool.WriteByte(tagUtf8)
			binary.Write(&pool, binary.BigEndian, uint16(len(v)))
			pool.WriteString(v)
			slots++
		case int64:
			pool.WriteByte(tagLong)
			binary.Write(&pool, binary.BigEndian, v)
			slots += 2
		case uint16:
			pool.WriteByte(tagClass)
			binary.Write(&pool, binary.BigEndian, v)
			slots++
		default:
			t.Fatalf("unsupported constant %T", c)
		}
	}

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint32(classMagic))
	binary.Write(&out, binary.BigEndian, uint16(0))
	binary.Write(&out, binary.BigEndian, uint16(52))
	binary.Write(&out, binary.BigEndian, uint16(slots))
	out.Write(pool.Bytes())
	out.Write(classTail)
	return out.Bytes()
}

func TestRemapClass(t *testing.T) {
	m, err := Set{gson}.compile()
	require.NoError(t, err)

	in := classFile(t,
		"com/google/gson/Gson",
		uint16(1),
		int64(42),
		"(Lcom/google/gson/JsonElement;)Ljava/lang/String;",
		"java/lang/Object",
		"com.google.gson.internal.Excluder",
	)
	out, changed, err := remapClass(in, m)
	require.NoError(t, err)
	assert.True(t, changed)

	strs, err := constantStrings(out)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"smol/libs/gson/Gson",
		"(Lsmol/libs/gson/JsonElement;)Ljava/lang/String;",
		"java/lang/Object",
		"smol.libs.gson.internal.Excluder",
	}, strs)
	assert.True(t, bytes.HasSuffix(out, classTail), "bytes after the pool are copied unchanged")
}

func TestRemapClassMethodDescriptors(t *testing.T) {
	m, err := Set{gson}.compile()
	require.NoError(t, err)

	in := classFile(t,
		"fromJson",
		"(ILcom/google/gson/JsonElement;)V",
		"([BLcom/google/gson/JsonElement;)Lcom/google/gson/Gson;",
		"(JZ[[Lcom/google/gson/JsonElement;)V",
	)
	out, changed, err := remapClass(in, m)
	require.NoError(t, err)
	assert.True(t, changed)

	strs, err := constantStrings(out)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"fromJson",
		"(ILsmol/libs/gson/JsonElement;)V",
		"([BLsmol/libs/gson/JsonElement;)Lsmol/libs/gson/Gson;",
		"(JZ[[Lsmol/libs/gson/JsonElement;)V",
	}, strs)
}

func TestRemapClassUnchanged(t *testing.T) {
	m, err := Set{gson}.compile()
	require.NoError(t, err)

	in := classFile(t, "java/lang/Object", int64(7), "toString")
	out, changed, err := remapClass(in, m)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, in, out)
}

func TestWalkConstantPoolErrors(t *testing.T) {
	_, err := constantStrings([]byte("PK\x03\x04 not a class"))
	assert.Error(t, err)

	full := classFile(t, "com/google/gson/Gson", "java/lang/Object")
	_, err = constantStrings(full[:16])
	assert.Error(t, err, "truncated pool")

	bad := classFile(t, "x")
	bad[10] = 99
	_, err = constantStrings(bad)
	assert.Error(t, err, "unknown tag")
}
