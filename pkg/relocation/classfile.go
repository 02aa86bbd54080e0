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

	"github.com/pkg/errors"
)

const classMagic = 0xCAFEBABE

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// fixedSize is the payload size of every constant pool tag except Utf8.
var fixedSize = map[byte]int{
	tagInteger:            4,
	tagFloat:              4,
	tagLong:               8,
	tagDouble:             8,
	tagClass:              2,
	tagString:             2,
	tagFieldref:           4,
	tagMethodref:          4,
	tagInterfaceMethodref: 4,
	tagNameAndType:        4,
	tagMethodHandle:       3,
	tagMethodType:         2,
	tagDynamic:            4,
	tagInvokeDynamic:      4,
	tagModule:             2,
	tagPackage:            2,
}

// isClassFile reports whether data starts with the class file magic.
func isClassFile(data []byte) bool {
	return len(data) >= 10 && binary.BigEndian.Uint32(data) == classMagic
}

// constantStrings returns the Utf8 constants of a class file in pool order.
func constantStrings(data []byte) ([]string, error) {
	var out []string
	_, err := walkConstantPool(data, func(s string) string {
		out = append(out, s)
		return s
	})
	return out, err
}

// remapClass rewrites the Utf8 constants of a class file. Everything after
// the constant pool is copied unchanged: all other references to names go
// through the pool.
func remapClass(data []byte, m *remapper) ([]byte, bool, error) {
	changed := false
	out, err := walkConstantPool(data, func(s string) string {
		if r, ok := m.Map(s); ok {
			changed = true
			return r
		}
		return s
	})
	if err != nil || !changed {
		return data, false, err
	}
	return out, true, nil
}

// walkConstantPool rebuilds data with every Utf8 constant replaced by fn(s).
func walkConstantPool(data []byte, fn func(string) string) ([]byte, error) {
	if !isClassFile(data) {
		return nil, errors.New("not a class file")
	}
	count := int(binary.BigEndian.Uint16(data[8:10]))

	var out bytes.Buffer
	out.Grow(len(data) + 256)
	out.Write(data[:10])

	pos := 10
	for i := 1; i < count; i++ {
		if pos >= len(data) {
			return nil, errors.Errorf("truncated constant pool at entry %d", i)
		}
		tag := data[pos]
		if tag == tagUtf8 {
			if pos+3 > len(data) {
				return nil, errors.Errorf("truncated utf8 constant at entry %d", i)
			}
			n := int(binary.BigEndian.Uint16(data[pos+1 : pos+3]))
			if pos+3+n > len(data) {
				return nil, errors.Errorf("truncated utf8 constant at entry %d", i)
			}
			s := fn(string(data[pos+3 : pos+3+n]))
			if len(s) > 0xFFFF {
				return nil, errors.Errorf("constant %d exceeds the class file limit after relocation", i)
			}
			var hdr [3]byte
			hdr[0] = tagUtf8
			binary.BigEndian.PutUint16(hdr[1:], uint16(len(s)))
			out.Write(hdr[:])
			out.WriteString(s)
			pos += 3 + n
			continue
		}
		size, ok := fixedSize[tag]
		if !ok {
			return nil, errors.Errorf("unknown constant pool tag %d at entry %d", tag, i)
		}
		if pos+1+size > len(data) {
			return nil, errors.Errorf("truncated constant at entry %d", i)
		}
		out.Write(data[pos : pos+1+size])
		pos += 1 + size
		// Long and Double constants take two slots.
		if tag == tagLong || tag == tagDouble {
			i++
		}
	}
	out.Write(data[pos:])
	return out.Bytes(), nil
}
