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

package output

import (
	"bytes"
	"io"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smol.sh/smol/pkg/artifact"
)

type row struct {
	Name string `json:"name"`
}

type rowWriter []row

func (w rowWriter) WriteTable(out io.Writer) error {
	table := NewTable("NAME")
	for _, r := range w {
		table.AddRow(r.Name)
	}
	return EncodeTable(out, table)
}

func (w rowWriter) WriteJSON(out io.Writer) error { return EncodeJSON(out, w) }
func (w rowWriter) WriteYAML(out io.Writer) error { return EncodeYAML(out, w) }

func TestFormatWrite(t *testing.T) {
	rows := rowWriter{{Name: "core"}, {Name: "util"}}
	tests := []struct {
		format Format
		want   string
	}{
		{format: Table, want: "NAME\ncore\nutil\n"},
		{format: JSON, want: "[\n  {\n    \"name\": \"core\"\n  },\n  {\n    \"name\": \"util\"\n  }\n]\n"},
		{format: YAML, want: "- name: core\n- name: util\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.format.Write(&buf, rows))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	assert.ErrorIs(t, Format("xml").Write(io.Discard, rows), ErrInvalidFormatType)
}

func TestParseFormat(t *testing.T) {
	for _, s := range Formats() {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		assert.Equal(t, s, f.String())
		assert.Contains(t, FormatsWithDesc(), s)
	}
	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrInvalidFormatType)
}

func TestColorize(t *testing.T) {
	assert.Equal(t, "resolved", ColorizeStatus(artifact.KindUnknown, false, true))
	assert.Equal(t, "resolution not found", ColorizeStatus(artifact.KindNotFound, true, true))
	assert.Equal(t, "NAME", ColorizeHeader("NAME", true))

	noColor := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = noColor }()
	assert.NotEqual(t, "verification failure", ColorizeStatus(artifact.KindVerification, true, false))
	assert.Contains(t, ColorizeHeader("NAME", false), "NAME")
}
