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
	"context"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// Rewriter rewrites the namespace of an artifact. Implementations must be
// deterministic: the same input and set always produce the same bytes.
type Rewriter interface {
	Rewrite(ctx context.Context, input string, output io.Writer, set Set) error
}

// RewriterFunc adapts a function to the Rewriter interface.
type RewriterFunc func(ctx context.Context, input string, output io.Writer, set Set) error

// Rewrite calls f.
func (f RewriterFunc) Rewrite(ctx context.Context, input string, output io.Writer, set Set) error {
	return f(ctx, input, output, set)
}

// JarRewriter relocates classes and resources inside a jar.
//
// Entry names, the constant pools of class files, service descriptors and
// textual resources are rewritten. Signature files are dropped since
// relocated classes no longer match them. Entry order, timestamps and
// compression methods are preserved.
type JarRewriter struct{}

var textExtensions = map[string]bool{
	".properties": true,
	".xml":        true,
	".json":       true,
	".txt":        true,
	".mf":         true,
	".factories":  true,
}

const (
	servicesDir = "META-INF/services/"
	versionsDir = "META-INF/versions/"
)

// Rewrite implements Rewriter.
func (JarRewriter) Rewrite(ctx context.Context, input string, output io.Writer, set Set) error {
	m, err := set.compile()
	if err != nil {
		return err
	}

	zr, err := zip.OpenReader(input)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", input)
	}
	defer zr.Close()

	zw := zip.NewWriter(output)
	if err := zw.SetComment(zr.Comment); err != nil {
		return err
	}

	seen := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if isSignatureFile(f.Name) {
			continue
		}

		name := mapEntryName(m, f.Name)
		if seen[name] {
			if strings.HasSuffix(name, "/") {
				continue
			}
			return errors.Errorf("relocation maps two entries onto %s", name)
		}
		seen[name] = true

		hdr := f.FileHeader
		hdr.Name = name
		hdr.Extra = nil
		hdr.CRC32 = 0
		hdr.CompressedSize64 = 0
		hdr.UncompressedSize64 = 0

		w, err := zw.CreateHeader(&hdr)
		if err != nil {
			return errors.Wrapf(err, "unable to write %s", name)
		}
		if f.FileInfo().IsDir() {
			continue
		}

		data, err := readEntry(f)
		if err != nil {
			return err
		}
		if data, err = mapEntryContent(m, name, data); err != nil {
			return errors.Wrapf(err, "unable to relocate %s", f.Name)
		}
		if _, err := w.Write(data); err != nil {
			return errors.Wrapf(err, "unable to write %s", name)
		}
	}
	return zw.Close()
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", f.Name)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return data, errors.Wrapf(err, "unable to read %s", f.Name)
}

func isSignatureFile(name string) bool {
	dir, file := path.Split(name)
	if dir != "META-INF/" {
		return false
	}
	upper := strings.ToUpper(file)
	if strings.HasPrefix(upper, "SIG-") {
		return true
	}
	switch path.Ext(upper) {
	case ".SF", ".RSA", ".DSA", ".EC":
		return true
	}
	return false
}

func mapEntryName(m *remapper, name string) string {
	if strings.HasPrefix(name, servicesDir) && len(name) > len(servicesDir) {
		mapped, _ := m.MapClassName(name[len(servicesDir):])
		return servicesDir + mapped
	}
	if strings.HasPrefix(name, versionsDir) {
		rest := name[len(versionsDir):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			mapped, _ := m.Map(rest[i+1:])
			return versionsDir + rest[:i+1] + mapped
		}
		return name
	}
	mapped, _ := m.Map(name)
	return mapped
}

func mapEntryContent(m *remapper, name string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(name, ".class") && isClassFile(data):
		out, _, err := remapClass(data, m)
		return out, err
	case strings.HasPrefix(name, servicesDir), textExtensions[strings.ToLower(path.Ext(name))]:
		if mapped, ok := m.Map(string(data)); ok {
			return []byte(mapped), nil
		}
	}
	return data, nil
}
