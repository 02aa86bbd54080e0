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

package main

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyCmd(t *testing.T) {
	dir := t.TempDir()
	jar := writeFile(t, dir, "core-1.0.jar", "core jar")
	srv := newRepository(t, map[string]string{
		"/core-1.0.jar.sha1": coreSHA1 + "  core-1.0.jar\n",
		"/bad.sha1":          strings.Repeat("f", 40),
	})

	tests := []cmdTestCase{{
		name:     "literal checksum",
		cmd:      fmt.Sprintf("verify %s --checksum %s", jar, strings.ToUpper(coreSHA1)),
		contains: []string{"Verified: true", "SHA-1: " + coreSHA1},
	}, {
		name:     "checksum file",
		cmd:      fmt.Sprintf("verify %s --checksum-url %s/core-1.0.jar.sha1", jar, srv.URL),
		contains: []string{"Verified: true"},
	}, {
		name:     "passthrough without a checksum",
		cmd:      fmt.Sprintf("verify %s --verify passthrough --algorithm sha256", jar),
		contains: []string{"Verified: false", "SHA-256:"},
	}, {
		name:      "strict without a checksum",
		cmd:       fmt.Sprintf("verify %s", jar),
		wantError: true,
		contains:  []string{"no checksum available"},
	}, {
		name:      "mismatch",
		cmd:       fmt.Sprintf("verify %s --checksum-url %s/bad.sha1", jar, srv.URL),
		wantError: true,
		contains:  []string{"digest mismatch"},
	}, {
		name:      "both checksum sources",
		cmd:       fmt.Sprintf("verify %s --checksum %s --checksum-url %s/core-1.0.jar.sha1", jar, coreSHA1, srv.URL),
		wantError: true,
		contains:  []string{"mutually exclusive"},
	}, {
		name:      "directory",
		cmd:       fmt.Sprintf("verify %s --checksum %s", dir, coreSHA1),
		wantError: true,
	}, {
		name:      "unknown algorithm",
		cmd:       fmt.Sprintf("verify %s --checksum %s --algorithm crc32", jar, coreSHA1),
		wantError: true,
	}, {
		name:      "unknown policy",
		cmd:       fmt.Sprintf("verify %s --checksum %s --verify lenient", jar, coreSHA1),
		wantError: true,
		contains:  []string{"verification policy"},
	}}
	runTestCmd(t, tests)
}

func writeTestJar(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(dir, "util-1.0.jar")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return p
}

func jarEntries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestRelocateCmd(t *testing.T) {
	jar := writeTestJar(t, t.TempDir(), map[string]string{
		"META-INF/MANIFEST.MF":            "Manifest-Version: 1.0\n",
		"com/example/util/app.properties": "name=util\n",
	})
	resetEnv(t)

	_, out, err := executeActionCommandC(fmt.Sprintf("relocate %s --rule com.example.util=demo.shaded.util", jar))
	require.NoError(t, err, out)
	relocated := strings.TrimSpace(out)
	assert.Contains(t, relocated, filepath.Join("relocated", "local", "util-1.0", "0"))
	assert.Contains(t, jarEntries(t, relocated), "demo/shaded/util/app.properties")

	info, err := os.Stat(relocated)
	require.NoError(t, err)

	_, again, err := executeActionCommandC(fmt.Sprintf("relocate %s --rule com.example.util=demo.shaded.util", jar))
	require.NoError(t, err, again)
	assert.Equal(t, relocated, strings.TrimSpace(again))
	after, err := os.Stat(relocated)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime(), "a recorded relocation is not rewritten")

	_, named, err := executeActionCommandC(fmt.Sprintf("relocate %s --rule com.example.util=demo.shaded.util --coordinate com.example:util:1.0", jar))
	require.NoError(t, err, named)
	assert.Contains(t, named, filepath.Join("relocated", "com", "example", "util", "1.0"))
}

func TestRelocateCmdErrors(t *testing.T) {
	jar := writeTestJar(t, t.TempDir(), map[string]string{"a.txt": "a"})

	tests := []cmdTestCase{{
		name:      "no rules",
		cmd:       fmt.Sprintf("relocate %s", jar),
		wantError: true,
		contains:  []string{"at least one relocation rule"},
	}, {
		name:      "malformed rule",
		cmd:       fmt.Sprintf("relocate %s --rule com.example", jar),
		wantError: true,
		contains:  []string{"from=to"},
	}, {
		name:      "bad coordinate",
		cmd:       fmt.Sprintf("relocate %s --rule a.b=c.d --coordinate nope", jar),
		wantError: true,
	}, {
		name:      "missing jar",
		cmd:       "relocate /does/not/exist.jar --rule a.b=c.d",
		wantError: true,
	}}
	runTestCmd(t, tests)
}
