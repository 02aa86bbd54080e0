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
	"fmt"
	"strings"
	"testing"

	"smol.sh/smol/internal/version"
)

func TestResolveCmd(t *testing.T) {
	srv := newRepository(t, map[string]string{
		coreJar:           "core jar",
		coreJar + ".sha1": coreSHA1,
		"/repo/com/example/parent/1.0/parent-1.0.pom": "<project/>",
	})
	repo := srv.URL + "/repo/"
	empty := newRepository(t, map[string]string{}).URL + "/repo/"

	tests := []cmdTestCase{{
		name:     "table output",
		cmd:      fmt.Sprintf("resolve com.example:core:1.0 --repo %s", repo),
		contains: []string{"COORDINATE", "com.example:core:1.0", srv.URL + coreJar, srv.URL + coreJar + ".sha1"},
	}, {
		name:     "first repository with the artifact wins",
		cmd:      fmt.Sprintf("resolve com.example:core:1.0 -r %s -r %s -o json", empty, repo),
		contains: []string{`"repository": "` + repo + `"`, `"downloadURL": "` + srv.URL + coreJar + `"`},
	}, {
		name:     "aggregator",
		cmd:      fmt.Sprintf("resolve com.example:parent:1.0 -r %s -o yaml", repo),
		contains: []string{"aggregator: true"},
	}, {
		name:      "not found",
		cmd:       fmt.Sprintf("resolve com.example:other:1.0 -r %s", repo),
		wantError: true,
		contains:  []string{"resolution not found"},
	}, {
		name:      "bad coordinate",
		cmd:       "resolve com.example:core",
		wantError: true,
	}, {
		name:      "no coordinate",
		cmd:       "resolve",
		wantError: true,
		contains:  []string{"requires 1 argument"},
	}}
	runTestCmd(t, tests)
}

func TestVersionCmd(t *testing.T) {
	tests := []cmdTestCase{{
		name:     "default",
		cmd:      "version",
		contains: []string{"version.BuildInfo", version.GetVersion()},
	}, {
		name:     "short",
		cmd:      "version --short",
		contains: []string{version.GetVersion()},
	}, {
		name:     "template",
		cmd:      "version --template='Version: {{.Version}}'",
		contains: []string{"Version: " + version.GetVersion()},
	}, {
		name:      "bad template",
		cmd:       "version --template='{{.Version'",
		wantError: true,
	}}
	runTestCmd(t, tests)

	_, out, err := executeActionCommandC("version --short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "BuildInfo") {
		t.Errorf("short version should not print build info, got %q", out)
	}
}
