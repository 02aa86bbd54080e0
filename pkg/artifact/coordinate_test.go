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

package artifact

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in      string
		want    Coordinate
		wantErr bool
	}{
		{in: "com.google.guava:guava:31.1-jre", want: Coordinate{Group: "com.google.guava", Artifact: "guava", Version: "31.1-jre"}},
		{in: "io.netty:netty-transport-native-epoll:4.1.0:linux-x86_64", want: Coordinate{Group: "io.netty", Artifact: "netty-transport-native-epoll", Version: "4.1.0", Classifier: "linux-x86_64"}},
		{in: " org.example:lib:1.0-SNAPSHOT ", want: Coordinate{Group: "org.example", Artifact: "lib", Version: "1.0-SNAPSHOT"}},
		{in: "org.example:lib", wantErr: true},
		{in: "a:b:c:d:e", wantErr: true},
		{in: "org.example::1.0", wantErr: true},
		{in: "org..example:lib:1.0", wantErr: true},
		{in: "org.example:lib:../1.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCoordinate(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindConfiguration, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoordinateErrorsCarryStack(t *testing.T) {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}
	for _, in := range []string{"org.example:lib", "org.example::1.0", "org/example:lib:1.0"} {
		_, err := ParseCoordinate(in)
		require.Error(t, err, in)
		assert.Equal(t, KindConfiguration, KindOf(err), in)

		_, ok := errors.Cause(err).(stackTracer)
		assert.True(t, ok, "cause of %q should record where it was created", in)
		assert.Contains(t, fmt.Sprintf("%+v", errors.Cause(err)), "coordinate.go", in)
	}
}

func TestCoordinateHelpers(t *testing.T) {
	c := Coordinate{Group: "org.example.deep", Artifact: "lib", Version: "2.0-SNAPSHOT", Classifier: "sources"}

	assert.True(t, c.IsSnapshot())
	assert.Equal(t, "2.0", c.BaseVersion())
	assert.Equal(t, "org/example/deep", c.GroupPath())
	assert.Equal(t, "org.example.deep:lib", c.Module())
	assert.Equal(t, "org.example.deep:lib:2.0-SNAPSHOT:sources", c.String())

	release := Coordinate{Group: "g", Artifact: "a", Version: "1.0"}
	assert.False(t, release.IsSnapshot())
	assert.Equal(t, "1.0", release.BaseVersion())
}

func TestCoordinateAsMapKey(t *testing.T) {
	m := map[Coordinate]int{}
	a, err := ParseCoordinate("g:a:1.0")
	require.NoError(t, err)
	b := Coordinate{Group: "g", Artifact: "a", Version: "1.0"}
	m[a]++
	m[b]++
	assert.Len(t, m, 1)
	assert.Equal(t, 2, m[a])
}

func TestErrorKinds(t *testing.T) {
	c := Coordinate{Group: "g", Artifact: "a", Version: "1"}
	cause := fmt.Errorf("boom")

	err := errors.Wrap(NewDownloadFailure(c, cause), "staging")
	assert.Equal(t, KindDownload, KindOf(err))
	assert.True(t, errors.Is(err, ErrDownload))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "download failure for g:a:1: boom")

	other := Coordinate{Group: "g", Artifact: "b", Version: "1"}
	moved := WithCoordinate(other, KindUnknown, err)
	assert.True(t, errors.Is(moved, &Error{Kind: KindDownload, Coordinate: other}))

	plain := WithCoordinate(c, KindVerification, cause)
	assert.Equal(t, KindVerification, KindOf(plain))
	assert.Nil(t, WithCoordinate(c, KindVerification, nil))
	assert.Equal(t, KindUnknown, KindOf(cause))
}

func TestRepositoryResolve(t *testing.T) {
	assert.Equal(t, "https://repo1.maven.org/maven2/g/a/1/a-1.jar", Central().Resolve("g/a/1/a-1.jar"))
	r := Repository{URL: "https://example.com/repo"}
	assert.Equal(t, "https://example.com/repo/x.jar", r.Resolve("/x.jar"))
}
