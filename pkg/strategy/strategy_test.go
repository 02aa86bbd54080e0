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

package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smol.sh/smol/pkg/artifact"
)

var (
	release  = artifact.Coordinate{Group: "com.example.lib", Artifact: "core", Version: "1.2.3"}
	native   = artifact.Coordinate{Group: "com.example.lib", Artifact: "core", Version: "1.2.3", Classifier: "linux-x86_64"}
	snapshot = artifact.Coordinate{Group: "com.example.lib", Artifact: "core", Version: "2.0-SNAPSHOT"}
)

func TestRelease(t *testing.T) {
	p, err := Release{}.Path(Target{Coordinate: release})
	require.NoError(t, err)
	assert.Equal(t, "com/example/lib/core/1.2.3/core-1.2.3.jar", p)

	p, err = Release{Extension: "zip"}.Path(Target{Coordinate: native})
	require.NoError(t, err)
	assert.Equal(t, "com/example/lib/core/1.2.3/core-1.2.3-linux-x86_64.zip", p)
}

func TestSnapshot(t *testing.T) {
	_, err := Snapshot{}.Path(Target{Coordinate: snapshot})
	assert.Error(t, err, "a snapshot path needs the concrete build")

	_, err = Snapshot{}.Path(Target{Coordinate: release, Snapshot: "x"})
	assert.Error(t, err)

	p, err := Snapshot{}.Path(Target{Coordinate: snapshot, Snapshot: "2.0-20230101.120000-3"})
	require.NoError(t, err)
	assert.Equal(t, "com/example/lib/core/2.0-SNAPSHOT/core-2.0-20230101.120000-3.jar", p)
}

func TestMediating(t *testing.T) {
	m := NewMediating("")

	p, err := m.Path(Target{Coordinate: release})
	require.NoError(t, err)
	assert.Equal(t, "com/example/lib/core/1.2.3/core-1.2.3.jar", p)

	p, err = m.Path(Target{Coordinate: snapshot, Snapshot: "2.0-20230101.120000-3"})
	require.NoError(t, err)
	assert.Equal(t, "com/example/lib/core/2.0-SNAPSHOT/core-2.0-20230101.120000-3.jar", p)
}

func TestPomAndChecksum(t *testing.T) {
	p, err := Pom().Path(Target{Coordinate: release})
	require.NoError(t, err)
	assert.Equal(t, "com/example/lib/core/1.2.3/core-1.2.3.pom", p)

	cs, err := NewChecksum("SHA-1", NewMediating(""))
	require.NoError(t, err)
	p, err = cs.Path(Target{Coordinate: native})
	require.NoError(t, err)
	assert.Equal(t, "com/example/lib/core/1.2.3/core-1.2.3-linux-x86_64.jar.sha1", p)

	cs, err = NewChecksum("sha512", Pom())
	require.NoError(t, err)
	p, err = cs.Path(Target{Coordinate: release})
	require.NoError(t, err)
	assert.Equal(t, "com/example/lib/core/1.2.3/core-1.2.3.pom.sha512", p)

	_, err = NewChecksum("whirlpool", Release{})
	assert.Equal(t, artifact.KindConfiguration, artifact.KindOf(err))

	_, err = cs.Path(Target{Coordinate: snapshot})
	assert.Error(t, err, "wrapped strategy errors propagate")
}

func TestDescriptorPath(t *testing.T) {
	assert.Equal(t, "com/example/lib/core/2.0-SNAPSHOT/maven-metadata.xml", DescriptorPath(snapshot))
}

const descriptor = `<?xml version="1.0" encoding="UTF-8"?>
<metadata modelVersion="1.1.0">
  <groupId>com.example.lib</groupId>
  <artifactId>core</artifactId>
  <version>2.0-SNAPSHOT</version>
  <versioning>
    <snapshot>
      <timestamp>20230101.120000</timestamp>
      <buildNumber>3</buildNumber>
    </snapshot>
    <lastUpdated>20230101120000</lastUpdated>
    <snapshotVersions>
      <snapshotVersion>
        <extension>jar</extension>
        <value>2.0-20230101.120000-3</value>
        <updated>20230101120000</updated>
      </snapshotVersion>
      <snapshotVersion>
        <classifier>sources</classifier>
        <extension>jar</extension>
        <value>2.0-20221231.235959-2</value>
        <updated>20221231235959</updated>
      </snapshotVersion>
    </snapshotVersions>
  </versioning>
</metadata>`

func TestParseMetadata(t *testing.T) {
	m, err := ParseMetadata([]byte(descriptor))
	require.NoError(t, err)
	assert.Equal(t, "core", m.ArtifactID)
	assert.Len(t, m.Versioning.SnapshotVersions, 2)

	v, err := m.SnapshotVersion(snapshot, "")
	require.NoError(t, err)
	assert.Equal(t, "2.0-20230101.120000-3", v)

	sources := snapshot
	sources.Classifier = "sources"
	v, err = m.SnapshotVersion(sources, "jar")
	require.NoError(t, err)
	assert.Equal(t, "2.0-20221231.235959-2", v)

	// No matching entry falls back to timestamp and build number.
	v, err = m.SnapshotVersion(snapshot, "pom")
	require.NoError(t, err)
	assert.Equal(t, "2.0-20230101.120000-3", v)
}

func TestSnapshotVersionEdgeCases(t *testing.T) {
	local := &Metadata{Versioning: Versioning{Snapshot: SnapshotInfo{LocalCopy: true}}}
	v, err := local.SnapshotVersion(snapshot, "jar")
	require.NoError(t, err)
	assert.Equal(t, "2.0-SNAPSHOT", v)

	empty := &Metadata{}
	_, err = empty.SnapshotVersion(snapshot, "jar")
	assert.Error(t, err)

	_, err = ParseMetadata([]byte("<metadata><versioning>"))
	assert.Error(t, err)
}
