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
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/pkg/errors"

	"smol.sh/smol/pkg/artifact"
)

// MetadataFile is the name of the per-version descriptor.
const MetadataFile = "maven-metadata.xml"

// Metadata is the subset of a version descriptor needed to resolve a snapshot.
type Metadata struct {
	XMLName    xml.Name   `xml:"metadata"`
	GroupID    string     `xml:"groupId"`
	ArtifactID string     `xml:"artifactId"`
	Version    string     `xml:"version"`
	Versioning Versioning `xml:"versioning"`
}

// Versioning holds the snapshot information of a descriptor.
type Versioning struct {
	Snapshot         SnapshotInfo      `xml:"snapshot"`
	LastUpdated      string            `xml:"lastUpdated"`
	SnapshotVersions []SnapshotVersion `xml:"snapshotVersions>snapshotVersion"`
}

// SnapshotInfo names the latest deployed build.
type SnapshotInfo struct {
	Timestamp   string `xml:"timestamp"`
	BuildNumber int    `xml:"buildNumber"`
	LocalCopy   bool   `xml:"localCopy"`
}

// SnapshotVersion is the concrete build of one extension/classifier pair.
type SnapshotVersion struct {
	Classifier string `xml:"classifier"`
	Extension  string `xml:"extension"`
	Value      string `xml:"value"`
	Updated    string `xml:"updated"`
}

// ParseMetadata decodes a version descriptor.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "unable to parse version descriptor")
	}
	return &m, nil
}

// SnapshotVersion returns the concrete build version of c for the given
// extension. A matching snapshotVersions entry wins; otherwise the version
// is assembled from the snapshot timestamp and build number. Descriptors of
// locally installed snapshots carry no timestamp and resolve to the
// -SNAPSHOT version itself.
func (m *Metadata) SnapshotVersion(c artifact.Coordinate, extension string) (string, error) {
	extension = ext(extension)
	for _, sv := range m.Versioning.SnapshotVersions {
		if sv.Extension == extension && sv.Classifier == c.Classifier && sv.Value != "" {
			return sv.Value, nil
		}
	}
	s := m.Versioning.Snapshot
	if s.LocalCopy {
		return c.Version, nil
	}
	if s.Timestamp == "" || s.BuildNumber <= 0 {
		return "", errors.Errorf("version descriptor of %s names no snapshot build", c)
	}
	return fmt.Sprintf("%s-%s-%d", c.BaseVersion(), s.Timestamp, s.BuildNumber), nil
}
