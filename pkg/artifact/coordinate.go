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

package artifact // import "smol.sh/smol/pkg/artifact"

import (
	"strings"

	"github.com/pkg/errors"
)

// SnapshotSuffix marks a mutable, timestamp-qualified version.
const SnapshotSuffix = "-SNAPSHOT"

// Coordinate identifies a single dependency.
//
// Coordinates are comparable and are used directly as map keys.
type Coordinate struct {
	Group      string `json:"group"`
	Artifact   string `json:"artifact"`
	Version    string `json:"version"`
	Classifier string `json:"classifier,omitempty"`
}

// ParseCoordinate parses the group:artifact:version[:classifier] notation.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Coordinate{}, NewConfigurationError(Coordinate{}, errors.Errorf("coordinate %q is not in the form group:artifact:version[:classifier]", s))
	}
	c := Coordinate{
		Group:    parts[0],
		Artifact: parts[1],
		Version:  parts[2],
	}
	if len(parts) == 4 {
		c.Classifier = parts[3]
	}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks that the coordinate can be safely turned into a repository path.
func (c Coordinate) Validate() error {
	for name, v := range map[string]string{"group": c.Group, "artifact": c.Artifact, "version": c.Version} {
		if v == "" {
			return NewConfigurationError(c, errors.Errorf("%s must not be empty", name))
		}
	}
	for _, v := range []string{c.Group, c.Artifact, c.Version, c.Classifier} {
		if strings.ContainsAny(v, `/\:`) || strings.Contains(v, "..") || strings.TrimSpace(v) != v {
			return NewConfigurationError(c, errors.Errorf("illegal character in %q", v))
		}
	}
	return nil
}

// IsSnapshot reports whether the version names a snapshot build.
func (c Coordinate) IsSnapshot() bool {
	return strings.HasSuffix(c.Version, SnapshotSuffix)
}

// BaseVersion is the version with any snapshot qualifier removed.
func (c Coordinate) BaseVersion() string {
	return strings.TrimSuffix(c.Version, SnapshotSuffix)
}

// GroupPath returns the group as a slash separated repository path.
func (c Coordinate) GroupPath() string {
	return strings.ReplaceAll(c.Group, ".", "/")
}

// Module returns group:artifact, the identity of the coordinate without its version.
func (c Coordinate) Module() string {
	return c.Group + ":" + c.Artifact
}

func (c Coordinate) String() string {
	s := c.Group + ":" + c.Artifact + ":" + c.Version
	if c.Classifier != "" {
		s += ":" + c.Classifier
	}
	return s
}
