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

/*
Package strategy turns coordinates into repository relative paths.

All strategies are pure: they never touch the network. Snapshot paths need
the concrete timestamped build, which the caller learns from the per-version
metadata descriptor (see DescriptorPath and ParseMetadata) and passes in the
Target.
*/
package strategy // import "smol.sh/smol/pkg/strategy"

import (
	"fmt"
	"path"

	"github.com/pkg/errors"

	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/checksum"
)

// DefaultExtension is the packaging of artifacts fetched by default.
const DefaultExtension = "jar"

// Target is a coordinate plus, for snapshots, the concrete build version
// (e.g. "1.0-20230101.120000-3") learned from the version descriptor.
type Target struct {
	artifact.Coordinate
	Snapshot string
}

// Strategy builds the repository relative path of a target.
type Strategy interface {
	Path(t Target) (string, error)
}

// Func adapts a function to the Strategy interface.
type Func func(t Target) (string, error)

// Path calls f(t).
func (f Func) Path(t Target) (string, error) { return f(t) }

func dir(c artifact.Coordinate) string {
	return path.Join(c.GroupPath(), c.Artifact, c.Version)
}

func fileName(c artifact.Coordinate, version, ext string) string {
	name := c.Artifact + "-" + version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + ext
}

// Release builds {group}/{artifact}/{version}/{artifact}-{version}[-{classifier}].{ext}.
type Release struct {
	Extension string
}

// Path implements Strategy.
func (r Release) Path(t Target) (string, error) {
	return path.Join(dir(t.Coordinate), fileName(t.Coordinate, t.Version, ext(r.Extension))), nil
}

// Snapshot builds the path of a concrete snapshot build. The directory keeps
// the -SNAPSHOT version while the file name carries the timestamped build.
type Snapshot struct {
	Extension string
}

// Path implements Strategy.
func (s Snapshot) Path(t Target) (string, error) {
	if !t.IsSnapshot() {
		return "", errors.Errorf("%s is not a snapshot version", t.Coordinate)
	}
	if t.Snapshot == "" {
		return "", errors.Errorf("no snapshot build resolved for %s", t.Coordinate)
	}
	return path.Join(dir(t.Coordinate), fileName(t.Coordinate, t.Snapshot, ext(s.Extension))), nil
}

// Mediating picks the snapshot strategy for snapshot versions and the release
// strategy for everything else.
type Mediating struct {
	Release  Strategy
	Snapshot Strategy
}

// NewMediating creates the default release/snapshot pair for ext.
func NewMediating(ext string) *Mediating {
	return &Mediating{Release: Release{Extension: ext}, Snapshot: Snapshot{Extension: ext}}
}

// Path implements Strategy.
func (m *Mediating) Path(t Target) (string, error) {
	if t.IsSnapshot() {
		return m.Snapshot.Path(t)
	}
	return m.Release.Path(t)
}

// Pom locates the project descriptor of a target. Aggregator modules publish
// only this file.
func Pom() Strategy {
	return NewMediating("pom")
}

// Checksum appends the checksum extension of an algorithm to the path built
// by another strategy.
type Checksum struct {
	Algorithm checksum.Algorithm
	Inner     Strategy
}

// NewChecksum wraps inner with the named algorithm.
func NewChecksum(algorithm string, inner Strategy) (*Checksum, error) {
	a, err := checksum.Lookup(algorithm)
	if err != nil {
		return nil, artifact.NewConfigurationError(artifact.Coordinate{}, err)
	}
	return &Checksum{Algorithm: a, Inner: inner}, nil
}

// Path implements Strategy.
func (c *Checksum) Path(t Target) (string, error) {
	p, err := c.Inner.Path(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", p, c.Algorithm.Extension), nil
}

// DescriptorPath is the location of the per-version metadata descriptor used
// to resolve snapshot builds.
func DescriptorPath(c artifact.Coordinate) string {
	return path.Join(dir(c), MetadataFile)
}

func ext(e string) string {
	if e == "" {
		return DefaultExtension
	}
	return e
}
