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
Package preresolution provides pinned coordinate locations.

A pre-resolution file maps coordinates to a download URL and a checksum
source decided ahead of time, so that the resolver can skip repository
lookups entirely for them.
*/
package preresolution // import "smol.sh/smol/pkg/preresolution"

import (
	_ "embed"
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"smol.sh/smol/internal/schema"
	"smol.sh/smol/pkg/artifact"
)

// DefaultFile is the conventional name of a pre-resolution file.
const DefaultFile = "smol-resolutions.json"

//go:embed schema.json
var schemaJSON []byte

// Pinned is the predetermined location of a coordinate.
type Pinned struct {
	URL         string `json:"url,omitempty"`
	ChecksumURL string `json:"checksumURL,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
	Algorithm   string `json:"algorithm,omitempty"`
	// Aggregator marks pom-only modules with nothing to download.
	Aggregator bool `json:"aggregator,omitempty"`
}

// Location converts p into the location the resolver downloads from.
func (p Pinned) Location() *artifact.ResolvedLocation {
	return &artifact.ResolvedLocation{
		DownloadURL: p.URL,
		ChecksumURL: p.ChecksumURL,
		Checksum:    p.Checksum,
		Algorithm:   p.Algorithm,
		Aggregator:  p.Aggregator,
	}
}

// Provider looks up pinned locations.
type Provider interface {
	Lookup(c artifact.Coordinate) (Pinned, bool)
}

// Map is an in-memory Provider.
type Map map[artifact.Coordinate]Pinned

// Lookup implements Provider.
func (m Map) Lookup(c artifact.Coordinate) (Pinned, bool) {
	p, ok := m[c]
	return p, ok
}

// None is a Provider without any pinned location.
type None struct{}

// Lookup implements Provider.
func (None) Lookup(artifact.Coordinate) (Pinned, bool) { return Pinned{}, false }

type file struct {
	Version     int               `json:"version"`
	Resolutions map[string]Pinned `json:"resolutions"`
}

// Load reads a pre-resolution file in JSON or YAML.
func Load(path string) (Map, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, artifact.NewConfigurationError(artifact.Coordinate{}, errors.Wrapf(err, "unable to read pre-resolution file"))
	}
	m, err := Parse(b)
	if err != nil {
		return nil, artifact.NewConfigurationError(artifact.Coordinate{}, errors.Wrapf(err, "invalid pre-resolution file %s", path))
	}
	return m, nil
}

// Parse decodes and validates the content of a pre-resolution file.
func Parse(data []byte) (Map, error) {
	if err := schema.Validate(data, schemaJSON); err != nil {
		return nil, err
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	m := make(Map, len(f.Resolutions))
	for key, p := range f.Resolutions {
		c, err := artifact.ParseCoordinate(key)
		if err != nil {
			return nil, err
		}
		if !p.Aggregator && p.URL == "" {
			return nil, errors.Errorf("%s: a url is required", key)
		}
		m[c] = p
	}
	return m, nil
}
