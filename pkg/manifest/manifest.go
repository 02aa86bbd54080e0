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
Package manifest loads the list of dependencies an application provisions.

Manifests are written in YAML, JSON or TOML:

	application: myapp
	repositories:
	  - url: https://repo1.maven.org/maven2/
	  - url: https://maven.example.com/private/
	    username: deployer
	    password: ${MAVEN_PASSWORD}
	mirrors:
	  https://repo1.maven.org/maven2/: https://maven.example.com/central/
	dependencies:
	  - coordinate: com.google.code.gson:gson:2.10.1
	    relocations:
	      - from: com.google.gson
	        to: myapp.shaded.gson

Repository usernames and passwords have environment variables expanded.
*/
package manifest // import "smol.sh/smol/pkg/manifest"

import (
	_ "embed"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"smol.sh/smol/internal/schema"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/getter"
	"smol.sh/smol/pkg/mirror"
	"smol.sh/smol/pkg/relocation"
	"smol.sh/smol/pkg/resolver"
)

// DefaultFile is the manifest looked up when none is named.
const DefaultFile = "smol.yaml"

//go:embed schema.json
var schemaJSON []byte

// Manifest is the decoded dependency manifest.
type Manifest struct {
	Application string `json:"application,omitempty"`
	// Repositories apply to every dependency that does not list its own.
	// Maven Central is used when empty.
	Repositories []artifact.Repository `json:"repositories,omitempty"`
	// Mirrors substitute repository base URLs.
	Mirrors      map[string]string `json:"mirrors,omitempty"`
	Dependencies []Dependency      `json:"dependencies"`
}

// Dependency is a single manifest entry.
type Dependency struct {
	Coordinate   string                `json:"coordinate"`
	Optional     bool                  `json:"optional,omitempty"`
	Repositories []artifact.Repository `json:"repositories,omitempty"`
	Relocations  []relocation.Rule     `json:"relocations,omitempty"`
}

// Load reads the manifest at path. The format is chosen by extension:
// .toml is TOML, anything else is YAML (which includes JSON).
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, artifact.NewConfigurationError(artifact.Coordinate{}, errors.Wrap(err, "unable to read manifest"))
	}
	var m *Manifest
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		m, err = ParseTOML(b)
	} else {
		m, err = Parse(b)
	}
	if err != nil {
		return nil, artifact.NewConfigurationError(artifact.Coordinate{}, errors.Wrapf(err, "invalid manifest %s", path))
	}
	return m, nil
}

// Parse decodes a YAML or JSON manifest.
func Parse(data []byte) (*Manifest, error) {
	if err := schema.Validate(data, schemaJSON); err != nil {
		return nil, err
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	m.expandCredentials()
	return m, m.Validate()
}

func (m *Manifest) expandCredentials() {
	expand := func(repos []artifact.Repository) {
		for i := range repos {
			repos[i].Username = os.ExpandEnv(repos[i].Username)
			repos[i].Password = os.ExpandEnv(repos[i].Password)
		}
	}
	expand(m.Repositories)
	for _, d := range m.Dependencies {
		expand(d.Repositories)
	}
}

// ParseTOML decodes a TOML manifest.
func ParseTOML(data []byte) (*Manifest, error) {
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	// The schema and the struct tags are shared with the YAML form.
	j, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return Parse(j)
}

// Validate checks coordinates, repository URLs and relocation rules.
func (m *Manifest) Validate() error {
	for _, r := range m.Repositories {
		if err := validateRepository(r); err != nil {
			return err
		}
	}
	for from, to := range m.Mirrors {
		for _, u := range []string{from, to} {
			if err := validateRepository(artifact.Repository{URL: u}); err != nil {
				return errors.Wrap(err, "mirrors")
			}
		}
	}
	seen := make(map[string]bool, len(m.Dependencies))
	for _, d := range m.Dependencies {
		c, err := artifact.ParseCoordinate(d.Coordinate)
		if err != nil {
			return err
		}
		if seen[c.String()] {
			return errors.Errorf("%s is listed twice", c)
		}
		seen[c.String()] = true
		for _, r := range d.Repositories {
			if err := validateRepository(r); err != nil {
				return errors.Wrap(err, c.String())
			}
		}
		if err := relocation.Set(d.Relocations).Validate(); err != nil {
			return errors.Wrap(err, c.String())
		}
	}
	return nil
}

func validateRepository(r artifact.Repository) error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return errors.Wrapf(err, "invalid repository URL %q", r.URL)
	}
	switch u.Scheme {
	case "http", "https":
		if !govalidator.IsURL(r.URL) {
			return errors.Errorf("invalid repository URL %q", r.URL)
		}
	case "file":
		if u.Path == "" || !strings.HasPrefix(u.Path, "/") {
			return errors.Errorf("repository %q must be an absolute file URL", r.URL)
		}
	default:
		return errors.Errorf("repository %q: scheme %q not supported", r.URL, u.Scheme)
	}
	return nil
}

// Selector orders repositories for the manifest: mirrors first, then
// priority.
func (m *Manifest) Selector() mirror.Selector {
	if len(m.Mirrors) == 0 {
		return mirror.PriorityOrder{}
	}
	return mirror.Chain{mirror.Mirrors(m.Mirrors), mirror.PriorityOrder{}}
}

// GetterOptions returns the request options for the manifest: the login of
// every repository that has one, keyed by its URL.
func (m *Manifest) GetterOptions() []getter.Option {
	var creds []getter.Credential
	add := func(repos []artifact.Repository) {
		for _, r := range repos {
			if r.Username == "" {
				continue
			}
			creds = append(creds, getter.Credential{BaseURL: r.URL, Username: r.Username, Password: r.Password})
		}
	}
	add(m.Repositories)
	for _, d := range m.Dependencies {
		add(d.Repositories)
	}
	if len(creds) == 0 {
		return nil
	}
	return []getter.Option{getter.WithCredentials(creds...)}
}

// Resolve converts the manifest entries into resolver dependencies.
func (m *Manifest) Resolve() ([]resolver.Dependency, error) {
	defaults := m.Repositories
	if len(defaults) == 0 {
		defaults = []artifact.Repository{artifact.Central()}
	}
	deps := make([]resolver.Dependency, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		c, err := artifact.ParseCoordinate(d.Coordinate)
		if err != nil {
			return nil, err
		}
		repos := d.Repositories
		if len(repos) == 0 {
			repos = defaults
		}
		deps = append(deps, resolver.Dependency{
			Coordinate:   c,
			Repositories: repos,
			Relocations:  relocation.Set(d.Relocations),
			Optional:     d.Optional,
		})
	}
	return deps, nil
}
