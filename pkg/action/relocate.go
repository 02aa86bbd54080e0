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

package action

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/relocation"
)

// Relocate is the action for rewriting a local jar into a new namespace.
//
// It provides the implementation of 'smol relocate'.
type Relocate struct {
	cfg *Configuration

	Rules relocation.Set
	// Coordinate names the input in the ledger. Derived from the file name
	// when zero.
	Coordinate artifact.Coordinate
}

// NewRelocate creates a new Relocate object with the given configuration.
func NewRelocate(cfg *Configuration) *Relocate {
	return &Relocate{cfg: cfg}
}

// Run returns the path of the relocated copy of input.
func (r *Relocate) Run(ctx context.Context, input string) (string, error) {
	if len(r.Rules) == 0 {
		return "", artifact.NewConfigurationError(artifact.Coordinate{}, errors.New("at least one relocation rule is required"))
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", err
	}
	c := r.Coordinate
	if c == (artifact.Coordinate{}) {
		c = LocalCoordinate(abs)
	}
	return r.cfg.Relocator.Relocate(ctx, relocation.Request{Coordinate: c, Input: abs, Set: r.Rules})
}

// LocalCoordinate names a file that did not come from a repository.
func LocalCoordinate(path string) artifact.Coordinate {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:`, r) || r == ' ' {
			return '_'
		}
		return r
	}, name)
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "unnamed"
	}
	return artifact.Coordinate{Group: "local", Artifact: name, Version: "0"}
}
