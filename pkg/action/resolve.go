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

	"smol.sh/smol/pkg/artifact"
)

// Resolve is the action for locating a single coordinate.
//
// It provides the implementation of 'smol resolve'.
type Resolve struct {
	cfg *Configuration

	Repositories []artifact.Repository
}

// NewResolve creates a new Resolve object with the given configuration.
func NewResolve(cfg *Configuration) *Resolve {
	return &Resolve{cfg: cfg}
}

// Run returns where c can be downloaded from. Maven Central is searched
// when no repository is set.
func (r *Resolve) Run(ctx context.Context, c artifact.Coordinate) (*artifact.ResolvedLocation, error) {
	repos := r.Repositories
	if len(repos) == 0 {
		repos = []artifact.Repository{artifact.Central()}
	}
	return r.cfg.Enquirer.Resolve(ctx, c, repos)
}
