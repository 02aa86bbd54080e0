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

// Package mirror orders the repositories a coordinate is looked up in.
package mirror // import "smol.sh/smol/pkg/mirror"

import (
	"sort"
	"strings"

	"smol.sh/smol/pkg/artifact"
)

// Selector orders the repository list handed to the enquirer. Implementations
// must not modify the input slice.
type Selector interface {
	Select(repos []artifact.Repository) []artifact.Repository
}

// SelectorFunc adapts a function to the Selector interface.
type SelectorFunc func(repos []artifact.Repository) []artifact.Repository

// Select calls f.
func (f SelectorFunc) Select(repos []artifact.Repository) []artifact.Repository {
	return f(repos)
}

// DeclarationOrder keeps repositories in the order they were declared.
type DeclarationOrder struct{}

// Select returns a copy of repos.
func (DeclarationOrder) Select(repos []artifact.Repository) []artifact.Repository {
	return append([]artifact.Repository(nil), repos...)
}

// PriorityOrder puts higher priorities first. Equal priorities keep their
// declaration order.
type PriorityOrder struct{}

// Select returns repos sorted by descending priority.
func (PriorityOrder) Select(repos []artifact.Repository) []artifact.Repository {
	out := append([]artifact.Repository(nil), repos...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Mirrors replaces repositories by their configured mirror, keeping each
// repository's position and priority. Keys and values are base URLs; a
// trailing slash is not significant.
type Mirrors map[string]string

// Select substitutes mirrored repositories and drops duplicates that the
// substitution produces.
func (m Mirrors) Select(repos []artifact.Repository) []artifact.Repository {
	index := make(map[string]string, len(m))
	for from, to := range m {
		index[normalize(from)] = to
	}

	out := make([]artifact.Repository, 0, len(repos))
	seen := make(map[string]bool, len(repos))
	for _, r := range repos {
		if to, ok := index[normalize(r.URL)]; ok {
			r.URL = to
		}
		key := normalize(r.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func normalize(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

// Chain applies selectors left to right.
type Chain []Selector

// Select runs each selector on the output of the previous one.
func (c Chain) Select(repos []artifact.Repository) []artifact.Repository {
	out := append([]artifact.Repository(nil), repos...)
	for _, s := range c {
		out = s.Select(out)
	}
	return out
}

// Default is the selector used when none is configured.
func Default() Selector {
	return DeclarationOrder{}
}
