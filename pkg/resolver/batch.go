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

package resolver

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"smol.sh/smol/pkg/artifact"
)

// Outcome is the result of resolving one dependency of a batch.
type Outcome struct {
	Dependency Dependency
	Record     *artifact.Record
	Err        error
}

// Batch holds the outcomes of ResolveAll in the order the dependencies were given.
type Batch struct {
	Outcomes []Outcome
}

// Records returns the records of the dependencies that resolved.
func (b *Batch) Records() []*artifact.Record {
	var out []*artifact.Record
	for _, o := range b.Outcomes {
		if o.Err == nil {
			out = append(out, o.Record)
		}
	}
	return out
}

// Failures returns the outcomes that failed.
func (b *Batch) Failures() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Err aggregates the failures of mandatory dependencies. Nil when every
// mandatory dependency resolved.
func (b *Batch) Err() error {
	var result *multierror.Error
	for _, o := range b.Outcomes {
		if o.Err != nil && !o.Dependency.Optional {
			result = multierror.Append(result, o.Err)
		}
	}
	return result.ErrorOrNil()
}

// ResolveAll resolves deps on a pool of Workers goroutines. A failing
// dependency never stops the others; its error is kept in its Outcome.
func (r *Resolver) ResolveAll(ctx context.Context, deps []Dependency) *Batch {
	b := &Batch{Outcomes: make([]Outcome, len(deps))}
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, dep := range deps {
		i, dep := i, dep
		g.Go(func() error {
			rec, err := r.Resolve(ctx, dep)
			b.Outcomes[i] = Outcome{Dependency: dep, Record: rec, Err: err}
			return nil
		})
	}
	// Workers never return an error.
	_ = g.Wait()
	return b
}

// FailuresByKind counts the failures per error kind.
func (b *Batch) FailuresByKind() map[artifact.Kind]int {
	counts := map[artifact.Kind]int{}
	for _, o := range b.Failures() {
		counts[artifact.KindOf(o.Err)]++
	}
	return counts
}
