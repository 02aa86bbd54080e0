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
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/resolver"
)

// Provision is the action for resolving and loading a set of dependencies.
//
// It provides the implementation of 'smol provision'.
type Provision struct {
	cfg *Configuration

	// Loader receives every loadable file, in dependency order. Nothing is
	// loaded when nil.
	Loader Loader
}

// NewProvision creates a new Provision object with the given configuration.
func NewProvision(cfg *Configuration) *Provision {
	return &Provision{cfg: cfg}
}

// Report is the outcome of a provisioning run.
type Report struct {
	Batch *resolver.Batch
	// Loaded are the paths handed to the Loader.
	Loaded []string
	// Conflicts lists modules requested in more than one version.
	Conflicts []Conflict
}

// Conflict is a module requested in several versions.
type Conflict struct {
	Module   string
	Versions []string
}

// Run resolves deps and loads the results.
//
// Failures of optional dependencies are logged and skipped. Failures of
// mandatory dependencies, including load failures, are returned together;
// the report is returned either way.
func (p *Provision) Run(ctx context.Context, deps []resolver.Dependency) (*Report, error) {
	if p.cfg == nil || p.cfg.Resolver == nil {
		return nil, errors.New("configuration is not initialized")
	}
	log := p.cfg.Log

	report := &Report{Conflicts: conflicts(deps)}
	for _, c := range report.Conflicts {
		log.WithFields(logrus.Fields{"module": c.Module, "versions": c.Versions}).
			Warnf("module requested in several versions, %s is the newest", c.Versions[len(c.Versions)-1])
	}

	report.Batch = p.cfg.Resolver.ResolveAll(ctx, deps)

	var result *multierror.Error
	for _, o := range report.Batch.Outcomes {
		olog := log.WithField("coordinate", o.Dependency.Coordinate.String())
		if o.Err != nil {
			if o.Dependency.Optional {
				olog.WithError(o.Err).Warn("skipping optional dependency")
				continue
			}
			result = multierror.Append(result, o.Err)
			continue
		}
		if !o.Record.Loadable() || p.Loader == nil {
			continue
		}
		if err := p.Loader.MakeLoadable(o.Record.LocalPath); err != nil {
			err = errors.Wrapf(err, "unable to load %s", o.Dependency.Coordinate)
			if o.Dependency.Optional {
				olog.WithError(err).Warn("skipping optional dependency")
				continue
			}
			result = multierror.Append(result, err)
			continue
		}
		report.Loaded = append(report.Loaded, o.Record.LocalPath)
	}
	if err := result.ErrorOrNil(); err != nil {
		return report, errors.Wrap(err, "provisioning failed")
	}
	return report, nil
}

// conflicts finds modules listed with more than one version. Versions are
// ordered oldest first; those that are not semantic versions sort before
// the rest, by name.
func conflicts(deps []resolver.Dependency) []Conflict {
	versions := map[string]map[string]bool{}
	var order []string
	for _, d := range deps {
		m := moduleKey(d.Coordinate)
		if versions[m] == nil {
			versions[m] = map[string]bool{}
			order = append(order, m)
		}
		versions[m][d.Coordinate.Version] = true
	}

	var out []Conflict
	for _, m := range order {
		if len(versions[m]) < 2 {
			continue
		}
		vs := make([]string, 0, len(versions[m]))
		for v := range versions[m] {
			vs = append(vs, v)
		}
		sort.Slice(vs, func(i, j int) bool { return versionLess(vs[i], vs[j]) })
		out = append(out, Conflict{Module: m, Versions: vs})
	}
	return out
}

func moduleKey(c artifact.Coordinate) string {
	if c.Classifier != "" {
		return c.Module() + ":" + c.Classifier
	}
	return c.Module()
}

func versionLess(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return true
	case errB != nil:
		return false
	}
	return va.LessThan(vb)
}
