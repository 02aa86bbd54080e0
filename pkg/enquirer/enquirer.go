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
Package enquirer finds where a coordinate can be downloaded from.

The Enquirer walks the repositories in the order chosen by a mirror
selector, builds candidate paths with the path strategies and probes them.
The first repository that has the artifact wins. Results, including
NotFound, are remembered for the lifetime of the Enquirer.
*/
package enquirer // import "smol.sh/smol/pkg/enquirer"

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smol.sh/smol/internal/flight"
	"smol.sh/smol/internal/logging"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/cache"
	"smol.sh/smol/pkg/checksum"
	"smol.sh/smol/pkg/getter"
	"smol.sh/smol/pkg/mirror"
	"smol.sh/smol/pkg/strategy"
)

// Enquirer resolves coordinates to download locations.
type Enquirer struct {
	// Getters fetch version descriptors.
	Getters getter.Providers
	// Prober checks candidate URLs.
	Prober getter.Prober
	// Selector orders repositories before each lookup.
	Selector mirror.Selector
	// Extension is the packaging to look for, "jar" when empty.
	Extension string
	// Algorithm selects the published checksum file to look for.
	Algorithm checksum.Algorithm
	// Signatures enables the lookup of detached .asc signatures.
	Signatures bool
	// Options are passed to every getter call.
	Options []getter.Option
	Log     logrus.FieldLogger

	group flight.Group[*artifact.ResolvedLocation]
	memo  *cache.ConcurrentMapCache[artifact.Coordinate, result]
}

type result struct {
	location *artifact.ResolvedLocation
	err      error
}

// New creates an Enquirer that fetches and probes through providers.
func New(providers getter.Providers, log logrus.FieldLogger, options ...getter.Option) *Enquirer {
	return &Enquirer{
		Getters:   providers,
		Prober:    getter.NewProber(providers, log, options...),
		Selector:  mirror.Default(),
		Algorithm: checksum.Default,
		Options:   options,
		Log:       log,
		memo:      cache.NewConcurrentMapCache[artifact.Coordinate, result](),
	}
}

// Resolve returns the location of c in the first repository that has it.
//
// The outcome is memoized per coordinate, so a coordinate that was not found
// stays not found for the lifetime of the Enquirer even if repos changes.
// Concurrent calls for the same coordinate share one lookup.
func (e *Enquirer) Resolve(ctx context.Context, c artifact.Coordinate, repos []artifact.Repository) (*artifact.ResolvedLocation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if r, ok := e.memo.Get(c); ok {
		return r.location, r.err
	}

	return e.group.Do(ctx, c.String(), func(ctx context.Context) (*artifact.ResolvedLocation, error) {
		if r, ok := e.memo.Get(c); ok {
			return r.location, r.err
		}
		loc, err := e.resolve(ctx, c, repos)
		// A cancelled lookup says nothing about the coordinate.
		if ctx.Err() == nil {
			e.memo.Set(c, result{location: loc, err: err})
		}
		return loc, err
	})
}

func (e *Enquirer) resolve(ctx context.Context, c artifact.Coordinate, repos []artifact.Repository) (*artifact.ResolvedLocation, error) {
	log := e.logger().WithField("coordinate", c.String())
	selector := e.Selector
	if selector == nil {
		selector = mirror.Default()
	}
	ordered := selector.Select(repos)
	if len(ordered) == 0 {
		return nil, artifact.NewNotFound(c, errors.New("no repositories configured"))
	}

	pr := e.Prober
	if pr == nil {
		pr = getter.NewProber(e.Getters, e.Log, e.Options...)
	}
	artifactStrategy := strategy.NewMediating(e.Extension)
	pomStrategy := strategy.Pom()

	for _, repo := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rlog := log.WithField("repository", repo.URL)

		target := strategy.Target{Coordinate: c}
		pomTarget := target
		if c.IsSnapshot() {
			md, err := e.descriptor(ctx, repo, c)
			if err != nil {
				rlog.WithError(err).Debug("no usable version descriptor")
				continue
			}
			if target.Snapshot, err = md.SnapshotVersion(c, e.Extension); err != nil {
				rlog.WithError(err).Debug("snapshot build not listed")
			}
			if pomTarget.Snapshot, err = md.SnapshotVersion(c, "pom"); err != nil {
				rlog.WithError(err).Debug("snapshot pom not listed")
			}
		}

		if loc, ok := e.probeArtifact(ctx, pr, repo, target, artifactStrategy); ok {
			rlog.WithField("url", loc.DownloadURL).Debug("artifact found")
			return loc, nil
		}

		if p, err := pomStrategy.Path(pomTarget); err == nil {
			if pr.Probe(ctx, repo.Resolve(p)) {
				rlog.Debug("only a project descriptor was found, treating as aggregator")
				return &artifact.ResolvedLocation{Repository: repo.URL, Aggregator: true}, nil
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, artifact.NewNotFound(c, errors.Errorf("not found in %d repositories", len(ordered)))
}

func (e *Enquirer) probeArtifact(ctx context.Context, pr getter.Prober, repo artifact.Repository, target strategy.Target, s strategy.Strategy) (*artifact.ResolvedLocation, bool) {
	p, err := s.Path(target)
	if err != nil {
		return nil, false
	}
	href := repo.Resolve(p)
	if !pr.Probe(ctx, href) {
		return nil, false
	}

	loc := &artifact.ResolvedLocation{DownloadURL: href, Repository: repo.URL}

	alg := e.Algorithm
	if alg.IsZero() {
		alg = checksum.Default
	}
	// Checksum and signature files are optional; their absence is not a failure.
	cs := &strategy.Checksum{Algorithm: alg, Inner: s}
	if cp, err := cs.Path(target); err == nil {
		if u := repo.Resolve(cp); pr.Probe(ctx, u) {
			loc.ChecksumURL = u
			loc.Algorithm = alg.Name
		}
	}
	if e.Signatures {
		if u := href + ".asc"; pr.Probe(ctx, u) {
			loc.SignatureURL = u
		}
	}
	return loc, true
}

func (e *Enquirer) descriptor(ctx context.Context, repo artifact.Repository, c artifact.Coordinate) (*strategy.Metadata, error) {
	href := repo.Resolve(strategy.DescriptorPath(c))
	g, err := e.Getters.ForURL(href)
	if err != nil {
		return nil, err
	}
	buf, err := g.Get(ctx, href, e.Options...)
	if err != nil {
		return nil, err
	}
	return strategy.ParseMetadata(buf.Bytes())
}

func (e *Enquirer) logger() logrus.FieldLogger {
	return logging.OrDiscard(e.Log)
}
