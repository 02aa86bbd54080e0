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
Package resolver turns dependencies into verified local files.

For each dependency the Resolver finds a location (pinned or enquired),
stages the artifact in the download directory, authenticates it and, when
relocation rules are attached, rewrites it into its own namespace.
*/
package resolver // import "smol.sh/smol/pkg/resolver"

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smol.sh/smol/internal/flight"
	"smol.sh/smol/internal/logging"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/cache"
	"smol.sh/smol/pkg/downloader"
	"smol.sh/smol/pkg/preresolution"
	"smol.sh/smol/pkg/relocation"
	"smol.sh/smol/pkg/verifier"
)

// DefaultWorkers is the size of the ResolveAll pool when Workers is unset.
const DefaultWorkers = 4

// Dependency is one artifact the host needs at runtime.
type Dependency struct {
	Coordinate   artifact.Coordinate
	Repositories []artifact.Repository
	// Relocations are applied to the artifact after verification.
	Relocations relocation.Set
	// Optional dependencies may fail without failing provisioning.
	Optional bool
}

// Locator finds where a coordinate can be downloaded from.
type Locator interface {
	Resolve(ctx context.Context, c artifact.Coordinate, repos []artifact.Repository) (*artifact.ResolvedLocation, error)
}

// Relocator rewrites an artifact into a new namespace.
type Relocator interface {
	Relocate(ctx context.Context, req relocation.Request) (string, error)
}

// Resolver wires location, download, verification and relocation together.
type Resolver struct {
	PreResolution preresolution.Provider
	Locator       Locator
	Downloader    *downloader.Downloader
	Verifier      *verifier.Verifier
	Relocator     Relocator
	// Workers bounds ResolveAll. DefaultWorkers when zero.
	Workers int
	Log     logrus.FieldLogger

	group   flight.Group[*artifact.Record]
	records cache.Cache[recordKey, *artifact.Record]
}

type recordKey struct {
	coordinate artifact.Coordinate
	set        string
}

func (k recordKey) String() string {
	return k.coordinate.String() + "\x00" + k.set
}

// New creates a Resolver. pre may be nil when nothing is pinned.
func New(pre preresolution.Provider, loc Locator, d *downloader.Downloader, v *verifier.Verifier, rel Relocator, log logrus.FieldLogger) *Resolver {
	if pre == nil {
		pre = preresolution.None{}
	}
	return &Resolver{
		PreResolution: pre,
		Locator:       loc,
		Downloader:    d,
		Verifier:      v,
		Relocator:     rel,
		Workers:       DefaultWorkers,
		Log:           log,
		records:       cache.NewConcurrentMapCache[recordKey, *artifact.Record](),
	}
}

// Resolve returns the record of dep, resolving it on first use.
//
// Successful records are remembered for the lifetime of the Resolver, so a
// second call for the same coordinate and relocation set does no I/O.
// Concurrent calls for the same key share one resolution.
func (r *Resolver) Resolve(ctx context.Context, dep Dependency) (*artifact.Record, error) {
	c := dep.Coordinate
	if err := c.Validate(); err != nil {
		return nil, err
	}
	key := recordKey{coordinate: c}
	if len(dep.Relocations) > 0 {
		if err := dep.Relocations.Validate(); err != nil {
			return nil, artifact.NewConfigurationError(c, err)
		}
		key.set = dep.Relocations.ID()
	}
	if rec, ok := r.records.Get(key); ok {
		return rec, nil
	}

	return r.group.Do(ctx, key.String(), func(ctx context.Context) (*artifact.Record, error) {
		if rec, ok := r.records.Get(key); ok {
			return rec, nil
		}
		rec, err := r.resolve(ctx, dep)
		if err != nil {
			return nil, err
		}
		r.records.Set(key, rec)
		return rec, nil
	})
}

func (r *Resolver) resolve(ctx context.Context, dep Dependency) (*artifact.Record, error) {
	c := dep.Coordinate
	log := r.logger().WithField("coordinate", c.String())

	loc, err := r.locate(ctx, dep)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "resolution of %s interrupted", c)
		}
		return nil, artifact.WithCoordinate(c, artifact.KindNotFound, err)
	}
	rec := &artifact.Record{Coordinate: c, Location: *loc}
	if loc.Aggregator {
		log.Debug("aggregator module, nothing to download")
		return rec, nil
	}

	if r.Downloader == nil || r.Verifier == nil {
		return nil, artifact.NewConfigurationError(c, errors.New("resolver has no downloader or verifier"))
	}
	path, reused, err := r.Downloader.Stage(ctx, c, loc.DownloadURL)
	if err != nil {
		return nil, artifact.WithCoordinate(c, artifact.KindDownload, err)
	}
	log = log.WithField("path", path)

	res, err := r.Verifier.Verify(ctx, path, verifier.SourceOf(loc), loc.Algorithm)
	if err == nil && r.Verifier.SignaturesEnabled() {
		_, err = r.Verifier.VerifySignature(ctx, path, loc.SignatureURL)
	}
	if err != nil {
		if artifact.KindOf(err) == artifact.KindVerification {
			r.discard(log, path)
		}
		return nil, artifact.WithCoordinate(c, artifact.KindVerification, err)
	}
	log.WithFields(logrus.Fields{"verified": res.Verified, "reused": reused}).Debug("artifact staged")

	rec.LocalPath = path
	rec.Checksum = res.Checksum
	rec.Verified = res.Verified

	if len(dep.Relocations) > 0 {
		if r.Relocator == nil {
			return nil, artifact.NewConfigurationError(c, errors.New("relocation rules given but no relocator configured"))
		}
		out, err := r.Relocator.Relocate(ctx, relocation.Request{Coordinate: c, Input: path, Set: dep.Relocations})
		if err != nil {
			return nil, artifact.WithCoordinate(c, artifact.KindRelocation, err)
		}
		rec.LocalPath = out
		rec.Relocated = true
	}
	log.WithField("local", rec.LocalPath).Debug("resolved")
	return rec, nil
}

// locate prefers a pinned location over asking the repositories.
func (r *Resolver) locate(ctx context.Context, dep Dependency) (*artifact.ResolvedLocation, error) {
	if r.PreResolution != nil {
		if p, ok := r.PreResolution.Lookup(dep.Coordinate); ok {
			r.logger().WithField("coordinate", dep.Coordinate.String()).Debug("using pinned location")
			return p.Location(), nil
		}
	}
	if r.Locator == nil {
		return nil, artifact.NewConfigurationError(dep.Coordinate, errors.New("resolver has no locator"))
	}
	return r.Locator.Resolve(ctx, dep.Coordinate, dep.Repositories)
}

// discard removes an artifact that failed authentication so that the next
// run downloads it again.
func (r *Resolver) discard(log logrus.FieldLogger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("unable to remove unverified artifact")
		return
	}
	log.Warn("removed unverified artifact")
}

func (r *Resolver) logger() logrus.FieldLogger {
	return logging.OrDiscard(r.Log)
}
