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
Package verifier authenticates staged artifacts.

An artifact is verified when its digest matches the one published by its
repository or pinned by the caller. What happens to artifacts without any
checksum source is decided by an explicit Policy; there is no default.
*/
package verifier // import "smol.sh/smol/pkg/verifier"

import (
	"context"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smol.sh/smol/internal/logging"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/checksum"
	"smol.sh/smol/pkg/getter"
)

// Policy decides the outcome for artifacts that have no checksum source.
type Policy int

const (
	// PolicyUnset is the zero value and is rejected by New.
	PolicyUnset Policy = iota
	// Strict fails artifacts that cannot be authenticated.
	Strict
	// Passthrough accepts them, reporting Verified=false.
	Passthrough
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Passthrough:
		return "passthrough"
	default:
		return "unset"
	}
}

// ParsePolicy parses "strict" or "passthrough".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "passthrough":
		return Passthrough, nil
	}
	return PolicyUnset, artifact.NewConfigurationError(artifact.Coordinate{}, errors.Errorf("unknown verification policy %q (want strict or passthrough)", s))
}

// Source is where the expected digest comes from: a published checksum file
// or a literal digest. A zero Source means no checksum is available.
type Source struct {
	URL    string
	Digest string
}

// IsZero reports whether s names no checksum.
func (s Source) IsZero() bool {
	return s.URL == "" && s.Digest == ""
}

func (s Source) String() string {
	if s.Digest != "" {
		return "digest:" + strings.ToLower(s.Digest)
	}
	return s.URL
}

// SourceOf returns the checksum source of a resolved location.
func SourceOf(loc *artifact.ResolvedLocation) Source {
	if loc == nil {
		return Source{}
	}
	return Source{URL: loc.ChecksumURL, Digest: loc.Checksum}
}

// Result is the outcome of a successful verification.
type Result struct {
	// Verified is true when the digest matched a checksum source.
	Verified bool
	// Checksum is the local digest of the file.
	Checksum string
	// Algorithm is the digest algorithm used.
	Algorithm string
	// Cached is set when the outcome came from the persistent cache.
	Cached bool
}

// Config configures a Verifier.
type Config struct {
	Policy  Policy
	Getters getter.Providers
	// GetterOptions are passed to every checksum and signature fetch.
	GetterOptions []getter.Option
	// CacheFile enables the persistent outcome cache when set.
	CacheFile string
	// Keyring enables OpenPGP signature checks when set.
	Keyring string
	// RequireSignature fails artifacts without a signature when a keyring is set.
	RequireSignature bool
	Log              logrus.FieldLogger
}

// Verifier authenticates files against checksum sources.
type Verifier struct {
	policy           Policy
	getters          getter.Providers
	options          []getter.Option
	cache            *Cache
	keyring          openpgp.EntityList
	requireSignature bool
	log              logrus.FieldLogger
}

// New validates cfg and creates a Verifier.
func New(cfg Config) (*Verifier, error) {
	if cfg.Policy != Strict && cfg.Policy != Passthrough {
		return nil, artifact.NewConfigurationError(artifact.Coordinate{}, errors.New("a verification policy must be set explicitly"))
	}
	v := &Verifier{
		policy:           cfg.Policy,
		getters:          cfg.Getters,
		options:          cfg.GetterOptions,
		requireSignature: cfg.RequireSignature,
		log:              logging.OrDiscard(cfg.Log),
	}
	if cfg.CacheFile != "" {
		c, err := LoadCache(cfg.CacheFile)
		if err != nil {
			return nil, err
		}
		v.cache = c
	}
	if cfg.Keyring != "" {
		kr, err := LoadKeyring(cfg.Keyring)
		if err != nil {
			return nil, artifact.NewConfigurationError(artifact.Coordinate{}, err)
		}
		v.keyring = kr
	}
	return v, nil
}

// Policy returns the configured policy.
func (v *Verifier) Policy() Policy { return v.policy }

// Verify authenticates the file at path against src using the named
// algorithm (SHA-1 when empty).
//
// A digest mismatch, an unreadable checksum source, or a missing source
// under the Strict policy is a VerificationFailure. Under Passthrough a
// missing source succeeds with Verified=false.
func (v *Verifier) Verify(ctx context.Context, path string, src Source, algorithm string) (Result, error) {
	alg := checksum.Default
	if algorithm != "" {
		a, err := checksum.Lookup(algorithm)
		if err != nil {
			return Result{}, artifact.NewConfigurationError(artifact.Coordinate{}, err)
		}
		alg = a
	}
	log := v.log.WithFields(logrus.Fields{"path": path, "algorithm": alg.Name})

	if src.IsZero() && v.policy == Strict {
		return Result{}, artifact.NewVerificationFailure(artifact.Coordinate{}, errors.Errorf("no checksum available for %s", path))
	}

	fi, err := os.Stat(path)
	if err != nil {
		return Result{}, artifact.NewVerificationFailure(artifact.Coordinate{}, err)
	}

	if v.cache != nil {
		if e, ok := v.cache.Lookup(path, fi); ok && e.Algorithm == alg.Name && e.Source == src.String() {
			if e.Verified || src.IsZero() {
				log.Debug("verification outcome taken from cache")
				return Result{Verified: e.Verified, Checksum: e.Digest, Algorithm: alg.Name, Cached: true}, nil
			}
		}
	}

	calc := &checksum.Calculator{Algorithm: alg}
	actual, err := calc.DigestFile(path)
	if err != nil {
		return Result{}, artifact.NewVerificationFailure(artifact.Coordinate{}, err)
	}

	if src.IsZero() {
		log.Warn("no checksum available, accepting unverified artifact")
		v.remember(ctx, path, fi, Entry{Algorithm: alg.Name, Digest: actual})
		return Result{Checksum: actual, Algorithm: alg.Name}, nil
	}

	expected, err := v.expected(ctx, src)
	if err != nil {
		return Result{}, artifact.NewVerificationFailure(artifact.Coordinate{}, err)
	}
	if !checksum.Equal(expected, actual) {
		if v.cache != nil {
			v.cache.Forget(path)
		}
		return Result{}, artifact.NewVerificationFailure(artifact.Coordinate{}, errors.Errorf("%s digest mismatch for %s: expected %s, got %s", alg.Name, path, strings.ToLower(expected), actual))
	}

	log.Debug("checksum verified")
	v.remember(ctx, path, fi, Entry{Algorithm: alg.Name, Digest: actual, Expected: strings.ToLower(expected), Source: src.String(), Verified: true})
	return Result{Verified: true, Checksum: actual, Algorithm: alg.Name}, nil
}

func (v *Verifier) expected(ctx context.Context, src Source) (string, error) {
	if src.Digest != "" {
		return strings.TrimSpace(src.Digest), nil
	}
	g, err := v.getters.ForURL(src.URL)
	if err != nil {
		return "", err
	}
	buf, err := g.Get(ctx, src.URL, v.options...)
	if err != nil {
		return "", errors.Wrap(err, "unable to fetch checksum")
	}
	return checksum.ParseChecksumFile(buf.Bytes())
}

func (v *Verifier) remember(ctx context.Context, path string, fi os.FileInfo, e Entry) {
	if v.cache == nil {
		return
	}
	e.Size = fi.Size()
	e.ModTime = fi.ModTime()
	if err := v.cache.Store(ctx, path, e); err != nil {
		v.log.WithError(err).Warn("unable to persist checksum cache")
	}
}
