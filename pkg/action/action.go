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
Package action implements the operations behind the smol commands.

A Configuration is initialized once from the environment settings and holds
every component the actions share.
*/
package action // import "smol.sh/smol/pkg/action"

import (
	"path/filepath"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"smol.sh/smol/internal/logging"
	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/checksum"
	"smol.sh/smol/pkg/cli"
	"smol.sh/smol/pkg/downloader"
	"smol.sh/smol/pkg/enquirer"
	"smol.sh/smol/pkg/getter"
	"smol.sh/smol/pkg/mirror"
	"smol.sh/smol/pkg/preresolution"
	"smol.sh/smol/pkg/relocation"
	"smol.sh/smol/pkg/resolver"
	"smol.sh/smol/pkg/verifier"
)

// Configuration injects the dependencies that all actions share.
type Configuration struct {
	// Settings is a private copy of the settings Init was called with.
	Settings *cli.EnvSettings
	Policy   verifier.Policy

	Getters    getter.Providers
	Enquirer   *enquirer.Enquirer
	Downloader *downloader.Downloader
	Verifier   *verifier.Verifier
	Relocator  *relocation.Helper
	Resolver   *resolver.Resolver

	Log logrus.FieldLogger
}

// InitOption customizes the components built by Init.
type InitOption func(*initOptions)

type initOptions struct {
	selector      mirror.Selector
	rewriter      relocation.Rewriter
	getterOptions []getter.Option
	algorithm     checksum.Algorithm
}

// WithSelector sets how repositories are ordered before lookups.
func WithSelector(s mirror.Selector) InitOption {
	return func(o *initOptions) { o.selector = s }
}

// WithRewriter replaces the jar rewriter used for relocation.
func WithRewriter(rw relocation.Rewriter) InitOption {
	return func(o *initOptions) { o.rewriter = rw }
}

// WithGetterOptions adds options to every network request.
func WithGetterOptions(opts ...getter.Option) InitOption {
	return func(o *initOptions) { o.getterOptions = append(o.getterOptions, opts...) }
}

// WithAlgorithm selects the published checksum looked up in repositories.
func WithAlgorithm(a checksum.Algorithm) InitOption {
	return func(o *initOptions) { o.algorithm = a }
}

// Init validates settings and builds every component from a snapshot of
// them. Later changes to settings have no effect on cfg.
func (cfg *Configuration) Init(settings *cli.EnvSettings, log logrus.FieldLogger, opts ...InitOption) error {
	if errs := settings.Validate(); len(errs) > 0 {
		return artifact.NewConfigurationError(artifact.Coordinate{}, errs[0])
	}
	snapshot, err := copystructure.Copy(settings)
	if err != nil {
		return errors.Wrap(err, "unable to copy settings")
	}
	s := snapshot.(*cli.EnvSettings)

	policy, err := verifier.ParsePolicy(s.Verify)
	if err != nil {
		return err
	}

	o := initOptions{
		selector:  mirror.PriorityOrder{},
		rewriter:  relocation.JarRewriter{},
		algorithm: checksum.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}
	log = logging.OrDiscard(log)
	getterOpts := []getter.Option{
		getter.WithTimeout(s.Timeout),
		getter.WithTLSClientConfig(s.CertFile, s.KeyFile, s.CAFile),
		getter.WithInsecureSkipVerifyTLS(s.InsecureSkipTLSVerify),
	}
	getterOpts = append(getterOpts, o.getterOptions...)
	providers := getter.Getters(getterOpts...)

	pre := preresolution.Provider(preresolution.None{})
	if s.PreResolution != "" {
		m, err := preresolution.Load(s.PreResolution)
		if err != nil {
			return err
		}
		log.WithField("path", s.PreResolution).Debugf("loaded %d pinned locations", len(m))
		pre = m
	}

	v, err := verifier.New(verifier.Config{
		Policy:           policy,
		Getters:          providers,
		CacheFile:        filepath.Join(s.DownloadDir, verifier.CacheFile),
		Keyring:          s.Keyring,
		RequireSignature: s.RequireSignature,
		Log:              log.WithField("component", "verifier"),
	})
	if err != nil {
		return err
	}

	e := enquirer.New(providers, log.WithField("component", "enquirer"))
	e.Selector = o.selector
	e.Algorithm = o.algorithm
	e.Signatures = v.SignaturesEnabled()

	d := downloader.New(s.DownloadDir, providers, log.WithField("component", "downloader"))
	rel := relocation.New(s.DownloadDir, o.rewriter, log.WithField("component", "relocation"))

	r := resolver.New(pre, e, d, v, rel, log.WithField("component", "resolver"))
	r.Workers = s.Workers

	*cfg = Configuration{
		Settings:   s,
		Policy:     policy,
		Getters:    providers,
		Enquirer:   e,
		Downloader: d,
		Verifier:   v,
		Relocator:  rel,
		Resolver:   r,
		Log:        log,
	}
	return nil
}
