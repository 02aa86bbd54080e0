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

package getter

import (
	"context"

	"github.com/sirupsen/logrus"

	"smol.sh/smol/internal/logging"
)

// Prober checks whether a URL exists without fetching its body.
//
// Any failure to confirm existence, including network errors and timeouts,
// is reported as false.
type Prober interface {
	Probe(ctx context.Context, href string) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, href string) bool

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, href string) bool {
	return f(ctx, href)
}

// GetterProber probes URLs with the Head method of the Getter registered for
// their scheme.
type GetterProber struct {
	Getters Providers
	Options []Option
	Log     logrus.FieldLogger
}

// NewProber returns a Prober over the given providers.
func NewProber(providers Providers, log logrus.FieldLogger, options ...Option) *GetterProber {
	return &GetterProber{Getters: providers, Options: options, Log: log}
}

// Probe implements Prober.
func (p *GetterProber) Probe(ctx context.Context, href string) bool {
	g, err := p.Getters.ForURL(href)
	if err != nil {
		p.logger().WithError(err).WithField("url", href).Debug("probe skipped")
		return false
	}
	if err := g.Head(ctx, href, p.Options...); err != nil {
		if !IsNotFound(err) {
			p.logger().WithError(err).WithField("url", href).Debug("probe failed")
		}
		return false
	}
	return true
}

func (p *GetterProber) logger() logrus.FieldLogger {
	return logging.OrDiscard(p.Log)
}
