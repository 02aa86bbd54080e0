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
Package getter provides the transports used to talk to artifact repositories.

A Getter fetches, streams and probes URLs for a set of schemes. Providers
maps schemes to Getter constructors so callers can pick a transport from a
URL alone.
*/
package getter // import "smol.sh/smol/pkg/getter"

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"smol.sh/smol/internal/tlsutil"
)

// ErrNotFound is returned (wrapped) when the remote reports that a URL does not exist.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err means the URL does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// getterOptions are generic parameters to be provided to the getter during instantiation.
//
// Getters may or may not ignore these parameters as they are passed in.
type getterOptions struct {
	credentials []Credential
	tls         tlsutil.Config
	userAgent   string
	timeout     time.Duration
	transport   *http.Transport
}

// Option allows specifying various settings configurable by the user for overriding the defaults
// used when performing Get operations with the Getter.
type Option func(*getterOptions)

// Credential is a basic auth login for the repository rooted at BaseURL.
type Credential struct {
	BaseURL  string
	Username string
	Password string
}

// matches reports whether u lives under the credential's repository. Scheme
// and host (including the port) must be equal.
func (c Credential) matches(u *url.URL) bool {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	if base.Scheme != u.Scheme || base.Host != u.Host {
		return false
	}
	prefix := strings.TrimSuffix(base.Path, "/")
	return u.Path == prefix || strings.HasPrefix(u.Path, prefix+"/")
}

// WithCredentials adds basic auth logins. A request carries the login whose
// BaseURL is the longest match for the URL being fetched, and none if no
// BaseURL matches.
func WithCredentials(creds ...Credential) Option {
	return func(opts *getterOptions) {
		merged := make([]Credential, 0, len(opts.credentials)+len(creds))
		merged = append(merged, opts.credentials...)
		opts.credentials = append(merged, creds...)
	}
}

// WithUserAgent sets the request's User-Agent header to use the provided agent name.
func WithUserAgent(userAgent string) Option {
	return func(opts *getterOptions) {
		opts.userAgent = userAgent
	}
}

// WithInsecureSkipVerifyTLS determines if a TLS Certificate will be checked
func WithInsecureSkipVerifyTLS(insecureSkipVerifyTLS bool) Option {
	return func(opts *getterOptions) {
		opts.tls.InsecureSkipVerify = insecureSkipVerifyTLS
	}
}

// WithTLSClientConfig sets the client certificate and the extra CA bundle.
func WithTLSClientConfig(certFile, keyFile, caFile string) Option {
	return func(opts *getterOptions) {
		opts.tls.CertFile = certFile
		opts.tls.KeyFile = keyFile
		opts.tls.CAFile = caFile
	}
}

// WithTimeout sets the timeout for requests
func WithTimeout(timeout time.Duration) Option {
	return func(opts *getterOptions) {
		opts.timeout = timeout
	}
}

// WithTransport sets the http.Transport to allow overwriting the HTTPGetter default.
func WithTransport(transport *http.Transport) Option {
	return func(opts *getterOptions) {
		opts.transport = transport
	}
}

// Getter is an interface to support GET, streaming and existence checks of URLs.
type Getter interface {
	// Get file content by url string
	Get(ctx context.Context, href string, options ...Option) (*bytes.Buffer, error)
	// Open streams the content at href. The caller closes the reader.
	Open(ctx context.Context, href string, options ...Option) (io.ReadCloser, error)
	// Head checks that href exists without transferring its body.
	Head(ctx context.Context, href string, options ...Option) error
}

// Constructor is the function for every getter which creates a specific instance
// according to the configuration
type Constructor func(options ...Option) (Getter, error)

// Provider represents any getter and the schemes that it supports.
//
// For example, an HTTP provider may provide one getter that handles both
// 'http' and 'https' schemes.
type Provider struct {
	Schemes []string
	New     Constructor
}

// Provides returns true if the given scheme is supported by this Provider.
func (p Provider) Provides(scheme string) bool {
	for _, i := range p.Schemes {
		if i == scheme {
			return true
		}
	}
	return false
}

// Providers is a collection of Provider objects.
type Providers []Provider

// ByScheme returns a Provider that handles the given scheme.
//
// If no provider handles this scheme, this will return an error.
func (p Providers) ByScheme(scheme string) (Getter, error) {
	for _, pp := range p {
		if pp.Provides(scheme) {
			return pp.New()
		}
	}
	return nil, errors.Errorf("scheme %q not supported", scheme)
}

// ForURL returns the Getter for the scheme of href.
func (p Providers) ForURL(href string) (Getter, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URL %q", href)
	}
	return p.ByScheme(u.Scheme)
}

const (
	// The cost timeout references curl's default connection timeout.
	// https://github.com/curl/curl/blob/master/lib/connect.h#L40C21-L40C21
	// Provisioning runs at start-up, so the whole request is bounded at 120s.
	DefaultHTTPTimeout = 120
)

var defaultOptions = []Option{WithTimeout(time.Second * DefaultHTTPTimeout)}

// Getters returns the built-in providers: HTTP(S) repositories and local
// file:// repositories.
func Getters(extraOpts ...Option) Providers {
	return Providers{
		Provider{
			Schemes: []string{"http", "https"},
			New: func(options ...Option) (Getter, error) {
				options = append(options, defaultOptions...)
				options = append(options, extraOpts...)
				return NewHTTPGetter(options...)
			},
		},
		Provider{
			Schemes: []string{"file"},
			New: func(options ...Option) (Getter, error) {
				return NewFileGetter(options...)
			},
		},
	}
}
