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
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"
	"smol.sh/smol/internal/version"
)

// HTTPGetter is the default HTTP(/S) backend handler
type HTTPGetter struct {
	opts      getterOptions
	transport *http.Transport
	once      sync.Once
}

// Get performs a Get from repo.Getter and returns the body.
func (g *HTTPGetter) Get(ctx context.Context, href string, options ...Option) (*bytes.Buffer, error) {
	body, err := g.Open(ctx, href, options...)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, body); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", href)
	}
	return buf, nil
}

// Open issues a GET and hands the response body to the caller.
func (g *HTTPGetter) Open(ctx context.Context, href string, options ...Option) (io.ReadCloser, error) {
	// Create a local copy of options to avoid data races when Open is called concurrently
	opts := g.opts
	for _, opt := range options {
		opt(&opts)
	}

	resp, err := g.do(ctx, http.MethodGet, href, opts)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(href, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// Head checks for the existence of href. Servers that refuse HEAD are asked
// again with a GET whose body is discarded.
func (g *HTTPGetter) Head(ctx context.Context, href string, options ...Option) error {
	opts := g.opts
	for _, opt := range options {
		opt(&opts)
	}

	resp, err := g.do(ctx, http.MethodHead, href, opts)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = g.do(ctx, http.MethodGet, href, opts)
		if err != nil {
			return err
		}
		resp.Body.Close()
	}
	return checkStatus(href, resp)
}

func checkStatus(href string, resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return errors.Wrapf(ErrNotFound, "failed to fetch %s : %s", href, resp.Status)
	default:
		return errors.Errorf("failed to fetch %s : %s", href, resp.Status)
	}
}

func (g *HTTPGetter) do(ctx context.Context, method, href string, opts getterOptions) (*http.Response, error) {
	// Set a smol specific user agent so that a repo server and metrics can
	// separate smol calls from other tools interacting with repos.
	req, err := http.NewRequestWithContext(ctx, method, href, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.GetUserAgent())
	if opts.userAgent != "" {
		req.Header.Set("User-Agent", opts.userAgent)
	}

	if c, ok := credentialFor(req.URL, opts.credentials); ok {
		req.SetBasicAuth(c.Username, c.Password)
	}

	client, err := g.httpClient(opts)
	if err != nil {
		return nil, err
	}

	return client.Do(req)
}

// credentialFor picks the login with the longest BaseURL matching u.
func credentialFor(u *url.URL, creds []Credential) (Credential, bool) {
	var (
		best  Credential
		found bool
	)
	for _, c := range creds {
		if c.Username == "" || !c.matches(u) {
			continue
		}
		if !found || len(c.BaseURL) > len(best.BaseURL) {
			best, found = c, true
		}
	}
	return best, found
}

// NewHTTPGetter constructs a valid http/https client as a Getter
func NewHTTPGetter(options ...Option) (Getter, error) {
	var client HTTPGetter

	for _, opt := range options {
		opt(&client.opts)
	}

	return &client, nil
}

func (g *HTTPGetter) httpClient(opts getterOptions) (*http.Client, error) {
	if opts.transport != nil {
		return &http.Client{
			Transport: opts.transport,
			Timeout:   opts.timeout,
		}, nil
	}

	if !opts.tls.IsZero() {
		// A transport per client keeps per-call TLS settings isolated.
		tlsConf, err := opts.tls.ClientConfig()
		if err != nil {
			return nil, errors.Wrap(err, "can't create TLS config for client")
		}
		return &http.Client{
			Transport: &http.Transport{
				DisableCompression: true,
				Proxy:              http.ProxyFromEnvironment,
				TLSClientConfig:    tlsConf,
			},
			Timeout: opts.timeout,
		}, nil
	}

	g.once.Do(func() {
		g.transport = &http.Transport{
			DisableCompression: true,
			Proxy:              http.ProxyFromEnvironment,
			TLSClientConfig:    &tls.Config{},
		}
	})

	return &http.Client{
		Transport: g.transport,
		Timeout:   opts.timeout,
	}, nil
}
