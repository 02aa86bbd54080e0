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

// Package tlsutil loads the client TLS settings used to reach repositories.
package tlsutil // import "smol.sh/smol/internal/tlsutil"

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Config names the files that make up a repository client TLS setup.
type Config struct {
	// CAFile holds PEM certificates trusted in addition to the system roots.
	CAFile string
	// CertFile and KeyFile hold a client certificate. Both or neither are set.
	CertFile string
	KeyFile  string

	InsecureSkipVerify bool
}

// IsZero reports whether c leaves the default TLS behavior untouched.
func (c Config) IsZero() bool {
	return c == Config{}
}

// ClientConfig loads the files named by c. Every unreadable or malformed
// file is reported, not only the first.
func (c Config) ClientConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: c.InsecureSkipVerify, //nolint:gosec // opt-in for private mirrors
	}

	var errs *multierror.Error
	switch {
	case c.CertFile == "" && c.KeyFile == "":
	case c.CertFile == "" || c.KeyFile == "":
		errs = multierror.Append(errs, errors.New("a client certificate needs both a cert file and a key file"))
	default:
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "unable to load client certificate %q", c.CertFile))
		} else {
			cfg.Certificates = []tls.Certificate{cert}
		}
	}

	if c.CAFile != "" {
		pool, err := rootsWith(c.CAFile)
		if err != nil {
			errs = multierror.Append(errs, err)
		} else {
			cfg.RootCAs = pool
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// rootsWith returns the system roots extended with the certificates in caFile.
func rootsWith(caFile string) (*x509.CertPool, error) {
	b, err := os.ReadFile(caFile)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read CA file %q", caFile)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(b) {
		return nil, errors.Errorf("no certificates found in CA file %q", caFile)
	}
	return pool, nil
}
