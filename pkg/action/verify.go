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
	"os"

	"github.com/pkg/errors"

	"smol.sh/smol/pkg/artifact"
	"smol.sh/smol/pkg/verifier"
)

// Verify is the action for authenticating a local file.
//
// It provides the implementation of 'smol verify'.
type Verify struct {
	cfg *Configuration

	// ChecksumURL locates a published checksum file.
	ChecksumURL string
	// Checksum is an expected digest, used instead of ChecksumURL.
	Checksum string
	// Algorithm names the digest algorithm, SHA-1 when empty.
	Algorithm string
	// SignatureURL locates a detached signature to check when a keyring is set.
	SignatureURL string
}

// NewVerify creates a new Verify object with the given configuration.
func NewVerify(cfg *Configuration) *Verify {
	return &Verify{cfg: cfg}
}

// Run executes 'smol verify'.
func (v *Verify) Run(ctx context.Context, path string) (verifier.Result, error) {
	if fi, err := os.Stat(path); err != nil {
		return verifier.Result{}, artifact.NewConfigurationError(artifact.Coordinate{}, err)
	} else if fi.IsDir() {
		return verifier.Result{}, artifact.NewConfigurationError(artifact.Coordinate{}, errors.Errorf("%s is a directory", path))
	}
	if v.ChecksumURL != "" && v.Checksum != "" {
		return verifier.Result{}, artifact.NewConfigurationError(artifact.Coordinate{}, errors.New("a checksum URL and a literal checksum are mutually exclusive"))
	}

	res, err := v.cfg.Verifier.Verify(ctx, path, verifier.Source{URL: v.ChecksumURL, Digest: v.Checksum}, v.Algorithm)
	if err != nil {
		return res, err
	}
	if _, err := v.cfg.Verifier.VerifySignature(ctx, path, v.SignatureURL); err != nil {
		return verifier.Result{}, err
	}
	return res, nil
}
