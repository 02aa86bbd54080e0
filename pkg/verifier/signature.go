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

package verifier

import (
	"bytes"
	"context"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/pkg/errors"

	"smol.sh/smol/pkg/artifact"
)

// LoadKeyring reads an armored or binary OpenPGP public keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read keyring %s", path)
	}
	if kr, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(b)); err == nil {
		return kr, nil
	}
	kr, err := openpgp.ReadKeyRing(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse keyring %s", path)
	}
	return kr, nil
}

// SignaturesEnabled reports whether a keyring was configured.
func (v *Verifier) SignaturesEnabled() bool {
	return len(v.keyring) > 0
}

// VerifySignature checks the detached armored signature at sigURL against
// the file at path. Without a keyring this is a no-op. A missing signature
// (empty sigURL) fails only when signatures are required.
func (v *Verifier) VerifySignature(ctx context.Context, path, sigURL string) (*openpgp.Entity, error) {
	if !v.SignaturesEnabled() {
		return nil, nil
	}
	if sigURL == "" {
		if v.requireSignature {
			return nil, artifact.NewVerificationFailure(artifact.Coordinate{}, errors.Errorf("no signature published for %s", path))
		}
		return nil, nil
	}

	g, err := v.getters.ForURL(sigURL)
	if err != nil {
		return nil, artifact.NewVerificationFailure(artifact.Coordinate{}, err)
	}
	sig, err := g.Get(ctx, sigURL, v.options...)
	if err != nil {
		return nil, artifact.NewVerificationFailure(artifact.Coordinate{}, errors.Wrap(err, "unable to fetch signature"))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, artifact.NewVerificationFailure(artifact.Coordinate{}, err)
	}
	defer f.Close()

	signer, err := openpgp.CheckArmoredDetachedSignature(v.keyring, f, sig, nil)
	if err != nil {
		return nil, artifact.NewVerificationFailure(artifact.Coordinate{}, errors.Wrapf(err, "bad signature for %s", path))
	}
	for name := range signer.Identities {
		v.log.WithField("path", path).WithField("signer", name).Debug("signature verified")
		break
	}
	return signer, nil
}
