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
Package checksum computes file digests under named algorithms and parses the
checksum files published next to artifacts in a repository.
*/
package checksum // import "smol.sh/smol/pkg/checksum"

import (
	"crypto/md5"  //nolint:gosec // published repository checksums
	"crypto/sha1" //nolint:gosec // published repository checksums
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm is a named digest algorithm.
type Algorithm struct {
	// Name is the canonical name, e.g. "SHA-256".
	Name string
	// Extension is the suffix repositories use for checksum files, e.g. "sha256".
	Extension string
	new       func() hash.Hash
}

var (
	MD5        = Algorithm{Name: "MD5", Extension: "md5", new: md5.New}
	SHA1       = Algorithm{Name: "SHA-1", Extension: "sha1", new: sha1.New}
	SHA256     = Algorithm{Name: "SHA-256", Extension: "sha256", new: sha256.New}
	SHA512     = Algorithm{Name: "SHA-512", Extension: "sha512", new: sha512.New}
	SHA3_256   = Algorithm{Name: "SHA3-256", Extension: "sha3-256", new: sha3.New256}
	BLAKE2b256 = Algorithm{Name: "BLAKE2b-256", Extension: "blake2b", new: newBlake2b256}
	BLAKE3     = Algorithm{Name: "BLAKE3", Extension: "blake3", new: func() hash.Hash { return blake3.New() }}
)

// Default is the algorithm Maven repositories publish for every artifact.
var Default = SHA1

var algorithms = []Algorithm{MD5, SHA1, SHA256, SHA512, SHA3_256, BLAKE2b256, BLAKE3}

func newBlake2b256() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for oversized keys
		panic(err)
	}
	return h
}

func normalize(name string) string {
	return strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(name)))
}

// Lookup finds an algorithm by name or checksum file extension. Matching
// ignores case, dashes and underscores so "sha-256", "SHA256" and "sha256"
// are the same algorithm.
func Lookup(name string) (Algorithm, error) {
	n := normalize(name)
	for _, a := range algorithms {
		if normalize(a.Name) == n || normalize(a.Extension) == n {
			return a, nil
		}
	}
	return Algorithm{}, errors.Errorf("unsupported checksum algorithm %q", name)
}

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(algorithms))
	copy(out, algorithms)
	return out
}

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() hash.Hash {
	return a.new()
}

func (a Algorithm) String() string {
	return a.Name
}

// IsZero reports whether a is the unset Algorithm.
func (a Algorithm) IsZero() bool {
	return a.new == nil
}

// Calculator digests local content with a fixed algorithm.
type Calculator struct {
	Algorithm Algorithm
}

// NewCalculator creates a Calculator for the named algorithm.
func NewCalculator(name string) (*Calculator, error) {
	a, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return &Calculator{Algorithm: a}, nil
}

// Digest returns the lowercase hex digest of everything read from in.
func (c *Calculator) Digest(in io.Reader) (string, error) {
	h := c.Algorithm.New()
	if _, err := io.Copy(h, in); err != nil {
		return "", errors.Wrap(err, "unable to digest content")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestFile returns the lowercase hex digest of the named file.
func (c *Calculator) DigestFile(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sum, err := c.Digest(f)
	if err != nil {
		return "", errors.Wrapf(err, "digesting %s", filename)
	}
	return sum, nil
}

// ParseChecksumFile extracts the digest from the content of a published
// checksum file. Repositories publish either the bare hex digest or the
// coreutils form "<digest>  <filename>" (optionally with a '*' marker).
func ParseChecksumFile(content []byte) (string, error) {
	fields := strings.Fields(string(content))
	if len(fields) == 0 {
		return "", errors.New("checksum file is empty")
	}
	sum := strings.ToLower(strings.TrimPrefix(fields[0], "*"))
	if _, err := hex.DecodeString(sum); err != nil {
		return "", errors.Errorf("checksum %q is not hex encoded", fields[0])
	}
	return sum, nil
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
