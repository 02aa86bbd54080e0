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

package artifact

import "strings"

// CentralURL is the base URL of Maven Central.
const CentralURL = "https://repo1.maven.org/maven2/"

// Repository is a remote artifact repository laid out in the conventional
// {group}/{artifact}/{version} scheme.
type Repository struct {
	URL      string `json:"url"`
	Priority int    `json:"priority,omitempty"`
	// Username and Password are a basic auth login sent only to URL.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Central returns the Maven Central repository.
func Central() Repository {
	return Repository{URL: CentralURL}
}

// Resolve joins a repository relative path onto the repository base URL.
func (r Repository) Resolve(path string) string {
	return strings.TrimSuffix(r.URL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (r Repository) String() string {
	return r.URL
}

// ResolvedLocation is where a coordinate can be downloaded from.
type ResolvedLocation struct {
	// DownloadURL is the URL of the artifact itself.
	DownloadURL string `json:"downloadURL,omitempty"`
	// ChecksumURL locates the published digest. Empty when the repository
	// does not publish one.
	ChecksumURL string `json:"checksumURL,omitempty"`
	// Checksum is a pinned expected digest, used instead of ChecksumURL.
	Checksum string `json:"checksum,omitempty"`
	// Algorithm names the digest algorithm of ChecksumURL or Checksum.
	Algorithm string `json:"algorithm,omitempty"`
	// SignatureURL locates a detached OpenPGP signature, when one was found.
	SignatureURL string `json:"signatureURL,omitempty"`
	// Repository is the base URL the location was found in.
	Repository string `json:"repository,omitempty"`
	// Aggregator is set for pom-only modules that have nothing to download.
	Aggregator bool `json:"aggregator,omitempty"`
}

// HasChecksumSource reports whether the location carries any way to authenticate the artifact.
func (l *ResolvedLocation) HasChecksumSource() bool {
	return l.ChecksumURL != "" || l.Checksum != ""
}
