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

// Record describes a resolved dependency.
//
// A Record is filled in progressively by the resolver and must be treated as
// read-only once it has been returned.
type Record struct {
	Coordinate Coordinate `json:"coordinate"`
	// LocalPath is the verified (and possibly relocated) file to load.
	// Empty for aggregator modules.
	LocalPath string `json:"localPath,omitempty"`
	// Checksum is the hex digest of the downloaded artifact.
	Checksum string `json:"checksum,omitempty"`
	// Verified is true when the artifact was authenticated against a checksum source.
	Verified bool `json:"verified"`
	// Relocated is true when LocalPath is a namespace-rewritten copy.
	Relocated bool `json:"relocated"`
	// Location is where the artifact was fetched from.
	Location ResolvedLocation `json:"location"`
}

// Loadable reports whether the record points at a file the host should load.
func (r *Record) Loadable() bool {
	return r.LocalPath != "" && !r.Location.Aggregator
}
